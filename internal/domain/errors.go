// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of these,
// so callers can classify with errors.Is.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
)

var (
	// Entity lookups
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrTeamNotFound         = fmt.Errorf("team %w", ErrNotFound)
	ErrTopicNotFound        = fmt.Errorf("topic %w", ErrNotFound)
	ErrDiscussionNotFound   = fmt.Errorf("discussion %w", ErrNotFound)
	ErrPostNotFound         = fmt.Errorf("post %w", ErrNotFound)
	ErrInvitationNotFound   = fmt.Errorf("invitation %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)

	// Input
	ErrMissingUser    = fmt.Errorf("%w: acting user is required", ErrBadRequest)
	ErrMissingID      = fmt.Errorf("%w: entity id is required", ErrBadRequest)
	ErrUnknownEntity  = fmt.Errorf("%w: unknown entity kind", ErrBadRequest)
	ErrAlreadyMember  = fmt.Errorf("%w: user is already a team member", ErrBadRequest)
	ErrInvitationGone = fmt.Errorf("%w: invitation expired", ErrBadRequest)

	// Authorization
	ErrNotTeamMember       = fmt.Errorf("%w: not a team member", ErrPermissionDenied)
	ErrNotDiscussionMember = fmt.Errorf("%w: not a discussion member", ErrPermissionDenied)
	ErrNotTeamLeader       = fmt.Errorf("%w: only the team leader can do this", ErrPermissionDenied)
	ErrNotAuthor           = fmt.Errorf("%w: only the author can do this", ErrPermissionDenied)
	ErrNotModerator        = fmt.Errorf("%w: only the author or team leader can do this", ErrPermissionDenied)
	ErrRemoveLeader        = fmt.Errorf("%w: the team leader cannot be removed", ErrPermissionDenied)
	ErrWrongInvitee        = fmt.Errorf("%w: invitation was sent to another email", ErrPermissionDenied)

	// Uniqueness
	ErrSlugTaken         = fmt.Errorf("slug %w", ErrConflict)
	ErrEmailAlreadyTaken = fmt.Errorf("email %w", ErrConflict)
)

// BadRequestf builds a validation error that classifies as ErrBadRequest.
func BadRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
