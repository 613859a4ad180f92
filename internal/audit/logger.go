package audit

import (
	"context"

	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
)

// Logger defines the interface for auditing operations
type Logger interface {
	// LogPermissionCheck logs the outcome of an authorization decision
	LogPermissionCheck(
		ctx context.Context,
		subjectID uuid.UUID,
		permission string,
		object model.EntityRef,
		teamID uuid.UUID,
		result bool,
		contextData map[string]interface{},
	) error

	// LogEntityCreate logs an entity creation operation
	LogEntityCreate(
		ctx context.Context,
		subjectID uuid.UUID,
		object model.EntityRef,
		teamID uuid.UUID,
		attributes map[string]interface{},
	) error

	// LogEntityUpdate logs an entity update operation
	LogEntityUpdate(
		ctx context.Context,
		subjectID uuid.UUID,
		object model.EntityRef,
		teamID uuid.UUID,
		attributes map[string]interface{},
	) error

	// LogEntityDelete logs an entity deletion operation
	LogEntityDelete(
		ctx context.Context,
		subjectID uuid.UUID,
		object model.EntityRef,
		teamID uuid.UUID,
	) error
}

// NoOpLogger is a logger that does nothing
type NoOpLogger struct{}

func (NoOpLogger) LogPermissionCheck(context.Context, uuid.UUID, string, model.EntityRef, uuid.UUID, bool, map[string]interface{}) error {
	return nil
}

func (NoOpLogger) LogEntityCreate(context.Context, uuid.UUID, model.EntityRef, uuid.UUID, map[string]interface{}) error {
	return nil
}

func (NoOpLogger) LogEntityUpdate(context.Context, uuid.UUID, model.EntityRef, uuid.UUID, map[string]interface{}) error {
	return nil
}

func (NoOpLogger) LogEntityDelete(context.Context, uuid.UUID, model.EntityRef, uuid.UUID) error {
	return nil
}
