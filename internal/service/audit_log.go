package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dangerclosesec/huddle/internal/audit"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Ensure AuditLogService implements the audit.Logger interface
var _ audit.Logger = (*AuditLogService)(nil)

// AuditLogService persists audit entries and lets team leaders read them
type AuditLogService struct {
	repo    *repository.AuditLogRepository
	checker *permission.Checker
}

func NewAuditLogService(repo *repository.AuditLogRepository) *AuditLogService {
	return &AuditLogService{repo: repo}
}

// SetChecker wires the permission checker, which itself logs through this
// service.
func (s *AuditLogService) SetChecker(checker *permission.Checker) {
	s.checker = checker
}

func (s *AuditLogService) LogPermissionCheck(
	ctx context.Context,
	subjectID uuid.UUID,
	permission string,
	object model.EntityRef,
	teamID uuid.UUID,
	result bool,
	contextData map[string]interface{},
) error {
	entry := s.entry(ctx, model.ActionPermissionCheck, subjectID, object, teamID)
	entry.Result = &result
	entry.Permission = permission
	entry.Context = model.JSONMap(contextData)
	return s.repo.Create(ctx, entry)
}

func (s *AuditLogService) LogEntityCreate(ctx context.Context, subjectID uuid.UUID, object model.EntityRef, teamID uuid.UUID, attributes map[string]interface{}) error {
	entry := s.entry(ctx, model.ActionEntityCreate, subjectID, object, teamID)
	entry.Context = model.JSONMap(attributes)
	return s.repo.Create(ctx, entry)
}

func (s *AuditLogService) LogEntityUpdate(ctx context.Context, subjectID uuid.UUID, object model.EntityRef, teamID uuid.UUID, attributes map[string]interface{}) error {
	entry := s.entry(ctx, model.ActionEntityUpdate, subjectID, object, teamID)
	entry.Context = model.JSONMap(attributes)
	return s.repo.Create(ctx, entry)
}

func (s *AuditLogService) LogEntityDelete(ctx context.Context, subjectID uuid.UUID, object model.EntityRef, teamID uuid.UUID) error {
	return s.repo.Create(ctx, s.entry(ctx, model.ActionEntityDelete, subjectID, object, teamID))
}

func (s *AuditLogService) entry(ctx context.Context, action string, subjectID uuid.UUID, object model.EntityRef, teamID uuid.UUID) *model.AuditLog {
	entry := &model.AuditLog{
		Timestamp:  time.Now().UTC(),
		ActionType: action,
		EntityType: object.Kind,
		EntityID:   object.ID.String(),
		SubjectID:  subjectID.String(),
		RequestID:  middleware.GetReqID(ctx),
	}
	if teamID != uuid.Nil {
		entry.TeamID = &teamID
	}
	return entry
}

type AuditQueryInput struct {
	TeamID uuid.UUID `json:"teamId" validate:"required"`
	Skip   int       `json:"skip"`
	Limit  int       `json:"limit"`
}

// Query lists a team's audit entries, newest first. Only the leader may read them.
func (s *AuditLogService) Query(ctx context.Context, userID uuid.UUID, input AuditQueryInput) ([]model.AuditLog, int64, error) {
	if err := validateInput(input); err != nil {
		return nil, 0, err
	}
	p, err := page(input.Skip, input.Limit)
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.checker.Check(ctx, userID, model.TeamRef(input.TeamID), permission.Lead); err != nil {
		return nil, 0, err
	}
	return s.repo.Query(ctx, repository.AuditQuery{TeamID: input.TeamID, Offset: p.Skip, Limit: p.Limit})
}

// recordCreate and friends log mutations without failing the caller.
func recordCreate(ctx context.Context, logger audit.Logger, userID uuid.UUID, ref model.EntityRef, teamID uuid.UUID, attrs map[string]interface{}) {
	if err := logger.LogEntityCreate(ctx, userID, ref, teamID, attrs); err != nil {
		logAuditFailure(ctx, ref, err)
	}
}

func recordUpdate(ctx context.Context, logger audit.Logger, userID uuid.UUID, ref model.EntityRef, teamID uuid.UUID, attrs map[string]interface{}) {
	if err := logger.LogEntityUpdate(ctx, userID, ref, teamID, attrs); err != nil {
		logAuditFailure(ctx, ref, err)
	}
}

func recordDelete(ctx context.Context, logger audit.Logger, userID uuid.UUID, ref model.EntityRef, teamID uuid.UUID) {
	if err := logger.LogEntityDelete(ctx, userID, ref, teamID); err != nil {
		logAuditFailure(ctx, ref, err)
	}
}

func logAuditFailure(ctx context.Context, ref model.EntityRef, err error) {
	slog.WarnContext(ctx, "failed to write audit log", "entity", ref.String(), "error", err)
}

func orNoop(logger audit.Logger) audit.Logger {
	if logger == nil {
		return audit.NoOpLogger{}
	}
	return logger
}
