// internal/repository/invitation.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationRepositoryIface interface {
	Create(ctx context.Context, invitation *model.Invitation) error
	FindByToken(ctx context.Context, token string) (*model.Invitation, error)
	FindByTeamAndEmail(ctx context.Context, teamID uuid.UUID, email string) (*model.Invitation, error)
	FindByTeam(ctx context.Context, teamID uuid.UUID) ([]model.Invitation, error)
	Update(ctx context.Context, invitation *model.Invitation) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountExpired(ctx context.Context, before time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error)
}

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(ctx context.Context, invitation *model.Invitation) error {
	err := r.db.WithContext(ctx).Create(invitation).Error
	return translate(err, "creating invitation", nil, domain.ErrConflict)
}

func (r *InvitationRepository) FindByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var invitation model.Invitation
	if err := r.db.WithContext(ctx).First(&invitation, "token = ?", token).Error; err != nil {
		return nil, translate(err, "finding invitation", domain.ErrInvitationNotFound, nil)
	}
	return &invitation, nil
}

func (r *InvitationRepository) FindByTeamAndEmail(ctx context.Context, teamID uuid.UUID, email string) (*model.Invitation, error) {
	var invitation model.Invitation
	err := r.db.WithContext(ctx).First(&invitation, "team_id = ? AND email = ?", teamID, email).Error
	if err != nil {
		return nil, translate(err, "finding invitation", domain.ErrInvitationNotFound, nil)
	}
	return &invitation, nil
}

func (r *InvitationRepository) FindByTeam(ctx context.Context, teamID uuid.UUID) ([]model.Invitation, error) {
	var invitations []model.Invitation
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").Order("id DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("finding team invitations: %w", err)
	}
	return invitations, nil
}

func (r *InvitationRepository) Update(ctx context.Context, invitation *model.Invitation) error {
	err := r.db.WithContext(ctx).Save(invitation).Error
	return translate(err, "updating invitation", nil, domain.ErrConflict)
}

func (r *InvitationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&model.Invitation{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) CountExpired(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Invitation{}).Where("expires_at < ?", before).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting expired invitations: %w", err)
	}
	return count, nil
}

// DeleteExpired removes at most limit invitations that expired before the
// given time and reports how many were removed.
func (r *InvitationRepository) DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error) {
	db := r.db.WithContext(ctx)
	batch := db.Model(&model.Invitation{}).Select("id").Where("expires_at < ?", before).Limit(limit)
	result := db.Where("id IN (?)", batch).Delete(&model.Invitation{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting expired invitations: %w", result.Error)
	}
	return result.RowsAffected, nil
}
