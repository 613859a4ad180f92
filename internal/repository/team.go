// internal/repository/team.go
package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeamRepositoryIface interface {
	Create(ctx context.Context, team *model.Team) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Team, error)
	FindBySlug(ctx context.Context, slug string) (*model.Team, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]model.Team, error)
	Update(ctx context.Context, team *model.Team) error
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, teamID, userID uuid.UUID) (*model.Team, error)
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) (*MemberRemoval, error)
}

// MemberRemoval is what changed when a user left a team.
type MemberRemoval struct {
	Team *model.Team
	// Discussions listed the user as a member and were rewritten without them.
	Discussions []model.Discussion
	// DiscussionIDs holds every discussion of the team.
	DiscussionIDs []uuid.UUID
}

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, team *model.Team) error {
	err := r.db.WithContext(ctx).Create(team).Error
	return translate(err, "creating team", nil, domain.ErrSlugTaken)
}

func (r *TeamRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Team, error) {
	var team model.Team
	if err := r.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, translate(err, "finding team", domain.ErrTeamNotFound, nil)
	}
	return &team, nil
}

func (r *TeamRepository) FindBySlug(ctx context.Context, slug string) (*model.Team, error) {
	var team model.Team
	if err := r.db.WithContext(ctx).First(&team, "slug = ?", slug).Error; err != nil {
		return nil, translate(err, "finding team", domain.ErrTeamNotFound, nil)
	}
	return &team, nil
}

// FindByUser returns the teams userID is a member of, newest first.
func (r *TeamRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.WithContext(ctx).
		Where("member_ids LIKE ?", memberPattern(userID)).
		Order("created_at DESC").Order("id DESC").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("finding user teams: %w", err)
	}
	return teams, nil
}

// Update writes the name, avatar and slug of team and reloads it. Members are
// owned by AddMember and RemoveMember and never written here.
func (r *TeamRepository) Update(ctx context.Context, team *model.Team) error {
	result := r.db.WithContext(ctx).Model(team).
		Select("name", "avatar_url", "slug", "updated_at").
		Updates(team)
	if err := translate(result.Error, "updating team", nil, domain.ErrSlugTaken); err != nil {
		return err
	}
	if result.RowsAffected == 0 {
		return domain.ErrTeamNotFound
	}
	if err := r.db.WithContext(ctx).First(team, "id = ?", team.ID).Error; err != nil {
		return translate(err, "reloading team", domain.ErrTeamNotFound, nil)
	}
	return nil
}

func (r *TeamRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Team{}).Where("slug = ?", slug)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking team slug: %w", err)
	}
	return count > 0, nil
}

// AddMember appends userID to the team's members under a row lock.
func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID uuid.UUID) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&team, "id = ?", teamID).Error; err != nil {
			return translate(err, "locking team", domain.ErrTeamNotFound, nil)
		}
		if team.IsMember(userID) {
			return domain.ErrAlreadyMember
		}
		team.MemberIDs = team.MemberIDs.With(userID)
		if err := tx.Save(&team).Error; err != nil {
			return fmt.Errorf("saving team members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// RemoveMember drops userID from the team and from every discussion of the
// team listing them.
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) (*MemberRemoval, error) {
	var (
		team    model.Team
		removal MemberRemoval
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&team, "id = ?", teamID).Error; err != nil {
			return translate(err, "locking team", domain.ErrTeamNotFound, nil)
		}
		if !team.IsMember(userID) {
			return domain.ErrNotTeamMember
		}
		team.MemberIDs = team.MemberIDs.Without(userID)
		if err := tx.Save(&team).Error; err != nil {
			return fmt.Errorf("saving team members: %w", err)
		}

		var discussions []model.Discussion
		if err := forUpdate(tx).Where("team_id = ?", teamID).Find(&discussions).Error; err != nil {
			return fmt.Errorf("finding team discussions: %w", err)
		}
		removal.DiscussionIDs = make([]uuid.UUID, 0, len(discussions))
		for i := range discussions {
			removal.DiscussionIDs = append(removal.DiscussionIDs, discussions[i].ID)
			if !discussions[i].MemberIDs.Contains(userID) {
				continue
			}
			discussions[i].MemberIDs = discussions[i].MemberIDs.Without(userID)
			if err := tx.Model(&discussions[i]).Update("member_ids", discussions[i].MemberIDs).Error; err != nil {
				return fmt.Errorf("saving discussion members: %w", err)
			}
			removal.Discussions = append(removal.Discussions, discussions[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	removal.Team = &team
	return &removal, nil
}
