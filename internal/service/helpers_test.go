package service_test

import (
	"testing"
	"time"

	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/service"
	"github.com/dangerclosesec/huddle/internal/testdb"
	"gorm.io/gorm"
)

type services struct {
	db            *gorm.DB
	audit         *service.AuditLogService
	teams         *service.TeamService
	topics        *service.TopicService
	discussions   *service.DiscussionService
	posts         *service.PostService
	notifications *service.NotificationService
	invitations   *service.InvitationService
}

// newServices wires every service over a fresh database. mailer may be nil.
func newServices(t *testing.T, mailer service.Mailer) *services {
	t.Helper()
	db := testdb.New(t)

	users := repository.NewUserRepository(db)
	teams := repository.NewTeamRepository(db)
	topics := repository.NewTopicRepository(db)
	discussions := repository.NewDiscussionRepository(db)
	posts := repository.NewPostRepository(db)

	auditLog := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	checker := permission.NewChecker(teams, topics, discussions, posts, auditLog)
	auditLog.SetChecker(checker)

	notifications := service.NewNotificationService(repository.NewNotificationRepository(db))
	return &services{
		db:            db,
		audit:         auditLog,
		teams:         service.NewTeamService(teams, users, checker, auditLog),
		topics:        service.NewTopicService(topics, checker, auditLog),
		discussions:   service.NewDiscussionService(discussions, checker, auditLog),
		posts:         service.NewPostService(posts, checker, notifications, auditLog),
		notifications: notifications,
		invitations: service.NewInvitationService(
			repository.NewInvitationRepository(db), teams, users, checker, mailer, auditLog,
			"https://huddle.test/", 24*time.Hour,
		),
	}
}

func newChecker(db *gorm.DB) *permission.Checker {
	return permission.NewChecker(
		repository.NewTeamRepository(db),
		repository.NewTopicRepository(db),
		repository.NewDiscussionRepository(db),
		repository.NewPostRepository(db),
		nil,
	)
}
