package mailer

import (
	"context"
	"time"

	"github.com/dangerclosesec/huddle/internal/email"
)

// TeamInvitation contains data for the team_invitation template
type TeamInvitation struct {
	To             string
	TeamName       string
	InviterName    string
	InvitationLink string
	ExpiresAt      time.Time
}

// InvitationMailer delivers team invitations through the email service
type InvitationMailer struct {
	service *email.Service
}

func NewInvitationMailer(service *email.Service) *InvitationMailer {
	return &InvitationMailer{service: service}
}

func (m *InvitationMailer) SendTeamInvitation(ctx context.Context, invitation TeamInvitation) error {
	return m.service.SendEmail(ctx, email.EmailData{
		To:           invitation.To,
		Subject:      invitation.InviterName + " invited you to " + invitation.TeamName + " on Huddle",
		TemplateName: "team_invitation",
		TemplateData: invitation,
	})
}
