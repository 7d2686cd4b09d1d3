package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/resendlabs/resend-go"
)

type campaignTemplate struct {
	subject string
	body    string
}

// Campaign bodies are plain templates with {{key}} placeholders filled from
// the personalization values.
var campaignTemplates = map[int]campaignTemplate{
	CampaignVerifyEmail: {
		subject: "Verify your email address",
		body:    "Please verify your email address: {{verification_link}}",
	},
	CampaignPasswordReset: {
		subject: "Reset your password",
		body:    "A password reset was requested for your account: {{reset_link}}",
	},
	CampaignEmailWillChange: {
		subject: "Your email address is changing",
		body:    "A request was made to change your email address to {{new_email_address}}. If this wasn't you, contact support.",
	},
	CampaignInviteTeacher: {
		subject: "You've been invited to join {{school_name}}",
		body:    "You've been invited to join {{school_name}}. Accept the invitation here: {{accept_link}}",
	},
	CampaignInviteTeacherExistingUser: {
		subject: "You've been invited to join {{school_name}}",
		body:    "You've been invited to join {{school_name}} with your existing account. Accept the invitation here: {{accept_link}}",
	},
	CampaignInvitationRejected: {
		subject: "Your invitation was declined",
		body:    "{{invited_teacher_first_name}} {{invited_teacher_last_name}} ({{invited_teacher_email}}) declined the invitation to join your school.",
	},
}

// ResendMailer delivers campaign emails through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey string, from string) *ResendMailer {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return &ResendMailer{}
	}
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (m *ResendMailer) Send(
	ctx context.Context,
	campaignID int,
	to []string,
	cc []string,
	personalization map[string]string,
) error {
	if m.client == nil {
		return fmt.Errorf("mailer not configured")
	}
	template, ok := campaignTemplates[campaignID]
	if !ok {
		return fmt.Errorf("unknown campaign %d", campaignID)
	}

	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      to,
		Cc:      cc,
		Subject: renderTemplate(template.subject, personalization),
		Text:    renderTemplate(template.body, personalization),
	})
	return err
}

func renderTemplate(template string, values map[string]string) string {
	rendered := template
	for key, value := range values {
		rendered = strings.ReplaceAll(rendered, "{{"+key+"}}", value)
	}
	return rendered
}
