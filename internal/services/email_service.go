package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/teamforge/mentor-platform/internal/config"
	"github.com/teamforge/mentor-platform/internal/logger"
)

type EmailService struct {
	config *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{config: cfg}
}

// EmailData contains common email template data
type EmailData struct {
	AppName     string
	AppURL      string
	UserName    string
	Subject     string
	Content     template.HTML
	ActionURL   string
	ActionLabel string
}

// BaseEmailTemplate is the base HTML email template
const BaseEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1f2937; color: white; padding: 30px; text-align: center; border-radius: 8px 8px 0 0; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 8px 8px; }
        .button { display: inline-block; background: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 6px; margin: 20px 0; }
        .footer { text-align: center; color: #888; font-size: 12px; margin-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.AppName}}</h1>
        </div>
        <div class="content">
            <p>Hi {{.UserName}},</p>
            {{.Content}}
            {{if .ActionURL}}
            <p style="text-align: center;">
                <a href="{{.ActionURL}}" class="button">{{.ActionLabel}}</a>
            </p>
            {{end}}
        </div>
        <div class="footer">
            <p>&copy; {{.AppName}}. All rights reserved.</p>
            <p>This is an automated message. Please do not reply.</p>
        </div>
    </div>
</body>
</html>
`

// sendEmail sends an email using SMTP. Delivery is best-effort like the
// notification stream: failures are logged, never propagated.
func (s *EmailService) sendEmail(to, subject, body string) {
	if s.config.SMTPHost == "" {
		logger.Log.Info("email skipped, no SMTP host configured",
			zap.String("to", to), zap.String("subject", subject))
		return
	}

	from := s.config.FromEmail
	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		from, to, subject)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(headers+body)); err != nil {
		logger.Log.Warn("email delivery failed", zap.String("to", to), zap.Error(err))
	}
}

// renderEmail renders an email using the base template
func (s *EmailService) renderEmail(data EmailData) (string, error) {
	data.AppName = s.config.AppName
	data.AppURL = s.config.AppURL

	tmpl, err := template.New("email").Parse(BaseEmailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendTeamInvitation emails an unregistered invitee a link to create an
// account; the pending membership resolves automatically on registration.
func (s *EmailService) SendTeamInvitation(to, name, projectTitle string) {
	if name == "" {
		name = "there"
	}
	body, err := s.renderEmail(EmailData{
		UserName:    name,
		Subject:     "You have been invited to " + projectTitle,
		Content:     template.HTML("<p>You have been invited to join the team of <strong>" + template.HTMLEscapeString(projectTitle) + "</strong>. Create an account with this email address and your membership will be activated automatically.</p>"),
		ActionURL:   s.config.AppURL + "/register",
		ActionLabel: "Create account",
	})
	if err != nil {
		logger.Log.Warn("email render failed", zap.Error(err))
		return
	}
	s.sendEmail(to, "Invitation to "+projectTitle, body)
}
