package services

import (
	"bytes"
	"fmt"
	"html/template"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService sends transactional mail through SendGrid. Every send is
// best-effort: callers fire it from a goroutine and a failure must never fail
// the primary operation.
type EmailService struct {
	apiKey    string
	fromEmail string
	appURL    string
}

func NewEmailService() *EmailService {
	fromEmail := os.Getenv("SENDGRID_FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = "noreply@subletmatch.com"
	}
	appURL := os.Getenv("FRONTEND_URL")
	if appURL == "" {
		appURL = "http://localhost:3000"
	}

	return &EmailService{
		apiKey:    os.Getenv("SENDGRID_API_KEY"),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

const welcomeTemplate = `
<html>
	<body>
		<h2>Welcome to SubletMatch, {{.Name}}!</h2>
		<p>Your account is ready. Browse sublets, save the ones you like and
		message hosts directly.</p>
		<p>Happy hunting!</p>
	</body>
</html>
`

const passwordResetTemplate = `
<html>
	<body>
		<h2>Password Reset Request</h2>
		<p>You requested to reset your password. Click the link below to set a new password:</p>
		<p><a href="{{.Link}}">Reset Password</a></p>
		<p>If you didn't request this, you can safely ignore this email.</p>
		<p>This link will expire in 1 hour.</p>
	</body>
</html>
`

const verificationTemplate = `
<html>
	<body>
		<h2>Verify your email</h2>
		<p>Hi {{.Name}},</p>
		<p>Please confirm your email address to finish setting up your SubletMatch account:</p>
		<p><a href="{{.Link}}">Verify Email</a></p>
		<p>If you didn't create an account, you can safely ignore this email.</p>
	</body>
</html>
`

func (e *EmailService) SendWelcomeEmail(toEmail, name string) error {
	html, err := renderTemplate("welcome", welcomeTemplate, map[string]string{"Name": name})
	if err != nil {
		return err
	}
	return e.send(toEmail, "Welcome to SubletMatch", html)
}

func (e *EmailService) SendPasswordResetEmail(toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", e.appURL, token)
	html, err := renderTemplate("reset", passwordResetTemplate, map[string]string{"Link": link})
	if err != nil {
		return err
	}
	return e.send(toEmail, "Reset Your Password", html)
}

func (e *EmailService) SendVerificationEmail(toEmail, name, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", e.appURL, token)
	html, err := renderTemplate("verification", verificationTemplate, map[string]string{"Name": name, "Link": link})
	if err != nil {
		return err
	}
	return e.send(toEmail, "Verify your SubletMatch email", html)
}

func renderTemplate(name, tmpl string, data map[string]string) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return body.String(), nil
}

func (e *EmailService) send(toEmail, subject, html string) error {
	// Without an API key, log the mail instead of sending (development mode).
	if e.apiKey == "" {
		log.Info().Str("to", toEmail).Str("subject", subject).Msg("SENDGRID_API_KEY not set, skipping email send")
		return nil
	}

	from := mail.NewEmail("SubletMatch", e.fromEmail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", html)

	client := sendgrid.NewSendClient(e.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected email: status %d", response.StatusCode)
	}
	return nil
}
