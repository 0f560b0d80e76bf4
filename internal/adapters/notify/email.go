// Package notify delivers the preferred-cleaner notifications: transactional
// email over SMTP and mobile push through the push gateway. Both channels are
// best-effort; the coordinator logs and drops failures.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"brightnest/internal/domain"
)

type EmailConfig struct {
	Host     string
	Port     string
	From     string
	Password string
}

type Notifier struct {
	email EmailConfig
	push  *PushClient
}

func New(email EmailConfig, push *PushClient) *Notifier {
	return &Notifier{email: email, push: push}
}

func (n *Notifier) SendPreferredCleanerEmail(_ context.Context, to, cleanerFirstName, homeownerName, homeLabel string) error {
	if n.email.Host == "" {
		return fmt.Errorf("smtp not configured")
	}

	greeting := cleanerFirstName
	if greeting == "" {
		greeting = "there"
	}
	subject := "You're now a preferred cleaner"
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p><strong>%s</strong> just added you as a preferred cleaner for <strong>%s</strong>.
You can now book jobs at this home without per-job approval.</p>
<p>Keep up the great work!</p>`,
		greeting, homeownerName, homeLabel)

	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: BrightNest <%s>\r\n", n.email.From)
	msg += fmt.Sprintf("To: %s\r\n", to)
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += wrapTemplate(subject, body)

	auth := smtp.PlainAuth("", n.email.From, n.email.Password, n.email.Host)
	return smtp.SendMail(n.email.Host+":"+n.email.Port, auth, n.email.From, []string{to}, []byte(msg))
}

func (n *Notifier) SendPush(ctx context.Context, token, title, body string) error {
	if n.push == nil {
		return fmt.Errorf("push not configured")
	}
	return n.push.Send(ctx, token, title, body)
}

func wrapTemplate(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden;">
    <div style="background-color: #1E6F5C; padding: 24px; text-align: center;">
      <h1 style="color: #FFFFFF; margin: 0; font-size: 22px;">BrightNest</h1>
    </div>
    <div style="padding: 32px 28px; color: #1B1B1B; line-height: 1.6;">
      <h2 style="margin-top: 0;">%s</h2>
      %s
    </div>
    <div style="background-color: #F6F6F6; padding: 16px; text-align: center; font-size: 12px; color: #666;">
      You received this because you clean homes with BrightNest.
    </div>
  </div>
</body>
</html>`, title, content)
}

var _ domain.Notifier = (*Notifier)(nil)
