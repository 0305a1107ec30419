package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"codereview/internal/config"
)

// IMailService delivers transactional mail. Calls never block the caller and
// never report delivery failures; those are logged by the worker.
type IMailService interface {
	SendVerificationEmail(to, code, name string, isLogin2FA, isPasswordReset bool)
	SendPasswordResetEmail(to, name, token string)
}

type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

type MailSender interface {
	Send(email Email) error
}

type gomailSender struct {
	from   string
	dialer *gomail.Dialer
}

func NewGomailSender(cfg config.SMTPConfig) MailSender {
	from := cfg.From
	if cfg.FromName != "" && cfg.From != "" {
		from = gomail.NewMessage().FormatAddress(cfg.From, cfg.FromName)
	}
	return &gomailSender{
		from:   from,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (g *gomailSender) Send(email Email) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", g.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.TextBody)
	if email.HTMLBody != "" {
		msg.AddAlternative("text/html", email.HTMLBody)
	}
	return g.dialer.DialAndSend(msg)
}

// selectSender picks SMTP when a relay and sender address are configured.
// Credentials are optional; relays that accept unauthenticated mail leave
// them empty.
func selectSender(cfg config.SMTPConfig, log *zerolog.Logger) MailSender {
	if cfg.Host == "" || cfg.From == "" {
		return logSender{log: log}
	}
	return NewGomailSender(cfg)
}

// logSender is used when SMTP is not configured.
type logSender struct {
	log *zerolog.Logger
}

func (l logSender) Send(email Email) error {
	l.log.Warn().Str("to", email.To).Str("subject", email.Subject).Msg("smtp not configured, email not sent")
	return nil
}

type mailService struct {
	appName    string
	appBaseURL string
	sender     MailSender
	queue      chan Email
	done       chan struct{}
	mu         sync.RWMutex
	closed     bool
	log        *zerolog.Logger
	htmlTpl    *template.Template
	textTpl    *texttemplate.Template
	now        func() time.Time
}

// AsyncMailService is the queue backed IMailService with its worker controls.
type AsyncMailService interface {
	IMailService
	Start()
	Stop(ctx context.Context) error
}

func NewMailService(cfg *config.Config, sender MailSender, log *zerolog.Logger) AsyncMailService {
	if sender == nil {
		sender = selectSender(cfg.SMTP, log)
	}

	return &mailService{
		appName:    cfg.AppName,
		appBaseURL: strings.TrimRight(cfg.AppBaseURL, "/"),
		sender:     sender,
		queue:      make(chan Email, cfg.SMTP.QueueSize),
		done:       make(chan struct{}),
		log:        log,
		htmlTpl:    template.Must(template.New("html").Parse(htmlTemplate)),
		textTpl:    texttemplate.Must(texttemplate.New("text").Parse(textTemplate)),
		now:        time.Now,
	}
}

func (m *mailService) SendVerificationEmail(to, code, name string, isLogin2FA, isPasswordReset bool) {
	data := emailData{
		Name:  greetingName(name),
		Code:  code,
		Title: "Verify your email",
		Intro: "Use the code below to verify your email address and activate your account.",
	}
	switch {
	case isPasswordReset:
		data.Title = "Your password reset code"
		data.Intro = "Use the code below to reset your password. If you did not ask for this, ignore this email."
	case isLogin2FA:
		data.Title = "Your sign-in code"
		data.Intro = "Use the code below to finish signing in. Never share it with anyone."
	}
	m.enqueue(to, data)
}

func (m *mailService) SendPasswordResetEmail(to, name, token string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.appBaseURL, url.QueryEscape(token))
	m.enqueue(to, emailData{
		Name:      greetingName(name),
		Title:     "Reset your password",
		Intro:     "We received a request to reset your password. The link is valid for a limited time. If you did not ask for this, ignore this email.",
		ButtonURL: link,
		ButtonTxt: "Reset password",
	})
}

func (m *mailService) enqueue(to string, data emailData) {
	data.AppName = m.appName
	data.Year = m.now().Year()

	email, err := m.render(to, data)
	if err != nil {
		m.log.Error().Err(err).Str("to", to).Msg("render email")
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.log.Error().Str("to", to).Str("subject", email.Subject).Msg("mail service stopped, dropping email")
		return
	}

	select {
	case m.queue <- email:
	default:
		m.log.Error().Str("to", to).Str("subject", email.Subject).Msg("mail queue full, dropping email")
	}
}

func (m *mailService) render(to string, data emailData) (Email, error) {
	var hb, tb bytes.Buffer
	if err := m.htmlTpl.Execute(&hb, data); err != nil {
		return Email{}, err
	}
	if err := m.textTpl.Execute(&tb, data); err != nil {
		return Email{}, err
	}
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("%s - %s", data.AppName, data.Title),
		HTMLBody: hb.String(),
		TextBody: tb.String(),
	}, nil
}

// Start launches the single delivery worker.
func (m *mailService) Start() {
	go func() {
		defer close(m.done)
		for email := range m.queue {
			if err := m.sender.Send(email); err != nil {
				m.log.Error().Err(err).Str("to", email.To).Str("subject", email.Subject).Msg("send email")
				continue
			}
			m.log.Debug().Str("to", email.To).Str("subject", email.Subject).Msg("email sent")
		}
	}()
}

// Stop closes the queue and waits for queued mail to drain or ctx to end.
// Mail sent after Stop is dropped.
func (m *mailService) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

type emailData struct {
	Name      string
	Title     string
	Intro     string
	Code      string
	ButtonURL string
	ButtonTxt string
	AppName   string
	Year      int
}

const htmlTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body { margin: 0; padding: 0; background: #0f172a; color: #e2e8f0; font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; }
    .wrapper { padding: 40px 16px; }
    .card { max-width: 560px; margin: 0 auto; background: #1e293b; border-radius: 12px; overflow: hidden; }
    .header { padding: 24px 32px; border-bottom: 1px solid #334155; font-weight: 700; font-size: 20px; color: #38bdf8; }
    .content { padding: 32px; line-height: 1.6; }
    .code { margin: 24px 0; padding: 16px; text-align: center; font-family: "SFMono-Regular", Consolas, monospace; font-size: 32px; letter-spacing: 8px; background: #0f172a; border-radius: 8px; color: #f8fafc; }
    .btn { display: inline-block; margin: 24px 0; padding: 12px 28px; background: #0ea5e9; color: #ffffff !important; text-decoration: none; border-radius: 8px; font-weight: 600; }
    .footer { padding: 20px 32px; font-size: 12px; color: #64748b; border-top: 1px solid #334155; }
  </style>
</head>
<body>
  <div class="wrapper">
    <div class="card">
      <div class="header">{{.AppName}}</div>
      <div class="content">
        <h2>{{.Title}}</h2>
        <p>Hi {{.Name}},</p>
        <p>{{.Intro}}</p>
        {{if .Code}}<div class="code">{{.Code}}</div>{{end}}
        {{if .ButtonURL}}<a class="btn" href="{{.ButtonURL}}">{{.ButtonTxt}}</a>
        <p style="font-size:12px;color:#94a3b8">If the button does not work, open this link: {{.ButtonURL}}</p>{{end}}
      </div>
      <div class="footer">&copy; {{.Year}} {{.AppName}}</div>
    </div>
  </div>
</body>
</html>`

const textTemplate = `{{.Title}}

Hi {{.Name}},

{{.Intro}}
{{if .Code}}
Code: {{.Code}}
{{end}}{{if .ButtonURL}}
Open this link: {{.ButtonURL}}
{{end}}
{{.AppName}} (c) {{.Year}}
`
