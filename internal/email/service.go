// Package email sends admin notifications over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("email not configured")

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	// NotifyTo receives contact and testimonial notifications.
	NotifyTo string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// CanNotify reports whether notifications have somewhere to go.
func (s *Service) CanNotify() bool {
	return s.IsConfigured() && s.config.NotifyTo != ""
}

// SendHTMLEmail sends a multipart message with a plain text fallback.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	msg := buildMessage(s.fromHeader(), to, subject, textBody, htmlBody, time.Now())
	if err := s.send(s.server, s.auth, s.config.From, to, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *Service) fromHeader() string {
	if s.config.FromName == "" {
		return s.config.From
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.config.FromName), s.config.From)
}

// ContactData is the payload of a contact form notification.
type ContactData struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// NotifyContact forwards a contact form submission to the site owner.
func (s *Service) NotifyContact(data ContactData) error {
	if !s.CanNotify() {
		return ErrNotConfigured
	}
	html, err := renderTemplate(contactTemplate, data)
	if err != nil {
		return fmt.Errorf("render contact template: %w", err)
	}
	subject := "New contact message"
	if data.Subject != "" {
		subject += ": " + data.Subject
	}
	text := fmt.Sprintf("From: %s <%s>\n\n%s", data.Name, data.Email, data.Message)
	return s.SendHTMLEmail([]string{s.config.NotifyTo}, subject, text, html)
}

// TestimonialData is the payload of a testimonial submission notification.
type TestimonialData struct {
	Name    string
	Role    string
	Company string
	Rating  int
	Content string
}

// NotifyTestimonial tells the site owner a testimonial awaits review.
func (s *Service) NotifyTestimonial(data TestimonialData) error {
	if !s.CanNotify() {
		return ErrNotConfigured
	}
	html, err := renderTemplate(testimonialTemplate, data)
	if err != nil {
		return fmt.Errorf("render testimonial template: %w", err)
	}
	text := fmt.Sprintf("%s (%d/5) wrote:\n\n%s\n\nIt is hidden until you approve it.", data.Name, data.Rating, data.Content)
	return s.SendHTMLEmail([]string{s.config.NotifyTo}, "New testimonial from "+data.Name, text, html)
}

func buildMessage(from string, to []string, subject, textBody, htmlBody string, now time.Time) []byte {
	boundary := fmt.Sprintf("portfolio-%d", now.UnixNano())

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", textBody)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const layoutStyle = `body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .quote { background: #f5f7fa; border-left: 3px solid #0066cc; padding: 12px 16px; white-space: pre-wrap; }
        .meta { color: #666; font-size: 14px; }`

var contactTemplate = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>` + layoutStyle + `</style>
</head>
<body>
    <div class="header"><h1>New contact message</h1></div>
    <p class="meta">From {{.Name}} &lt;{{.Email}}&gt;{{if .Subject}} about <strong>{{.Subject}}</strong>{{end}}</p>
    <div class="quote">{{.Message}}</div>
</body>
</html>`))

var testimonialTemplate = template.Must(template.New("testimonial").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>` + layoutStyle + `</style>
</head>
<body>
    <div class="header"><h1>New testimonial awaiting review</h1></div>
    <p class="meta">{{.Name}}{{if .Role}}, {{.Role}}{{end}}{{if .Company}} at {{.Company}}{{end}} rated {{.Rating}}/5</p>
    <div class="quote">{{.Content}}</div>
    <p>The testimonial stays hidden until you toggle its visibility in the admin panel.</p>
</body>
</html>`))
