// Package mail renders and delivers the account confirmation email.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/Masterminds/sprig/v3"

	"github.com/Payphone-Digital/contacts-api/internal/dto"
)

//go:embed templates/*.html
var templateFS embed.FS

const confirmSubject = "Confirm your email"

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type Renderer struct {
	tmpl    *template.Template
	appName string
}

func NewRenderer(appName string) (*Renderer, error) {
	tmpl, err := template.New("confirm_email.html").
		Funcs(sprig.FuncMap()).
		ParseFS(templateFS, "templates/confirm_email.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, appName: appName}, nil
}

// Confirmation renders the confirmation email for job.
func (r *Renderer) Confirmation(job dto.ConfirmationMailJob) (Message, error) {
	data := map[string]interface{}{
		"Username":  job.Username,
		"Link":      ConfirmationLink(job.Host, job.Token),
		"ExpiresIn": "in 7 days",
		"AppName":   r.appName,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation email: %w", err)
	}

	return Message{
		To:      job.Email,
		Subject: confirmSubject,
		HTML:    buf.String(),
	}, nil
}

// ConfirmationLink points at the confirm endpoint under host.
func ConfirmationLink(host, token string) string {
	return strings.TrimSuffix(host, "/") + "/api/auth/confirmed_email/" + url.PathEscape(token)
}
