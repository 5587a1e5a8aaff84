// Package mailer turns queued mail messages into SMTP messages.
package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/wneessen/go-mail"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

var ErrUnknownType = errors.New("unknown mail type")

var subjects = map[string]string{
	domain.MailAccountCreated:     "Back office - your account",
	domain.MailAccountCredentials: "Back office - sign-in details",
	domain.MailAccountDeactivated: "Back office - account deactivated",
	domain.MailAccountReactivated: "Back office - account reactivated",
}

// Composer renders one HTML template per mail type. Templates are named
// after the type, e.g. account_created.html.
type Composer struct {
	from      string
	templates *template.Template
}

func NewComposer(from, templateDir string) (*Composer, error) {
	tmpl, err := template.ParseGlob(filepath.Join(templateDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	for mailType := range subjects {
		if tmpl.Lookup(mailType+".html") == nil {
			return nil, fmt.Errorf("missing template for %s", mailType)
		}
	}

	return &Composer{from: from, templates: tmpl}, nil
}

// Compose decodes a queued message body. Errors are permanent: the same
// body will never compose.
func (c *Composer) Compose(body []byte) (*mail.Msg, error) {
	var queued struct {
		Type string         `json:"type"`
		To   string         `json:"to"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &queued); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	subject, ok := subjects[queued.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, queued.Type)
	}

	msg := mail.NewMsg()
	if err := msg.From(c.from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(queued.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)

	if err := msg.SetBodyHTMLTemplate(c.templates.Lookup(queued.Type+".html"), queued.Data); err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}

	return msg, nil
}
