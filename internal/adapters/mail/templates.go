package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/target/mmk-accounts/internal/ports"
)

//go:embed templates/*.html
var templateFS embed.FS

var _ ports.EmailRenderer = (*TemplateRenderer)(nil)

// subjects maps template names to subject lines.
var subjects = map[string]string{
	"confirm-email":                   "Please confirm your email address",
	"recover-email":                   "Reset your password",
	"confirm-email-change-email":      "Please confirm your new email address",
	"email-change-notification-email": "Your email address is being changed",
}

// TemplateRenderer renders the embedded account emails.
type TemplateRenderer struct {
	tmpl    *template.Template
	appName string
}

// NewTemplateRenderer parses the embedded templates. appName is available to templates as .AppName.
func NewTemplateRenderer(appName string) (*TemplateRenderer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	for name := range subjects {
		if tmpl.Lookup(name+".html") == nil {
			return nil, fmt.Errorf("email template %q missing", name)
		}
	}
	return &TemplateRenderer{tmpl: tmpl, appName: appName}, nil
}

// Render executes the named template and derives the plain-text part from the HTML.
func (r *TemplateRenderer) Render(name, to string, data any) (ports.Message, error) {
	subject, ok := subjects[name]
	if !ok {
		return ports.Message{}, fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	view := struct {
		AppName string
		Subject string
		To      string
		Data    any
	}{r.appName, subject, to, data}
	if err := r.tmpl.ExecuteTemplate(&buf, name+".html", view); err != nil {
		return ports.Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	body := buf.String()
	text, err := HTMLToText(body)
	if err != nil {
		return ports.Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if r.appName != "" {
		subject = strings.TrimSpace(r.appName) + ": " + subject
	}
	return ports.Message{To: to, Subject: subject, HTML: body, Text: text}, nil
}
