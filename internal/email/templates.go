package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type passwordResetEmailData struct {
	baseEmailData
}

type hotLeadAlertData struct {
	baseEmailData
	AgentName string
	LeadName  string
	Score     string
	Tier      string
}

// NurtureData feeds the nurture step templates.
type NurtureData struct {
	LeadName  string
	AgentName string
	City      string
}

// nurtureTemplates maps a sequence step's template key to its file and
// subject line. Adding a step template means adding a file plus one entry
// here.
var nurtureTemplates = map[string]struct {
	file    string
	subject string
}{
	"nurture_intro":     {"nurture_intro.html", "Votre projet immobilier commence ici"},
	"nurture_selection": {"nurture_selection.html", "Une sélection de biens pensée pour vous"},
	"nurture_checkin":   {"nurture_checkin.html", "Où en est votre projet ?"},
}

// IsNurtureTemplate reports whether a template key is known.
func IsNurtureTemplate(key string) bool {
	_, ok := nurtureTemplates[key]
	return ok
}

// RenderNurtureStep renders a nurture template by key, returning the subject
// line and the HTML body.
func RenderNurtureStep(key string, data NurtureData) (subject, html string, err error) {
	entry, ok := nurtureTemplates[key]
	if !ok {
		return "", "", fmt.Errorf("unknown nurture template %q", key)
	}

	heading := "Bonjour"
	if data.LeadName != "" {
		heading = "Bonjour " + data.LeadName
	}

	content, err := renderEmailTemplate(entry.file, struct {
		baseEmailData
		NurtureData
	}{
		baseEmailData: baseEmailData{Title: entry.subject, Heading: heading},
		NurtureData:   data,
	})
	if err != nil {
		return "", "", err
	}
	return entry.subject, content, nil
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
