package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

var submittedTemplate = template.Must(template.ParseFS(templatesFS, "templates/submitted.html"))

type Field struct {
	Label string
	Value string
}

// Submission is what staff see about one submitted request.
type Submission struct {
	Title        string
	RequestID    string
	UserID       string
	UserName     string
	UserEmail    string
	Resubmission bool
	ClientIP     string
	Fields       []Field
	SubmittedAt  time.Time
}

func (s Submission) Subject() string {
	if s.Resubmission {
		return fmt.Sprintf("Updated %s request from %s", s.Title, s.UserName)
	}
	return fmt.Sprintf("New %s request from %s", s.Title, s.UserName)
}

// Render builds the staff email for a submission.
func Render(s Submission, to []string) (Message, error) {
	var html bytes.Buffer
	if err := submittedTemplate.Execute(&html, s); err != nil {
		return Message{}, fmt.Errorf("notification: render: %w", err)
	}
	return Message{
		To:      to,
		Subject: s.Subject(),
		HTML:    html.String(),
		Text:    s.text(),
	}, nil
}

func (s Submission) text() string {
	var b strings.Builder
	b.WriteString(s.Subject())
	b.WriteString("\n\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Value)
	}
	fmt.Fprintf(&b, "\nUser: %s (%s)\nRequest: %s\n", s.UserName, s.UserID, s.RequestID)
	if s.ClientIP != "" {
		fmt.Fprintf(&b, "Submitted from: %s\n", s.ClientIP)
	}
	return b.String()
}
