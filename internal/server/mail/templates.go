package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// bodies holds one parsed template set per message kind, each combining the
// shared layout with its own "content" block.
type bodies struct {
	pin   *template.Template
	reset *template.Template
}

func parseBodies() (*bodies, error) {
	pin, err := template.ParseFS(templateFS, "templates/layout.html", "templates/pin.html")
	if err != nil {
		return nil, fmt.Errorf("parse pin template: %w", err)
	}
	reset, err := template.ParseFS(templateFS, "templates/layout.html", "templates/reset.html")
	if err != nil {
		return nil, fmt.Errorf("parse reset template: %w", err)
	}
	return &bodies{pin: pin, reset: reset}, nil
}

type pinData struct {
	Name    string
	Pin     string
	Minutes int
	Year    int
}

type resetData struct {
	Name    string
	Link    string
	Minutes int
	Year    int
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render mail: %w", err)
	}
	return buf.String(), nil
}
