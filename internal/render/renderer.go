package render

import (
	"fmt"
	"html/template"
	"strings"
)

// Suggestion is the serializable record crossing the dispatcher boundary.
type Suggestion struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	IsPrivate   bool   `json:"isPrivate,omitempty"`
}

// page is the data handed to the template. An empty Suggestions slice
// selects the plain "not found" variant.
type page struct {
	Suggestions []Suggestion
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <meta name="robots" content="noindex, nofollow">
  <title>tinypath</title>
  <link rel="preconnect" href="https://fonts.gstatic.com">
  <link href="https://fonts.googleapis.com/css2?family=Montserrat:wght@400;900&display=swap" rel="stylesheet">
  <link rel="stylesheet" href="https://unpkg.com/bulma@0.9.1/css/bulma.min.css">
</head>
<body>
  <section class="section">
    <div class="container">
{{- if .Suggestions}}
      <h1 class="title">Short url not found</h1>
      <p class="subtitle">Were you looking for one of these?</p>
      <ul>
{{- range .Suggestions}}
        <li><a href="{{.Destination}}">{{.Source}}</a></li>
{{- end}}
      </ul>
{{- else}}
      <h1 class="title">Short url not found</h1>
      <p class="subtitle">There is no redirect registered for this address.</p>
{{- end}}
    </div>
  </section>
</body>
</html>
`

// Renderer turns a suggestion list into a complete HTML document.
// Rendering is deterministic and performs no I/O.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the page template. Workers call this lazily so the
// parse cost is paid once per worker, on its first task.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the 404 page for a (possibly empty) suggestion list.
// Records without a destination cannot be linked to and are skipped.
func (r *Renderer) Render(suggestions []Suggestion) (string, error) {
	linkable := make([]Suggestion, 0, len(suggestions))

	for _, s := range suggestions {
		if s.Destination == "" {
			continue
		}

		linkable = append(linkable, s)
	}

	var buf strings.Builder
	if err := r.tmpl.Execute(&buf, page{Suggestions: linkable}); err != nil {
		return "", fmt.Errorf("execute page template: %w", err)
	}

	return buf.String(), nil
}
