// Package promptkit loads the grader's judge prompts from an embedded
// filesystem and renders them with text/template, the Go-idiom analogue of
// the original jinja template pair.
package promptkit

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Context is the data bound into a judge prompt template.
type Context struct {
	// QuestionContext is either the question read so far (when the answer
	// line mentions reading context matters) or a reminder that the
	// question text is irrelevant to the comparison.
	QuestionContext string
	// Answer is the canonical answer line.
	Answer string
	// Response is the contestant's submitted answer.
	Response string
}

// Kit renders the judge prompt templates.
type Kit struct {
	prompt         *template.Template
	promptNoPrompt *template.Template
}

// New loads and parses the embedded judge prompt templates.
func New() (*Kit, error) {
	prompt, err := template.ParseFS(templatesFS, "templates/prompt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("promptkit: parse prompt.tmpl: %w", err)
	}
	promptNoPrompt, err := template.ParseFS(templatesFS, "templates/prompt_no_prompt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("promptkit: parse prompt_no_prompt.tmpl: %w", err)
	}
	return &Kit{prompt: prompt, promptNoPrompt: promptNoPrompt}, nil
}

// Render renders the judge prompt for ctx. When prompted is true, the
// contestant has already been given one follow-up chance and the rendered
// prompt excludes the option to prompt again.
func (k *Kit) Render(ctx Context, prompted bool) (string, error) {
	tmpl := k.prompt
	if prompted {
		tmpl = k.promptNoPrompt
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("promptkit: render template: %w", err)
	}
	return buf.String(), nil
}
