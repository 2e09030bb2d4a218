package notification

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

type templateFile struct {
	Subject   string            `yaml:"subject"`
	Fallback  string            `yaml:"fallback"`
	Templates map[string]string `yaml:"templates"`
}

// Composer renders stage-transition emails from templates.
type Composer struct {
	company   string
	subject   string
	fallback  string
	templates map[string]string
}

// NewComposer loads the built-in per-stage templates.
func NewComposer(companyName string) (*Composer, error) {
	return NewComposerFromYAML(companyName, defaultTemplates)
}

// NewComposerFromYAML builds a Composer from a template document with the
// same layout as the embedded one.
func NewComposerFromYAML(companyName string, doc []byte) (*Composer, error) {
	var f templateFile
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("parse notification templates: %w", err)
	}
	if f.Subject == "" {
		return nil, fmt.Errorf("parse notification templates: subject is required")
	}
	if f.Fallback != "" {
		if _, ok := f.Templates[f.Fallback]; !ok {
			return nil, fmt.Errorf("parse notification templates: fallback %q has no template", f.Fallback)
		}
	}

	return &Composer{
		company:   companyName,
		subject:   f.Subject,
		fallback:  f.Fallback,
		templates: f.Templates,
	}, nil
}

// DefaultTemplate returns the built-in template for a stage name, or "" when
// the stage has none.
func (c *Composer) DefaultTemplate(stageName string) string {
	return c.templates[stageName]
}

// Transition describes a candidate moving between two stages.
type Transition struct {
	CandidateName  string
	CandidateEmail string
	FromStage      string
	ToStage        string
	// Template overrides the stage default when set.
	Template string
}

// StageTransition renders the message sent when a candidate changes stage.
func (c *Composer) StageTransition(t Transition) Message {
	body := t.Template
	if body == "" {
		body = c.templates[t.ToStage]
	}
	if body == "" {
		body = c.templates[c.fallback]
	}

	r := strings.NewReplacer(
		"{{candidateName}}", t.CandidateName,
		"{{fromStage}}", t.FromStage,
		"{{toStage}}", t.ToStage,
		"{{companyName}}", c.company,
	)

	return Message{
		To:       t.CandidateEmail,
		Subject:  r.Replace(c.subject),
		HTMLBody: r.Replace(body),
	}
}
