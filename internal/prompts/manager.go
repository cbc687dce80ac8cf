// Package prompts holds the Indonesian prompt templates sent to the hosted model and
// the structured-output schemas that accompany them.
package prompts

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"
)

// Template names.
const (
	QuickExaminations         = "quick_supporting_examinations"
	StandardExaminations      = "standard_supporting_examinations"
	ComprehensiveExaminations = "comprehensive_supporting_examinations"
	DifferentialDiagnosis     = "differential_diagnosis"
	MedicalResume             = "medical_resume"
	PatientEducation          = "patient_education"
	TherapyAndActions         = "therapy_and_actions"
	Teleconsult               = "teleconsult"
)

// PromptInfo contains metadata about a prompt template
type PromptInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Tags        []string `json:"tags"`
}

// RenderedPrompt is a fully rendered prompt ready for the model client
type RenderedPrompt struct {
	Name           string         `json:"name"`
	SystemPrompt   string         `json:"system_prompt,omitempty"`
	Content        string         `json:"content"`
	ResponseSchema map[string]any `json:"response_schema,omitempty"`
	Temperature    float64        `json:"temperature"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// PromptTemplate is a registered template with its metadata.
type PromptTemplate struct {
	Info         PromptInfo
	SystemPrompt string
	Body         string
	Schema       func() map[string]any
	Temperature  float64

	parsed *template.Template
}

// PromptManager manages prompt templates
type PromptManager struct {
	logger    *logrus.Logger
	templates map[string]*PromptTemplate
	mutex     sync.RWMutex
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

// NewPromptManager creates a new prompt manager with no templates registered.
func NewPromptManager(logger *logrus.Logger) *PromptManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PromptManager{
		logger:    logger,
		templates: make(map[string]*PromptTemplate),
	}
}

// NewDefaultPromptManager creates a manager with every clinical template registered.
func NewDefaultPromptManager(logger *logrus.Logger) (*PromptManager, error) {
	pm := NewPromptManager(logger)
	for _, t := range defaultTemplates() {
		if err := pm.RegisterTemplate(t); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// RegisterTemplate parses and registers a template. Registering a name twice replaces
// the earlier template.
func (pm *PromptManager) RegisterTemplate(t *PromptTemplate) error {
	if t == nil || t.Info.Name == "" {
		return fmt.Errorf("template name is required")
	}
	parsed, err := template.New(t.Info.Name).Funcs(funcs).Option("missingkey=zero").Parse(t.Body)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", t.Info.Name, err)
	}
	t.parsed = parsed

	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	pm.templates[t.Info.Name] = t

	pm.logger.WithFields(logrus.Fields{
		"template": t.Info.Name,
		"version":  t.Info.Version,
	}).Debug("Registered prompt template")
	return nil
}

// Render executes the named template against data.
func (pm *PromptManager) Render(ctx context.Context, name string, data any) (*RenderedPrompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pm.mutex.RLock()
	t, ok := pm.templates[name]
	pm.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no template found for prompt: %s", name)
	}

	var buf bytes.Buffer
	if err := t.parsed.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render prompt %s: %w", name, err)
	}

	rendered := &RenderedPrompt{
		Name:         name,
		SystemPrompt: t.SystemPrompt,
		Content:      collapseBlankLines(buf.String()),
		Temperature:  t.Temperature,
		GeneratedAt:  time.Now().UTC(),
	}
	if t.Schema != nil {
		rendered.ResponseSchema = t.Schema()
	}

	pm.logger.WithFields(logrus.Fields{
		"name":         name,
		"content_size": len(rendered.Content),
	}).Debug("Rendered prompt")

	return rendered, nil
}

// ListPrompts returns the metadata of every registered template, sorted by name.
func (pm *PromptManager) ListPrompts() []PromptInfo {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	out := make([]PromptInfo, 0, len(pm.templates))
	for _, t := range pm.templates {
		out = append(out, t.Info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// collapseBlankLines trims trailing spaces and squeezes runs of empty lines left behind
// by conditional template sections.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
