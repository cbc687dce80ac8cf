package service

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// Rules bundles every constant table the engine uses. Tables missing from a rules file
// keep their defaults.
type Rules struct {
	Scoring          ScoringRules               `yaml:"scoring"`
	Keywords         KeywordTable               `yaml:"keywords"`
	DisclosureLevels []DisclosureLevel          `yaml:"disclosureLevels"`
	Disclosure       DisclosureConfig           `yaml:"disclosure"`
	Diagnosis        DiagnosisIntegrationConfig `yaml:"diagnosis"`
}

// DefaultRules returns the built-in tables.
func DefaultRules() *Rules {
	return &Rules{
		Scoring:          DefaultScoringRules(),
		Keywords:         DefaultKeywordTable(),
		DisclosureLevels: DefaultDisclosureLevels(),
		Disclosure:       DefaultDisclosureConfig(),
		Diagnosis:        DefaultDiagnosisIntegrationConfig(),
	}
}

// LoadRules reads a YAML rules file over the defaults. An empty path returns the
// defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML over the defaults and validates the result.
func ParseRules(data []byte) (*Rules, error) {
	rules := DefaultRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate rejects tables the engine cannot work with and normalises priority casing.
func (r *Rules) Validate() error {
	w := r.Scoring.Weights
	for name, v := range map[string]float64{
		"mainComplaint":         w.MainComplaint,
		"diagnosis":             w.Diagnosis,
		"anamnesis":             w.Anamnesis,
		"physicalExam":          w.PhysicalExam,
		"differentialDiagnoses": w.DifferentialDiagnoses,
	} {
		if v < 0 {
			return fmt.Errorf("scoring weight %s must not be negative", name)
		}
	}
	if total := w.MainComplaint + w.Diagnosis + w.Anamnesis + w.PhysicalExam + w.DifferentialDiagnoses; total > 100 {
		return fmt.Errorf("scoring weights sum to %v, must not exceed 100", total)
	}

	for mode, min := range r.Scoring.MinScores {
		if !mode.IsValid() {
			return fmt.Errorf("unknown recommendation mode %q in minScores", mode)
		}
		if min < 0 || min > 100 {
			return fmt.Errorf("minimum score for %s must be within 0-100", mode)
		}
	}

	for i, k := range r.Keywords {
		if k.Keyword == "" || k.Diagnosis == "" {
			return fmt.Errorf("keyword rule %d needs both keyword and diagnosis", i+1)
		}
		if k.Confidence < 0 || k.Confidence > 100 {
			return fmt.Errorf("keyword rule %q confidence must be within 0-100", k.Keyword)
		}
	}

	if len(r.DisclosureLevels) == 0 {
		return fmt.Errorf("at least one disclosure level is required")
	}
	for i, l := range r.DisclosureLevels {
		p, err := domain.ParsePriority(string(l.PriorityThreshold))
		if err != nil {
			return fmt.Errorf("disclosure level %d: %w", i+1, err)
		}
		r.DisclosureLevels[i].PriorityThreshold = p
		if l.MaxCount <= 0 {
			return fmt.Errorf("disclosure level %d: maxCount must be positive", i+1)
		}
	}

	threshold, err := domain.ParsePriority(string(r.Disclosure.PriorityThreshold))
	if err != nil {
		return fmt.Errorf("disclosure priorityThreshold: %w", err)
	}
	r.Disclosure.PriorityThreshold = threshold
	if r.Disclosure.MaxRecommendations < 0 {
		return fmt.Errorf("disclosure maxRecommendations must not be negative")
	}
	return nil
}

// Engine holds the pure components built from a Rules set.
type Engine struct {
	Validator  *SmartValidator
	Fallback   *FallbackDiagnoser
	Disclosure *ProgressiveDisclosure
	Rules      *Rules
}

// NewEngine wires the validator, fallback diagnoser and disclosure filter over rules.
// A nil rules set uses the defaults.
func NewEngine(rules *Rules, logger *logrus.Logger) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{
		Validator:  NewSmartValidator(rules.Scoring, logger),
		Fallback:   NewFallbackDiagnoser(rules.Keywords),
		Disclosure: NewProgressiveDisclosure(rules.DisclosureLevels),
		Rules:      rules,
	}
}
