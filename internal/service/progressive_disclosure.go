package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// Disclosure warnings and suggestions.
const (
	DisclosureWarnVeryLimited = "Data yang tersedia sangat terbatas. Rekomendasi bersifat preliminary dan harus dikonfirmasi dengan evaluasi klinis."
	DisclosureWarnLimited     = "Beberapa data penting masih kurang. Rekomendasi bersifat sementara dan dapat disempurnakan dengan data tambahan."
	DisclosureWarnNoneVisible = "Tidak ada rekomendasi yang memenuhi kriteria kepercayaan minimum. Pertimbangkan untuk menurunkan ambang kepercayaan atau menambah data klinis."

	DisclosureHintAnamnesis     = "Lengkapi anamnesis dengan detail gejala, durasi, dan faktor pemicu"
	DisclosureHintPhysicalExam  = "Sertakan temuan pemeriksaan fisik yang lebih lengkap"
	DisclosureHintDifferentials = "Pertimbangkan untuk menambahkan diagnosis banding untuk diferensiasi yang lebih baik"
	disclosureHintLowConfidence = "Beberapa rekomendasi memiliki kepercayaan rendah (%d rekomendasi). Pertimbangkan untuk menambahkan data klinis yang lebih spesifik."
)

// DisclosureConfig controls the progressive disclosure filter.
type DisclosureConfig struct {
	MinConfidence         float64         `json:"minConfidence" yaml:"minConfidence"`
	MaxRecommendations    int             `json:"maxRecommendations" yaml:"maxRecommendations"`
	PriorityThreshold     domain.Priority `json:"priorityThreshold" yaml:"priorityThreshold"`
	ShowAlternatives      bool            `json:"showAlternatives" yaml:"showAlternatives"`
	ShowContraindications bool            `json:"showContraindications" yaml:"showContraindications"`
}

// DefaultDisclosureConfig returns {60, 5, Medium} with alternatives and
// contraindications shown.
func DefaultDisclosureConfig() DisclosureConfig {
	return DisclosureConfig{
		MinConfidence:         60,
		MaxRecommendations:    5,
		PriorityThreshold:     domain.PriorityMedium,
		ShowAlternatives:      true,
		ShowContraindications: true,
	}
}

// DisclosureLevel is one step of the leveled disclosure table.
type DisclosureLevel struct {
	MinConfidence     float64         `yaml:"minConfidence"`
	PriorityThreshold domain.Priority `yaml:"priorityThreshold"`
	MaxCount          int             `yaml:"maxCount"`
}

// DefaultDisclosureLevels returns the four disclosure steps.
func DefaultDisclosureLevels() []DisclosureLevel {
	return []DisclosureLevel{
		{MinConfidence: 80, PriorityThreshold: domain.PriorityHigh, MaxCount: 3},
		{MinConfidence: 70, PriorityThreshold: domain.PriorityHigh, MaxCount: 5},
		{MinConfidence: 60, PriorityThreshold: domain.PriorityMedium, MaxCount: 7},
		{MinConfidence: 50, PriorityThreshold: domain.PriorityMedium, MaxCount: 10},
	}
}

// ProgressiveDisclosure selects, orders and caps recommendations for display. It never
// modifies the recommendations themselves beyond hiding optional fields.
type ProgressiveDisclosure struct {
	levels []DisclosureLevel
}

// NewProgressiveDisclosure creates a filter over the given levels. Empty levels use the
// default table.
func NewProgressiveDisclosure(levels []DisclosureLevel) *ProgressiveDisclosure {
	if len(levels) == 0 {
		levels = DefaultDisclosureLevels()
	}
	return &ProgressiveDisclosure{levels: levels}
}

// Filter applies the confidence and priority filter, sorts by (priority, confidence
// desc) and truncates to a cap that shrinks with data completeness.
func (p *ProgressiveDisclosure) Filter(recs []domain.ExaminationRecommendation, completeness int, cfg DisclosureConfig) *domain.ProgressiveRecommendation {
	threshold := cfg.PriorityThreshold.Ordinal()

	filtered := make([]domain.ExaminationRecommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.Confidence >= cfg.MinConfidence && rec.Priority.Ordinal() <= threshold {
			filtered = append(filtered, rec)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		oi, oj := filtered[i].Priority.Ordinal(), filtered[j].Priority.Ordinal()
		if oi != oj {
			return oi < oj
		}
		return filtered[i].Confidence > filtered[j].Confidence
	})

	limit := AdjustMaxRecommendations(cfg.MaxRecommendations, completeness)
	if limit > len(filtered) {
		limit = len(filtered)
	}
	if limit < 0 {
		limit = 0
	}

	visible := make([]domain.ExaminationRecommendation, limit)
	copy(visible, filtered[:limit])
	for i := range visible {
		if !cfg.ShowAlternatives {
			visible[i].Alternatives = nil
		}
		if !cfg.ShowContraindications {
			visible[i].Contraindications = nil
		}
	}

	hidden := len(filtered) - len(visible)
	return &domain.ProgressiveRecommendation{
		Recommendations:            visible,
		HiddenRecommendations:      hidden,
		ConfidenceWarning:          confidenceWarning(completeness, len(visible)),
		DataImprovementSuggestions: disclosureSuggestions(completeness, recs),
		CanShowMore:                hidden > 0 && completeness >= 70,
	}
}

// Leveled returns the recommendations admitted at currentLevel (1-based, clamped into
// the table), preserving input order.
func (p *ProgressiveDisclosure) Leveled(recs []domain.ExaminationRecommendation, currentLevel int) []domain.ExaminationRecommendation {
	idx := currentLevel - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(p.levels)-1 {
		idx = len(p.levels) - 1
	}
	level := p.levels[idx]
	threshold := level.PriorityThreshold.Ordinal()

	out := make([]domain.ExaminationRecommendation, 0, level.MaxCount)
	for _, rec := range recs {
		if len(out) >= level.MaxCount {
			break
		}
		if rec.Confidence >= level.MinConfidence && rec.Priority.Ordinal() <= threshold {
			out = append(out, rec)
		}
	}
	return out
}

// AdjustMaxRecommendations shrinks max as completeness drops.
func AdjustMaxRecommendations(max, completeness int) int {
	switch {
	case completeness >= 90:
		return max
	case completeness >= 70:
		return int(math.Floor(float64(max) * 0.8))
	case completeness >= 50:
		return int(math.Floor(float64(max) * 0.6))
	default:
		return int(math.Floor(float64(max) * 0.4))
	}
}

func confidenceWarning(completeness, visible int) *string {
	var msg string
	switch {
	case completeness < 50:
		msg = DisclosureWarnVeryLimited
	case completeness < 70:
		msg = DisclosureWarnLimited
	case visible == 0:
		msg = DisclosureWarnNoneVisible
	default:
		return nil
	}
	return &msg
}

// disclosureSuggestions counts low-confidence items over the unfiltered input.
func disclosureSuggestions(completeness int, recs []domain.ExaminationRecommendation) []string {
	suggestions := []string{}
	if completeness < 70 {
		suggestions = append(suggestions, DisclosureHintAnamnesis, DisclosureHintPhysicalExam)
	}
	if completeness < 50 {
		suggestions = append(suggestions, DisclosureHintDifferentials)
	}

	low := 0
	for _, rec := range recs {
		if rec.Confidence < 70 {
			low++
		}
	}
	if low > 0 {
		suggestions = append(suggestions, fmt.Sprintf(disclosureHintLowConfidence, low))
	}
	return suggestions
}

// FormatConfidenceScore renders a confidence value as an Indonesian label.
func FormatConfidenceScore(score float64) string {
	switch {
	case score >= 90:
		return "Sangat Tinggi"
	case score >= 80:
		return "Tinggi"
	case score >= 70:
		return "Menengah"
	case score >= 60:
		return "Cukup"
	default:
		return "Rendah"
	}
}

// ConfidenceColor returns the CSS class used by the clinic UI for a confidence value.
func ConfidenceColor(score float64) string {
	switch {
	case score >= 80:
		return "text-green-600"
	case score >= 60:
		return "text-yellow-600"
	default:
		return "text-red-600"
	}
}
