package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faskesq-clinical-assist/internal/domain"
)

func rec(name string, p domain.Priority, confidence float64) domain.ExaminationRecommendation {
	return domain.ExaminationRecommendation{
		Examination:           name,
		Category:              domain.CategoryLaboratory,
		Priority:              p,
		Confidence:            confidence,
		Reasoning:             "reason",
		DifferentialDiagnoses: []string{},
		Alternatives:          []string{"alt"},
		Contraindications:     []string{"none"},
	}
}

func sampleRecommendations() []domain.ExaminationRecommendation {
	return []domain.ExaminationRecommendation{
		rec("A", domain.PriorityHigh, 90),
		rec("B", domain.PriorityMedium, 85),
		rec("C", domain.PriorityHigh, 70),
		rec("D", domain.PriorityLow, 95),
		rec("E", domain.PriorityMedium, 55),
		rec("F", domain.PriorityMedium, 65),
		rec("G", domain.PriorityHigh, 62),
	}
}

func names(recs []domain.ExaminationRecommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Examination)
	}
	return out
}

func TestProgressiveDisclosure_Filter(t *testing.T) {
	pd := NewProgressiveDisclosure(nil)
	lowHint := fmt.Sprintf(disclosureHintLowConfidence, 3)

	tests := []struct {
		name         string
		completeness int
		wantNames    []string
		wantHidden   int
		wantWarning  string
		wantSuggest  []string
		wantShowMore bool
	}{
		{
			name:         "complete data shows the full cap",
			completeness: 95,
			wantNames:    []string{"A", "C", "G", "B", "F"},
			wantHidden:   0,
			wantSuggest:  []string{lowHint},
		},
		{
			name:         "good data caps at 80 percent",
			completeness: 75,
			wantNames:    []string{"A", "C", "G", "B"},
			wantHidden:   1,
			wantSuggest:  []string{lowHint},
			wantShowMore: true,
		},
		{
			name:         "limited data never offers show more",
			completeness: 60,
			wantNames:    []string{"A", "C", "G"},
			wantHidden:   2,
			wantWarning:  DisclosureWarnLimited,
			wantSuggest:  []string{DisclosureHintAnamnesis, DisclosureHintPhysicalExam, lowHint},
		},
		{
			name:         "very limited data",
			completeness: 40,
			wantNames:    []string{"A", "C"},
			wantHidden:   3,
			wantWarning:  DisclosureWarnVeryLimited,
			wantSuggest:  []string{DisclosureHintAnamnesis, DisclosureHintPhysicalExam, DisclosureHintDifferentials, lowHint},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pd.Filter(sampleRecommendations(), tt.completeness, DefaultDisclosureConfig())

			assert.Equal(t, tt.wantNames, names(result.Recommendations))
			assert.Equal(t, tt.wantHidden, result.HiddenRecommendations)
			if tt.wantWarning == "" {
				assert.Nil(t, result.ConfidenceWarning)
			} else {
				require.NotNil(t, result.ConfidenceWarning)
				assert.Equal(t, tt.wantWarning, *result.ConfidenceWarning)
			}
			assert.Equal(t, tt.wantSuggest, result.DataImprovementSuggestions)
			assert.Equal(t, tt.wantShowMore, result.CanShowMore)
		})
	}
}

func TestProgressiveDisclosure_NothingVisible(t *testing.T) {
	pd := NewProgressiveDisclosure(nil)
	recs := []domain.ExaminationRecommendation{rec("X", domain.PriorityHigh, 40)}

	result := pd.Filter(recs, 90, DefaultDisclosureConfig())
	assert.Empty(t, result.Recommendations)
	require.NotNil(t, result.ConfidenceWarning)
	assert.Equal(t, DisclosureWarnNoneVisible, *result.ConfidenceWarning)
	assert.False(t, result.CanShowMore)
}

func TestProgressiveDisclosure_DoesNotMutateInput(t *testing.T) {
	pd := NewProgressiveDisclosure(nil)
	recs := sampleRecommendations()
	cfg := DefaultDisclosureConfig()
	cfg.ShowAlternatives = false
	cfg.ShowContraindications = false

	result := pd.Filter(recs, 100, cfg)

	assert.Equal(t, sampleRecommendations(), recs)
	for _, r := range result.Recommendations {
		assert.Nil(t, r.Alternatives)
		assert.Nil(t, r.Contraindications)
		assert.Equal(t, "reason", r.Reasoning)
	}
}

func TestProgressiveDisclosure_LowPriorityThreshold(t *testing.T) {
	pd := NewProgressiveDisclosure(nil)
	cfg := DefaultDisclosureConfig()
	cfg.PriorityThreshold = domain.PriorityLow
	cfg.MaxRecommendations = 10

	result := pd.Filter(sampleRecommendations(), 100, cfg)
	assert.Equal(t, []string{"A", "C", "G", "B", "F", "D"}, names(result.Recommendations))
}

func TestProgressiveDisclosure_Leveled(t *testing.T) {
	pd := NewProgressiveDisclosure(nil)

	tests := []struct {
		level int
		want  []string
	}{
		{level: 1, want: []string{"A"}},
		{level: 0, want: []string{"A"}},
		{level: 2, want: []string{"A", "C"}},
		{level: 3, want: []string{"A", "B", "C", "F", "G"}},
		{level: 4, want: []string{"A", "B", "C", "E", "F", "G"}},
		{level: 99, want: []string{"A", "B", "C", "E", "F", "G"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("level %d", tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, names(pd.Leveled(sampleRecommendations(), tt.level)))
		})
	}
}

func TestAdjustMaxRecommendations(t *testing.T) {
	assert.Equal(t, 5, AdjustMaxRecommendations(5, 90))
	assert.Equal(t, 4, AdjustMaxRecommendations(5, 89))
	assert.Equal(t, 4, AdjustMaxRecommendations(5, 70))
	assert.Equal(t, 3, AdjustMaxRecommendations(5, 69))
	assert.Equal(t, 3, AdjustMaxRecommendations(5, 50))
	assert.Equal(t, 2, AdjustMaxRecommendations(5, 49))
	assert.Equal(t, 0, AdjustMaxRecommendations(2, 10))
}

func TestFormatConfidenceScore(t *testing.T) {
	assert.Equal(t, "Sangat Tinggi", FormatConfidenceScore(95))
	assert.Equal(t, "Tinggi", FormatConfidenceScore(80))
	assert.Equal(t, "Menengah", FormatConfidenceScore(75))
	assert.Equal(t, "Cukup", FormatConfidenceScore(60))
	assert.Equal(t, "Rendah", FormatConfidenceScore(59.9))

	assert.Equal(t, "text-green-600", ConfidenceColor(80))
	assert.Equal(t, "text-yellow-600", ConfidenceColor(60))
	assert.Equal(t, "text-red-600", ConfidenceColor(10))
}

func TestProgressiveDisclosure_FilterInvariants(t *testing.T) {
	filter := NewProgressiveDisclosure(nil)
	recs := sampleRecommendations()

	configs := []DisclosureConfig{
		DefaultDisclosureConfig(),
		{MinConfidence: 0, MaxRecommendations: 10, PriorityThreshold: domain.PriorityLow},
		{MinConfidence: 80, MaxRecommendations: 2, PriorityThreshold: domain.PriorityHigh},
		{MinConfidence: 50, MaxRecommendations: 0, PriorityThreshold: domain.PriorityMedium},
		{MinConfidence: 100, MaxRecommendations: 5, PriorityThreshold: domain.PriorityLow},
	}

	for i, cfg := range configs {
		passing := 0
		for _, r := range recs {
			if r.Confidence >= cfg.MinConfidence && r.Priority.Ordinal() <= cfg.PriorityThreshold.Ordinal() {
				passing++
			}
		}

		for completeness := 0; completeness <= 100; completeness++ {
			out := filter.Filter(recs, completeness, cfg)
			label := fmt.Sprintf("config %d, completeness %d", i, completeness)

			assert.Equal(t, passing, out.HiddenRecommendations+len(out.Recommendations), label)
			assert.LessOrEqual(t, len(out.Recommendations), AdjustMaxRecommendations(cfg.MaxRecommendations, completeness), label)
			if completeness < 70 {
				assert.False(t, out.CanShowMore, label)
				assert.NotNil(t, out.ConfidenceWarning, label)
			}
			if out.CanShowMore {
				assert.Positive(t, out.HiddenRecommendations, label)
			}
			for j := 1; j < len(out.Recommendations); j++ {
				prev, cur := out.Recommendations[j-1], out.Recommendations[j]
				assert.LessOrEqual(t, prev.Priority.Ordinal(), cur.Priority.Ordinal(), label)
			}
		}
	}
}
