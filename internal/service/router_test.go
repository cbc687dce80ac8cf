package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/prompts"
)

const twoRecommendations = `{
  "recommendations": [
    {"examination": "Darah lengkap", "category": "Laboratory", "priority": "High", "confidence": 90,
     "reasoning": "Menilai leukositosis", "differentialDiagnoses": ["Demam tifoid"]},
    {"examination": "Foto toraks", "category": "Imaging", "priority": "urgent", "confidence": 140,
     "reasoning": "Menyingkirkan pneumonia"}
  ],
  "dataCompleteness": 5,
  "recommendationMode": "Comprehensive"
}`

func newTestRouter(t *testing.T, model *stubModel, records domain.RecommendationRepository) *RecommendationRouter {
	t.Helper()
	pm, err := prompts.NewDefaultPromptManager(testLogger())
	require.NoError(t, err)
	return NewRecommendationRouter(NewSmartValidator(DefaultScoringRules(), testLogger()), pm, model, records, testLogger())
}

func TestRecommendationRouter_SelectsTemplate(t *testing.T) {
	anamnesis := longText("Demam naik turun sejak lima hari. Mual dan nyeri perut", 60)
	physical := longText("Lidah kotor, nyeri tekan epigastrium", 60)

	tests := []struct {
		name         string
		req          domain.ExaminationRequest
		wantTemplate string
		wantMode     domain.RecommendationMode
	}{
		{
			name:         "quick variant",
			req:          &domain.QuickRequest{MainComplaint: "Demam tinggi sejak tiga hari", Diagnosis: "Demam tifoid"},
			wantTemplate: prompts.QuickExaminations,
			wantMode:     domain.ModeQuick,
		},
		{
			name:         "standard variant scoring as quick",
			req:          &domain.StandardRequest{Anamnesis: anamnesis, PhysicalExam: physical},
			wantTemplate: prompts.QuickExaminations,
			wantMode:     domain.ModeQuick,
		},
		{
			name:         "standard variant scoring as standard",
			req:          &domain.StandardRequest{MainComplaint: "Demam lima hari", Anamnesis: anamnesis, PhysicalExam: physical},
			wantTemplate: prompts.StandardExaminations,
			wantMode:     domain.ModeStandard,
		},
		{
			name: "standard variant scoring as comprehensive",
			req: &domain.StandardRequest{
				MainComplaint: "Demam lima hari", Diagnosis: "Demam tifoid",
				Anamnesis: anamnesis, PhysicalExam: physical,
			},
			wantTemplate: prompts.ComprehensiveExaminations,
			wantMode:     domain.ModeComprehensive,
		},
		{
			name: "comprehensive variant scoring as standard",
			req: &domain.ComprehensiveRequest{
				MainComplaint: "Demam lima hari", Anamnesis: anamnesis, PhysicalExam: physical,
				DifferentialDiagnoses: []domain.DifferentialDiagnosis{},
			},
			wantTemplate: prompts.StandardExaminations,
			wantMode:     domain.ModeStandard,
		},
		{
			name: "comprehensive variant with full data",
			req: &domain.ComprehensiveRequest{
				MainComplaint: "Demam lima hari", Diagnosis: "Demam tifoid",
				Anamnesis: anamnesis, PhysicalExam: physical,
				DifferentialDiagnoses: usableDifferentials(3),
				SupportingFindings:    "Widal positif 1/320",
			},
			wantTemplate: prompts.ComprehensiveExaminations,
			wantMode:     domain.ModeComprehensive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &stubModel{text: twoRecommendations}
			router := newTestRouter(t, model, nil)

			out, err := router.Recommend(context.Background(), tt.req)
			require.NoError(t, err)

			require.Equal(t, 1, model.calls())
			assert.Equal(t, tt.wantTemplate, model.last().Name)
			assert.Equal(t, tt.wantMode, out.RecommendationMode)
			assert.NotNil(t, model.last().ResponseSchema)
		})
	}
}

func TestRecommendationRouter_DerivesComplaintForQuickTemplate(t *testing.T) {
	model := &stubModel{text: twoRecommendations}
	router := newTestRouter(t, model, nil)

	req := &domain.StandardRequest{
		Anamnesis:    longText("Nyeri ulu hati sejak dua hari. Memberat setelah makan", 60),
		PhysicalExam: longText("Nyeri tekan epigastrium tanpa defans", 60),
	}
	_, err := router.Recommend(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, prompts.QuickExaminations, model.last().Name)
	assert.Contains(t, model.last().Prompt, "Keluhan Utama: Nyeri ulu hati sejak dua hari")
}

func TestRecommendationRouter_OverwritesMetadata(t *testing.T) {
	model := &stubModel{text: twoRecommendations}
	router := newTestRouter(t, model, nil)

	out, err := router.Recommend(context.Background(), &domain.QuickRequest{
		MainComplaint: "Demam tinggi sejak tiga hari",
		Diagnosis:     "Demam tifoid",
	})
	require.NoError(t, err)

	assert.Equal(t, 55, out.DataCompleteness)
	assert.Equal(t, domain.ModeQuick, out.RecommendationMode)
	assert.Equal(t, domain.ConfidenceHigh, out.ConfidenceLevel)
	assert.Equal(t, []string{domain.FieldAnamnesis, domain.FieldPhysicalExam, domain.FieldDifferentialDiagnoses}, out.MissingData)
	assert.Equal(t, WarnPreliminary, out.ClinicalNotes)

	require.Len(t, out.Recommendations, 2)
	second := out.Recommendations[1]
	assert.Equal(t, domain.CategoryOther, second.Category)
	assert.Equal(t, 100.0, second.Confidence)
	assert.Equal(t, domain.PriorityHigh, second.Priority)
	assert.Equal(t, []string{}, second.DifferentialDiagnoses)
}

func TestRecommendationRouter_InsufficientData(t *testing.T) {
	model := &stubModel{text: twoRecommendations}
	router := newTestRouter(t, model, nil)

	_, err := router.Recommend(context.Background(), &domain.QuickRequest{MainComplaint: "Batuk"})
	require.Error(t, err)

	var insufficient *domain.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 15, insufficient.Score)
	assert.Contains(t, err.Error(), "Skor: 15/100.")
	assert.Contains(t, err.Error(), WarnVeryLimited)
	assert.Equal(t, 0, model.calls(), "model must not be called below the floor")
}

func TestRecommendationRouter_UpstreamFailures(t *testing.T) {
	req := &domain.QuickRequest{MainComplaint: "Demam tinggi sejak tiga hari", Diagnosis: "Demam tifoid"}

	t.Run("model error", func(t *testing.T) {
		router := newTestRouter(t, &stubModel{err: errors.New("deadline exceeded")}, nil)

		_, err := router.Recommend(context.Background(), req)
		var upstream *domain.UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, "Gagal menghasilkan rekomendasi: deadline exceeded", err.Error())
	})

	t.Run("malformed response", func(t *testing.T) {
		router := newTestRouter(t, &stubModel{text: "maaf, saya tidak bisa"}, nil)

		_, err := router.Recommend(context.Background(), req)
		var upstream *domain.UpstreamError
		assert.True(t, errors.As(err, &upstream))
	})
}

func TestRecommendationRouter_SavesAuditRecord(t *testing.T) {
	records := newMemoryRecords()
	router := newTestRouter(t, &stubModel{text: twoRecommendations}, records)

	ctx := WithRequestID(context.Background(), "req-123")
	out, err := router.Recommend(ctx, &domain.QuickRequest{MainComplaint: "Demam tinggi sejak tiga hari", Diagnosis: "Demam tifoid"})
	require.NoError(t, err)
	require.NotEmpty(t, out.RecordID)

	record, err := records.GetRecommendation(ctx, out.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "req-123", record.RequestID)
	assert.Equal(t, "quick", record.RequestType)
	assert.Equal(t, prompts.QuickExaminations, record.Template)
	assert.Equal(t, 55, record.Score)
	assert.Equal(t, 2, record.RecommendationCount)
	assert.Equal(t, "stub/model", record.Model)
}

func TestRecommendationRouter_AuditFailureDoesNotFailRequest(t *testing.T) {
	records := newMemoryRecords()
	records.err = errors.New("connection refused")
	router := newTestRouter(t, &stubModel{text: twoRecommendations}, records)

	out, err := router.Recommend(context.Background(), &domain.QuickRequest{MainComplaint: "Demam tinggi sejak tiga hari", Diagnosis: "Demam tifoid"})
	require.NoError(t, err)
	assert.Empty(t, out.RecordID)
}

func TestDeriveMainComplaint(t *testing.T) {
	assert.Equal(t, "Nyeri kepala", DeriveMainComplaint("  Nyeri kepala. Sejak kemarin."))
	assert.Equal(t, "Batuk", DeriveMainComplaint("Batuk\npilek"))
	assert.Len(t, []rune(DeriveMainComplaint(strings.Repeat("nyeri", 100))), 200)
}
