package prompts

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faskesq-clinical-assist/internal/domain"
)

func newTestManager(t *testing.T) *PromptManager {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	pm, err := NewDefaultPromptManager(logger)
	require.NoError(t, err)
	return pm
}

func TestPromptManager_ListPrompts(t *testing.T) {
	pm := newTestManager(t)

	prompts := pm.ListPrompts()
	require.Len(t, prompts, 8)
	for i := 1; i < len(prompts); i++ {
		assert.Less(t, prompts[i-1].Name, prompts[i].Name)
	}
}

func TestPromptManager_RenderQuick(t *testing.T) {
	pm := newTestManager(t)
	age := 34

	rendered, err := pm.Render(context.Background(), QuickExaminations, &domain.QuickRequest{
		MainComplaint: "Demam tinggi sejak tiga hari",
		Context:       &domain.ClinicalContext{PatientAge: &age, PatientGender: domain.GenderFemale},
	})
	require.NoError(t, err)

	assert.Contains(t, rendered.Content, "Keluhan Utama: Demam tinggi sejak tiga hari")
	assert.Contains(t, rendered.Content, "Usia: 34 tahun")
	assert.Contains(t, rendered.Content, "Jenis Kelamin: Female")
	assert.NotContains(t, rendered.Content, "Diagnosis yang Dicurigai")
	assert.NotContains(t, rendered.Content, "Urgensi")
	assert.Equal(t, "OBJECT", rendered.ResponseSchema["type"])
	assert.NotEmpty(t, rendered.SystemPrompt)
}

func TestPromptManager_RenderComprehensiveWithoutDifferentials(t *testing.T) {
	pm := newTestManager(t)

	rendered, err := pm.Render(context.Background(), ComprehensiveExaminations, &domain.ComprehensiveRequest{
		Anamnesis:             "Nyeri dada kiri menjalar ke lengan sejak pagi",
		PhysicalExam:          "TD 150/90, diaforesis",
		DifferentialDiagnoses: []domain.DifferentialDiagnosis{},
	})
	require.NoError(t, err)
	assert.Contains(t, rendered.Content, "Belum ada diagnosis banding.")
	assert.NotContains(t, rendered.Content, "Konteks Klinis")
}

func TestPromptManager_RenderStandardDifferentials(t *testing.T) {
	pm := newTestManager(t)

	rendered, err := pm.Render(context.Background(), StandardExaminations, &domain.StandardRequest{
		Anamnesis:    "Batuk berdahak dua minggu",
		PhysicalExam: "Ronki basah kasar di paru kanan",
		DifferentialDiagnoses: []domain.DifferentialDiagnosis{
			{Diagnosis: "Pneumonia", Confidence: 75, Priority: domain.PriorityMedium, Reasoning: "Demam dan ronki"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, rendered.Content, "- Pneumonia (Keyakinan: 75%, Prioritas: Medium)")
}

func TestPromptManager_UnknownTemplate(t *testing.T) {
	pm := newTestManager(t)

	_, err := pm.Render(context.Background(), "nope", nil)
	assert.Error(t, err)
}

func TestPromptManager_RegisterInvalidTemplate(t *testing.T) {
	pm := NewPromptManager(nil)

	err := pm.RegisterTemplate(&PromptTemplate{Info: PromptInfo{Name: "broken"}, Body: "{{.Foo"})
	assert.Error(t, err)

	err = pm.RegisterTemplate(&PromptTemplate{})
	assert.Error(t, err)
}

func TestPromptManager_CancelledContext(t *testing.T) {
	pm := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pm.Render(ctx, MedicalResume, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollapseBlankLines(t *testing.T) {
	in := "a  \n\n\n\nb\n \n c\n"
	assert.Equal(t, "a\n\nb\n\n c", collapseBlankLines(in))
}
