package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLengthCountsRunes(t *testing.T) {
	assert.Equal(t, 0, TextLength("   "))
	assert.Equal(t, 5, TextLength("  demam  "))
	assert.Equal(t, 4, TextLength("nyér"))
}

func TestEnvelopeRequest(t *testing.T) {
	t.Run("explicit quick", func(t *testing.T) {
		env := ExaminationRequestEnvelope{Type: "quick", MainComplaint: "Demam tiga hari"}
		req, err := env.Request()
		require.NoError(t, err)
		_, ok := req.(*QuickRequest)
		assert.True(t, ok)
	})

	t.Run("quick without complaint is rejected", func(t *testing.T) {
		env := ExaminationRequestEnvelope{Type: "Quick"}
		_, err := env.Request()
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "mainComplaint", vErr.Field)
	})

	t.Run("inferred standard", func(t *testing.T) {
		env := ExaminationRequestEnvelope{Anamnesis: "Batuk dua minggu", PhysicalExam: "Ronki basah"}
		req, err := env.Request()
		require.NoError(t, err)
		std, ok := req.(*StandardRequest)
		require.True(t, ok)
		assert.Equal(t, "Ronki basah", std.ClinicalInput().PhysicalExam)
	})

	t.Run("comprehensive gets a non-nil differential list", func(t *testing.T) {
		env := ExaminationRequestEnvelope{Type: "comprehensive", Anamnesis: "a", PhysicalExam: "b"}
		req, err := env.Request()
		require.NoError(t, err)
		input := req.ClinicalInput()
		assert.NotNil(t, input.DifferentialDiagnoses)
		assert.Empty(t, input.DifferentialDiagnoses)
	})

	t.Run("unknown type", func(t *testing.T) {
		env := ExaminationRequestEnvelope{Type: "deep"}
		_, err := env.Request()
		assert.Error(t, err)
	})
}

func TestClinicalInputJSONKeepsEmptyDifferentials(t *testing.T) {
	var input ClinicalInput
	require.NoError(t, json.Unmarshal([]byte(`{"anamnesis":"x","differentialDiagnoses":[]}`), &input))
	assert.NotNil(t, input.DifferentialDiagnoses)

	var absent ClinicalInput
	require.NoError(t, json.Unmarshal([]byte(`{"anamnesis":"x"}`), &absent))
	assert.Nil(t, absent.DifferentialDiagnoses)
}

func TestClinicalContextUrgencyDefault(t *testing.T) {
	var nilCtx *ClinicalContext
	assert.Equal(t, UrgencyRoutine, nilCtx.UrgencyOrDefault())
	assert.Equal(t, UrgencyEmergency, (&ClinicalContext{Urgency: UrgencyEmergency}).UrgencyOrDefault())
}

func TestLogFieldsOmitClinicalText(t *testing.T) {
	input := ClinicalInput{Anamnesis: "Pasien rahasia"}
	for _, v := range input.LogFields() {
		assert.NotEqual(t, "Pasien rahasia", v)
	}
}
