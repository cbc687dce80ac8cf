package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/setup"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, `{"mainComplaint": "Demam tinggi sejak tiga hari", "diagnosis": "Demam tifoid"}`, "validate")
	require.NoError(t, err)

	var result struct {
		Score              int                       `json:"score"`
		RecommendationMode domain.RecommendationMode `json:"recommendationMode"`
		Suggestions        []string                  `json:"dataImprovementSuggestions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 55, result.Score)
	assert.Equal(t, domain.ModeQuick, result.RecommendationMode)
	assert.NotEmpty(t, result.Suggestions)
}

func TestValidateCommand_MalformedInput(t *testing.T) {
	_, err := execute(t, `{not json`, "validate")
	assert.Error(t, err)
}

func TestFallbackCommand(t *testing.T) {
	out, err := execute(t, "", "fallback", "--anamnesis", "Sesak napas dan demam")
	require.NoError(t, err)

	var diagnoses []domain.DifferentialDiagnosis
	require.NoError(t, json.Unmarshal([]byte(out), &diagnoses))
	require.Len(t, diagnoses, 2)
	assert.Equal(t, "Fever - Infection", diagnoses[0].Diagnosis)
	assert.Equal(t, "Dyspnea - Respiratory Disorder", diagnoses[1].Diagnosis)
}

func TestFallbackCommand_RulesFile(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`keywords:
  - keyword: batuk
    diagnosis: Cough - Respiratory Infection
    confidence: 72
`), 0644))

	out, err := execute(t, "", "--rules", rules, "fallback", "--anamnesis", "batuk tiga minggu")
	require.NoError(t, err)
	assert.Contains(t, out, "Cough - Respiratory Infection")
}

func TestFilterCommand(t *testing.T) {
	input := `[
  {"examination": "Tes Widal", "category": "Laboratory", "priority": "High", "confidence": 85},
  {"examination": "Darah lengkap", "category": "Laboratory", "priority": "Medium", "confidence": 70},
  {"examination": "Foto toraks", "category": "Radiology", "priority": "Low", "confidence": 45}
]`

	out, err := execute(t, input, "filter", "--completeness", "95")
	require.NoError(t, err)
	var progressive domain.ProgressiveRecommendation
	require.NoError(t, json.Unmarshal([]byte(out), &progressive))
	assert.Len(t, progressive.Recommendations, 2)

	out, err = execute(t, input, "filter", "--level", "1")
	require.NoError(t, err)
	var leveled []domain.ExaminationRecommendation
	require.NoError(t, json.Unmarshal([]byte(out), &leveled))
	require.Len(t, leveled, 1)
	assert.Equal(t, "Tes Widal", leveled[0].Examination)
}

func TestMigrateCommand_UnknownDirection(t *testing.T) {
	_, err := execute(t, "", "migrate")
	assert.Error(t, err)
}

func TestFeedbackCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "feedback.db")
	exports := filepath.Join(dir, "exports")

	out, err := execute(t, "", "feedback", "export", "--db", db, "--dir", exports)
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.FileExists(t, path)

	out, err = execute(t, "", "feedback", "import", "--db", db, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0, skipped 0.")
}

func TestSetupCommands(t *testing.T) {
	clientConfig := filepath.Join(t.TempDir(), "claude_desktop_config.json")
	binary := filepath.Join(t.TempDir(), setup.BinaryName)
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	out, err := execute(t, "", "setup", "register", "--client-config", clientConfig, "--binary", binary, "--provider", "gemini")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered "+binary)

	out, err = execute(t, "", "setup", "status", "--client-config", clientConfig)
	require.NoError(t, err)
	var status setup.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Registered)

	out, err = execute(t, "", "setup", "unregister", "--client-config", clientConfig)
	require.NoError(t, err)
	assert.Contains(t, out, "Server entry removed.")
}
