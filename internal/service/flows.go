package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/prompts"
	"github.com/faskesq-clinical-assist/pkg/external"
)

// DifferentialDiagnosisInput is the input of the differential diagnosis flow.
type DifferentialDiagnosisInput struct {
	Anamnesis    string `json:"anamnesis" binding:"required"`
	PhysicalExam string `json:"physicalExam,omitempty"`
}

// DifferentialDiagnosisOutput lists model-suggested differentials, most confident first.
type DifferentialDiagnosisOutput struct {
	Diagnoses []domain.DifferentialDiagnosis `json:"diagnoses"`
}

// MedicalResumeInput is the full encounter summarised into a resume.
type MedicalResumeInput struct {
	Anamnesis               string `json:"anamnesis" binding:"required"`
	PhysicalExamination     string `json:"physicalExamination"`
	SupportingExaminations  string `json:"supportingExaminations"`
	Diagnosis               string `json:"diagnosis" binding:"required"`
	PrescriptionsAndActions string `json:"prescriptionsAndActions"`
}

// MedicalResumeOutput is the narrative resume.
type MedicalResumeOutput struct {
	MedicalResume string `json:"medicalResume"`
}

// PatientEducationInput is the input of the patient education flow.
type PatientEducationInput struct {
	Diagnosis    string `json:"diagnosis" binding:"required"`
	Anamnesis    string `json:"anamnesis,omitempty"`
	PhysicalExam string `json:"physicalExam,omitempty"`
}

// PatientEducationOutput is patient-facing education material.
type PatientEducationOutput struct {
	DiseaseExplanation string `json:"diseaseExplanation"`
	TreatmentPlan      string `json:"treatmentPlan"`
	HomeCareAdvice     string `json:"homeCareAdvice"`
	WarningSigns       string `json:"warningSigns"`
}

// TherapyInput is the input of the therapy and actions flow.
type TherapyInput struct {
	Diagnosis    string `json:"diagnosis" binding:"required"`
	Anamnesis    string `json:"anamnesis,omitempty"`
	PhysicalExam string `json:"physicalExam,omitempty"`
}

// Medication is a suggested prescription.
type Medication struct {
	MedicationName string `json:"medicationName"`
	Dosage         string `json:"dosage"`
	Reasoning      string `json:"reasoning"`
}

// MedicalAction is a suggested procedure or action.
type MedicalAction struct {
	ActionName string `json:"actionName"`
	Reasoning  string `json:"reasoning"`
}

// TherapyOutput holds suggested medications and actions.
type TherapyOutput struct {
	Medications []Medication    `json:"medications"`
	Actions     []MedicalAction `json:"actions"`
}

// TeleconsultInput is one turn of a teleconsultation chat. PatientDOB is YYYY-MM-DD.
type TeleconsultInput struct {
	PatientID   string               `json:"patientId" binding:"required"`
	PatientName string               `json:"patientName" binding:"required"`
	PatientDOB  string               `json:"patientDob" binding:"required"`
	History     []domain.ChatMessage `json:"history"`
}

// TeleconsultOutput is the assistant reply.
type TeleconsultOutput struct {
	Response string `json:"response"`
}

type teleconsultPromptData struct {
	PatientName string
	PatientAge  int
	PatientID   string
	FirstTurn   bool
}

// ClinicalFlows runs the single-prompt flows that sit around the recommendation router.
type ClinicalFlows struct {
	prompts *prompts.PromptManager
	model   domain.ModelClient
	logger  *logrus.Logger
	now     func() time.Time
}

// NewClinicalFlows creates the flow runner
func NewClinicalFlows(pm *prompts.PromptManager, model domain.ModelClient, logger *logrus.Logger) *ClinicalFlows {
	if logger == nil {
		logger = logrus.New()
	}
	return &ClinicalFlows{prompts: pm, model: model, logger: logger, now: time.Now}
}

// run renders the template, calls the model and decodes the JSON reply into out.
func (f *ClinicalFlows) run(ctx context.Context, name string, data any, history []domain.ChatMessage, out any) error {
	rendered, err := f.prompts.Render(ctx, name, data)
	if err != nil {
		return fmt.Errorf("rendering %s prompt: %w", name, err)
	}

	start := time.Now()
	resp, err := f.model.Generate(ctx, &domain.ModelRequest{
		Name:           rendered.Name,
		SystemPrompt:   rendered.SystemPrompt,
		Prompt:         rendered.Content,
		History:        history,
		ResponseSchema: rendered.ResponseSchema,
		Temperature:    rendered.Temperature,
	})
	if err != nil {
		f.logger.WithError(err).WithField("flow", name).Error("Model call failed")
		return &domain.UpstreamError{Op: name, Err: err}
	}

	if err := external.DecodeJSON(resp.Text, out); err != nil {
		f.logger.WithError(err).WithField("flow", name).Error("Model response was malformed")
		return &domain.UpstreamError{Op: name, Err: err}
	}

	f.logger.WithFields(logrus.Fields{
		"flow":        name,
		"cached":      resp.Cached,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Flow completed")
	return nil
}

// SuggestDifferentialDiagnosis asks the model for differentials and returns them
// normalised and sorted by confidence, highest first.
func (f *ClinicalFlows) SuggestDifferentialDiagnosis(ctx context.Context, input *DifferentialDiagnosisInput) (*DifferentialDiagnosisOutput, error) {
	if strings.TrimSpace(input.Anamnesis) == "" {
		return nil, domain.NewValidationError("anamnesis", "anamnesis is required", input.Anamnesis)
	}

	var out DifferentialDiagnosisOutput
	if err := f.run(ctx, prompts.DifferentialDiagnosis, input, nil, &out); err != nil {
		return nil, err
	}
	if out.Diagnoses == nil {
		out.Diagnoses = []domain.DifferentialDiagnosis{}
	}
	for i := range out.Diagnoses {
		out.Diagnoses[i].Normalize()
	}
	sort.SliceStable(out.Diagnoses, func(i, j int) bool {
		return out.Diagnoses[i].Confidence > out.Diagnoses[j].Confidence
	})
	return &out, nil
}

// CompleteMedicalResume drafts a narrative resume of the encounter.
func (f *ClinicalFlows) CompleteMedicalResume(ctx context.Context, input *MedicalResumeInput) (*MedicalResumeOutput, error) {
	if strings.TrimSpace(input.Anamnesis) == "" || strings.TrimSpace(input.Diagnosis) == "" {
		return nil, domain.NewValidationError("anamnesis", "anamnesis and diagnosis are required", "")
	}
	var out MedicalResumeOutput
	if err := f.run(ctx, prompts.MedicalResume, input, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuggestPatientEducation drafts patient-facing education material.
func (f *ClinicalFlows) SuggestPatientEducation(ctx context.Context, input *PatientEducationInput) (*PatientEducationOutput, error) {
	if strings.TrimSpace(input.Diagnosis) == "" {
		return nil, domain.NewValidationError("diagnosis", "diagnosis is required", input.Diagnosis)
	}
	var out PatientEducationOutput
	if err := f.run(ctx, prompts.PatientEducation, input, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuggestTherapyAndActions suggests medications and medical actions.
func (f *ClinicalFlows) SuggestTherapyAndActions(ctx context.Context, input *TherapyInput) (*TherapyOutput, error) {
	if strings.TrimSpace(input.Diagnosis) == "" {
		return nil, domain.NewValidationError("diagnosis", "diagnosis is required", input.Diagnosis)
	}
	var out TherapyOutput
	if err := f.run(ctx, prompts.TherapyAndActions, input, nil, &out); err != nil {
		return nil, err
	}
	if out.Medications == nil {
		out.Medications = []Medication{}
	}
	if out.Actions == nil {
		out.Actions = []MedicalAction{}
	}
	return &out, nil
}

// TeleconsultChat answers the latest turn of a teleconsultation conversation.
func (f *ClinicalFlows) TeleconsultChat(ctx context.Context, input *TeleconsultInput) (*TeleconsultOutput, error) {
	age, err := AgeFromDOB(input.PatientDOB, f.now())
	if err != nil {
		return nil, domain.NewValidationError("patientDob", err.Error(), input.PatientDOB)
	}

	data := teleconsultPromptData{
		PatientName: input.PatientName,
		PatientAge:  age,
		PatientID:   input.PatientID,
		FirstTurn:   len(input.History) == 0,
	}

	var out TeleconsultOutput
	if err := f.run(ctx, prompts.Teleconsult, data, input.History, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AgeFromDOB returns the age in whole years at now for a YYYY-MM-DD date of birth.
func AgeFromDOB(dob string, now time.Time) (int, error) {
	born, err := time.Parse("2006-01-02", strings.TrimSpace(dob))
	if err != nil {
		return 0, fmt.Errorf("invalid date of birth %q: expected YYYY-MM-DD", dob)
	}
	if born.After(now) {
		return 0, fmt.Errorf("date of birth %s is in the future", dob)
	}

	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age, nil
}
