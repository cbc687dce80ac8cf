package prompts

// Response schemas use the OpenAPI subset accepted by Gemini structured output. The
// Anthropic client embeds the same schema in its system prompt.

func str(desc string) map[string]any {
	return map[string]any{"type": "STRING", "description": desc}
}

func num(desc string) map[string]any {
	return map[string]any{"type": "NUMBER", "description": desc}
}

func strArray(desc string) map[string]any {
	return map[string]any{"type": "ARRAY", "description": desc, "items": map[string]any{"type": "STRING"}}
}

func enum(desc string, values ...string) map[string]any {
	return map[string]any{"type": "STRING", "description": desc, "enum": values}
}

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "OBJECT", "properties": props, "required": required}
}

// ExaminationsSchema is the output schema shared by the three examination templates.
func ExaminationsSchema() map[string]any {
	rec := object(
		[]string{"examination", "category", "priority", "confidence", "reasoning", "differentialDiagnoses"},
		map[string]any{
			"examination":           str("Nama pemeriksaan penunjang"),
			"category":              enum("Kategori pemeriksaan", "Laboratory", "Radiology", "Cardiology", "Pulmonology", "Neurology", "Other"),
			"priority":              enum("Prioritas klinis", "High", "Medium", "Low"),
			"confidence":            num("Tingkat keyakinan 0-100"),
			"reasoning":             str("Alasan klinis"),
			"differentialDiagnoses": strArray("Diagnosis banding yang dibedakan oleh pemeriksaan ini"),
			"alternatives":          strArray("Alternatif bila tidak tersedia"),
			"contraindications":     strArray("Kontraindikasi"),
		},
	)
	return object([]string{"recommendations"}, map[string]any{
		"recommendations": map[string]any{"type": "ARRAY", "items": rec},
	})
}

// DifferentialDiagnosisSchema is the output schema of the differential diagnosis flow.
func DifferentialDiagnosisSchema() map[string]any {
	item := object([]string{"diagnosis", "confidence", "reasoning"}, map[string]any{
		"diagnosis":  str("Nama diagnosis"),
		"confidence": num("Keyakinan 0-100"),
		"reasoning":  str("Alasan klinis singkat"),
	})
	return object([]string{"diagnoses"}, map[string]any{
		"diagnoses": map[string]any{"type": "ARRAY", "items": item},
	})
}

// MedicalResumeSchema is the output schema of the medical resume flow.
func MedicalResumeSchema() map[string]any {
	return object([]string{"medicalResume"}, map[string]any{
		"medicalResume": str("Resume medis naratif"),
	})
}

// PatientEducationSchema is the output schema of the patient education flow.
func PatientEducationSchema() map[string]any {
	return object([]string{"diseaseExplanation", "treatmentPlan", "homeCareAdvice", "warningSigns"}, map[string]any{
		"diseaseExplanation": str("Penjelasan penyakit yang sederhana"),
		"treatmentPlan":      str("Gambaran rencana pengobatan"),
		"homeCareAdvice":     str("Saran perawatan di rumah"),
		"warningSigns":       str("Tanda bahaya"),
	})
}

// TherapySchema is the output schema of the therapy and actions flow.
func TherapySchema() map[string]any {
	med := object([]string{"medicationName", "dosage", "reasoning"}, map[string]any{
		"medicationName": str("Nama obat"),
		"dosage":         str("Dosis dan frekuensi"),
		"reasoning":      str("Alasan klinis"),
	})
	action := object([]string{"actionName", "reasoning"}, map[string]any{
		"actionName": str("Nama tindakan"),
		"reasoning":  str("Alasan klinis"),
	})
	return object([]string{"medications", "actions"}, map[string]any{
		"medications": map[string]any{"type": "ARRAY", "items": med},
		"actions":     map[string]any{"type": "ARRAY", "items": action},
	})
}

// TeleconsultSchema is the output schema of the teleconsult chat flow.
func TeleconsultSchema() map[string]any {
	return object([]string{"response"}, map[string]any{
		"response": str("Balasan untuk dokter"),
	})
}
