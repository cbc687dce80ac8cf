package prompts

const clinicalSystemPrompt = "Anda adalah AI asisten medis untuk fasilitas kesehatan tingkat pertama di Indonesia. " +
	"Jawab dalam Bahasa Indonesia yang profesional. Keluarkan hanya JSON yang sesuai dengan skema yang diminta."

const contextBlock = `{{with .Context}}
**Konteks Klinis:**
{{if .PatientAge}}- Usia: {{.PatientAge}} tahun
{{end}}{{if .PatientGender}}- Jenis Kelamin: {{.PatientGender}}
{{end}}{{if .Specialization}}- Spesialisasi: {{.Specialization}}
{{end}}{{if .Urgency}}- Urgensi: {{.Urgency}}
{{end}}{{if .PreviousExaminations}}- Pemeriksaan Sebelumnya: {{join .PreviousExaminations ", "}}
{{end}}{{end}}`

const quickBody = `Berdasarkan keluhan utama pasien dan diagnosis awal (jika ada), berikan rekomendasi pemeriksaan penunjang yang paling relevan dan umum tersedia.

**Data Pasien:**
- Keluhan Utama: {{.MainComplaint}}
{{if .Diagnosis}}- Diagnosis yang Dicurigai: {{.Diagnosis}}
{{end}}` + contextBlock + `
Berikan 2-3 rekomendasi pemeriksaan yang tersedia di fasilitas kesehatan dasar, bernilai diagnostik tinggi, cepat dan tidak mahal, serta sesuai urgensi.
Untuk setiap pemeriksaan sertakan nama, alasan klinis singkat, prioritas (High/Medium/Low), kategori dan tingkat keyakinan (0-100).

Mode: Quick.`

const standardBody = `Berdasarkan anamnesis dan pemeriksaan fisik, berikan rekomendasi pemeriksaan penunjang yang terfokus dan efisien.

**Data Klinis:**
- Anamnesis: {{.Anamnesis}}
- Pemeriksaan Fisik: {{.PhysicalExam}}
{{if .DifferentialDiagnoses}}
**Diagnosis Banding:**
{{range .DifferentialDiagnoses}}- {{.Diagnosis}} (Keyakinan: {{.Confidence}}%, Prioritas: {{.Priority}})
  Alasan: {{.Reasoning}}
{{end}}{{end}}` + contextBlock + `
Fokus pada pemeriksaan yang membedakan diagnosis banding, dengan memperhatikan efisiensi biaya dan waktu.
Berikan 3-5 rekomendasi dengan penjelasan klinis yang jelas.

Mode: Standard.`

const comprehensiveBody = `Lakukan analisis mendalam terhadap kasus ini dan berikan rekomendasi pemeriksaan penunjang yang terperinci dan terstruktur.

**Data Klinis Lengkap:**
- Anamnesis: {{.Anamnesis}}
- Pemeriksaan Fisik: {{.PhysicalExam}}
{{if .SupportingFindings}}- Hasil Penunjang Saat Ini: {{.SupportingFindings}}
{{end}}
**Analisis Diagnosis Banding:**
{{range .DifferentialDiagnoses}}- {{.Diagnosis}} (Keyakinan: {{.Confidence}}%, Prioritas: {{.Priority}})
{{if .ICD10Code}}  Kode ICD-10: {{.ICD10Code}}
{{end}}  Alasan: {{.Reasoning}}
{{else}}- Belum ada diagnosis banding.
{{end}}` + contextBlock + `
Cakup pemeriksaan skrining dan konfirmatori, pertimbangan biaya-manfaat, alternatif bila pemeriksaan utama tidak tersedia, serta kontraindikasi.
Berikan 4-8 rekomendasi terperinci.

Mode: Comprehensive.`

const differentialBody = `Berdasarkan data anamnesis dan pemeriksaan fisik berikut, susun daftar diagnosis banding.

**Data Klinis Pasien:**
- Anamnesis: {{.Anamnesis}}
- Pemeriksaan Fisik: {{.PhysicalExam}}

Untuk setiap diagnosis sertakan nama diagnosis, keyakinan (0-100) dan alasan klinis singkat yang merujuk temuan spesifik.
Fokus pada 3-5 diagnosis paling relevan, urutkan dari keyakinan tertinggi.`

const medicalResumeBody = `Buat resume medis yang ringkas dan komprehensif berdasarkan data pemeriksaan berikut.

- Anamnesis: {{.Anamnesis}}
- Pemeriksaan Fisik: {{.PhysicalExamination}}
- Pemeriksaan Penunjang: {{.SupportingExaminations}}
- Diagnosis: {{.Diagnosis}}
- Peresepan dan Tindakan: {{.PrescriptionsAndActions}}

Tulis satu paragraf naratif yang memuat poin terpenting untuk kunjungan berikutnya atau rujukan.`

const patientEducationBody = `Susun materi edukasi pasien untuk diagnosis berikut dengan bahasa yang mudah dipahami awam.

- Diagnosis: {{.Diagnosis}}
{{if .Anamnesis}}- Anamnesis: {{.Anamnesis}}
{{end}}{{if .PhysicalExam}}- Pemeriksaan Fisik: {{.PhysicalExam}}
{{end}}
Sertakan penjelasan penyakit, gambaran rencana pengobatan, saran perawatan di rumah, dan tanda bahaya yang mengharuskan pasien segera kembali.`

const therapyBody = `Berikan saran terapi obat dan tindakan medis untuk pasien berikut.

- Diagnosis: {{.Diagnosis}}
{{if .Anamnesis}}- Anamnesis: {{.Anamnesis}}
{{end}}{{if .PhysicalExam}}- Pemeriksaan Fisik: {{.PhysicalExam}}
{{end}}
Untuk setiap obat sertakan nama, dosis dan frekuensi, serta alasan klinis. Untuk setiap tindakan sertakan nama dan alasan.`

const teleconsultBody = `Anda membantu dokter selama sesi telekonsultasi dengan pasien bernama {{.PatientName}}.

Usia Pasien: {{.PatientAge}} tahun.
ID Pasien: {{.PatientID}}
{{if .FirstTurn}}
Ini awal percakapan: sapa dokter, sebutkan nama dan usia pasien, lalu tanyakan apa yang bisa dibantu.
{{end}}
Tawarkan skrining kesehatan yang relevan dengan usia pasien bila sesuai, dan jawab pertanyaan dokter secara singkat dan profesional.`

func defaultTemplates() []*PromptTemplate {
	return []*PromptTemplate{
		{
			Info:         PromptInfo{Name: QuickExaminations, Description: "Rekomendasi pemeriksaan penunjang dasar", Version: "1.0", Tags: []string{"examinations", "quick"}},
			SystemPrompt: "Anda adalah AI asisten medis yang ahli dalam strategi diagnostik cepat. " + clinicalSystemPrompt,
			Body:         quickBody,
			Schema:       ExaminationsSchema,
			Temperature:  0.2,
		},
		{
			Info:         PromptInfo{Name: StandardExaminations, Description: "Rekomendasi pemeriksaan penunjang berimbang", Version: "1.0", Tags: []string{"examinations", "standard"}},
			SystemPrompt: "Anda adalah AI asisten medis yang ahli dalam strategi diagnostik berbasis bukti. " + clinicalSystemPrompt,
			Body:         standardBody,
			Schema:       ExaminationsSchema,
			Temperature:  0.2,
		},
		{
			Info:         PromptInfo{Name: ComprehensiveExaminations, Description: "Rekomendasi pemeriksaan penunjang mendalam", Version: "1.0", Tags: []string{"examinations", "comprehensive"}},
			SystemPrompt: "Anda adalah AI asisten medis senior yang ahli dalam evidence-based medicine. " + clinicalSystemPrompt,
			Body:         comprehensiveBody,
			Schema:       ExaminationsSchema,
			Temperature:  0.2,
		},
		{
			Info:         PromptInfo{Name: DifferentialDiagnosis, Description: "Diagnosis banding dari anamnesis dan pemeriksaan fisik", Version: "1.0", Tags: []string{"diagnosis"}},
			SystemPrompt: clinicalSystemPrompt,
			Body:         differentialBody,
			Schema:       DifferentialDiagnosisSchema,
			Temperature:  0.2,
		},
		{
			Info:         PromptInfo{Name: MedicalResume, Description: "Resume medis naratif", Version: "1.0", Tags: []string{"documentation"}},
			SystemPrompt: clinicalSystemPrompt,
			Body:         medicalResumeBody,
			Schema:       MedicalResumeSchema,
			Temperature:  0.3,
		},
		{
			Info:         PromptInfo{Name: PatientEducation, Description: "Materi edukasi pasien", Version: "1.0", Tags: []string{"education"}},
			SystemPrompt: clinicalSystemPrompt,
			Body:         patientEducationBody,
			Schema:       PatientEducationSchema,
			Temperature:  0.4,
		},
		{
			Info:         PromptInfo{Name: TherapyAndActions, Description: "Saran terapi dan tindakan", Version: "1.0", Tags: []string{"therapy"}},
			SystemPrompt: clinicalSystemPrompt,
			Body:         therapyBody,
			Schema:       TherapySchema,
			Temperature:  0.2,
		},
		{
			Info:         PromptInfo{Name: Teleconsult, Description: "Asisten percakapan telekonsultasi", Version: "1.0", Tags: []string{"chat"}},
			SystemPrompt: "Anda adalah AI asisten medis yang cerdas dan proaktif. Jawab dalam Bahasa Indonesia.",
			Body:         teleconsultBody,
			Schema:       TeleconsultSchema,
			Temperature:  0.3,
		},
	}
}
