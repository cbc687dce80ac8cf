package service

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// stubModel returns a canned response and records every request it receives.
type stubModel struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []*domain.ModelRequest
}

func (s *stubModel) Name() string { return "stub/model" }

func (s *stubModel) Generate(_ context.Context, req *domain.ModelRequest) (*domain.ModelResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ModelResponse{Text: s.text, Model: "model", Provider: "stub"}, nil
}

func (s *stubModel) last() *domain.ModelRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func (s *stubModel) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type memoryRecords struct {
	mu      sync.Mutex
	records map[string]*domain.RecommendationRecord
	err     error
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{records: map[string]*domain.RecommendationRecord{}}
}

func (m *memoryRecords) SaveRecommendation(_ context.Context, r *domain.RecommendationRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
	return nil
}

func (m *memoryRecords) GetRecommendation(_ context.Context, id string) (*domain.RecommendationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func longText(prefix string, n int) string {
	var b strings.Builder
	b.WriteString(prefix)
	for b.Len() < n {
		b.WriteString(" x")
	}
	return b.String()
}

func usableDifferentials(n int) []domain.DifferentialDiagnosis {
	names := []string{"Demam tifoid", "Demam berdarah dengue", "Malaria", "ISPA", "Leptospirosis"}
	out := make([]domain.DifferentialDiagnosis, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.DifferentialDiagnosis{
			Diagnosis:  names[i%len(names)],
			Confidence: 70,
			Priority:   domain.PriorityMedium,
			Reasoning:  "Demam lebih dari tiga hari dengan nyeri kepala",
		})
	}
	return out
}
