package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/repositories"
)

// scriptedLLM returns a fixed response, optionally failing, and records the
// requests it saw.
type scriptedLLM struct {
	mu       sync.Mutex
	response string
	err      error
	requests []repositories.CompletionRequest
}

func (s *scriptedLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *scriptedLLM) lastRequest() repositories.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return repositories.CompletionRequest{}
	}
	return s.requests[len(s.requests)-1]
}

func testGlossary() Glossary {
	return Glossary{
		"platforms": {
			"Spotify":    "Music streaming platform",
			"SoundCloud": "Audio distribution platform",
		},
		"production": {
			"DAW": "Digital audio workstation",
		},
	}
}

func TestGlossaryTermsMergedAndSorted(t *testing.T) {
	terms := testGlossary().Terms([]string{"Groover", "Spotify", " ", ""})

	want := []string{"DAW", "Groover", "SoundCloud", "Spotify"}
	if len(terms) != len(want) {
		t.Fatalf("Expected %d terms, got %d: %v", len(want), len(terms), terms)
	}
	for i, term := range terms {
		if term != want[i] {
			t.Errorf("Term %d = %q, want %q", i, term, want[i])
		}
	}
}

func TestLoadGlossaryMissingFile(t *testing.T) {
	glossary, err := LoadGlossary(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadGlossary() error = %v", err)
	}
	if len(glossary) != 0 {
		t.Errorf("Expected empty glossary, got %d categories", len(glossary))
	}
}

func TestLoadGlossaryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	content := `{"platforms": {"Spotify": "Music streaming platform"}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	glossary, err := LoadGlossary(path)
	if err != nil {
		t.Fatalf("LoadGlossary() error = %v", err)
	}
	if glossary["platforms"]["Spotify"] == "" {
		t.Error("Expected Spotify entry in platforms category")
	}
}

func TestLoadGlossaryRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGlossary(path); err == nil {
		t.Error("LoadGlossary() should reject malformed JSON")
	}
}

func TestCorrectUsesGlossaryTerms(t *testing.T) {
	llm := &scriptedLLM{response: "Corrected transcript."}
	service := NewCorrectionService(llm, testGlossary(), zap.NewNop())

	result, err := service.Correct(context.Background(), "raw transcript", []string{"Groover"})
	if err != nil {
		t.Fatalf("Correct() error = %v", err)
	}
	if result.Corrected != "Corrected transcript." {
		t.Errorf("Corrected = %q, want the model output", result.Corrected)
	}
	if result.Original != "raw transcript" {
		t.Errorf("Original = %q, want the input", result.Original)
	}

	req := llm.lastRequest()
	if !strings.Contains(req.System, "Spotify") || !strings.Contains(req.System, "Groover") {
		t.Errorf("System prompt is missing glossary or custom terms: %q", req.System)
	}
	if req.Prompt != "raw transcript" {
		t.Errorf("Prompt = %q, want the raw transcript", req.Prompt)
	}
}

func TestCorrectSkipsOversizedTranscripts(t *testing.T) {
	llm := &scriptedLLM{response: "should not be called"}
	service := NewCorrectionService(llm, nil, zap.NewNop())

	long := strings.Repeat("word ", 90000)
	result, err := service.Correct(context.Background(), long, nil)
	if err != nil {
		t.Fatalf("Correct() error = %v", err)
	}
	if !result.Skipped {
		t.Error("Expected the correction pass to be skipped")
	}
	if result.Corrected != long {
		t.Error("Skipped correction must return the original text")
	}
	if len(llm.requests) != 0 {
		t.Errorf("Expected no model calls, got %d", len(llm.requests))
	}
}

func TestCorrectFallsBackOnModelFailure(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("quota exceeded")}
	service := NewCorrectionService(llm, nil, zap.NewNop())

	result, err := service.Correct(context.Background(), "raw transcript", nil)
	if err != nil {
		t.Fatalf("Correct() error = %v", err)
	}
	if result.Corrected != "raw transcript" {
		t.Errorf("Corrected = %q, want the original on failure", result.Corrected)
	}
	if result.Warning == "" {
		t.Error("Expected a warning describing the failure")
	}
}

func TestTranscriptionPromptCapsTerms(t *testing.T) {
	service := NewCorrectionService(&scriptedLLM{}, nil, zap.NewNop())

	custom := make([]string, 50)
	for i := range custom {
		custom[i] = strings.Repeat("x", i+1)
	}
	prompt := service.TranscriptionPrompt(custom)

	if !strings.HasPrefix(prompt, "The following is a music industry podcast") {
		t.Errorf("Prompt has unexpected preamble: %q", prompt)
	}
	if !strings.Contains(prompt, "Spotify") {
		t.Error("Prompt should lead with priority terms")
	}
	terms := strings.Split(strings.SplitN(prompt, "about ", 2)[1], ", ")
	if len(terms) > 30 {
		t.Errorf("Prompt carries %d terms, cap is 30", len(terms))
	}
}
