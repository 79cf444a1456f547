package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/repositories"
)

// Correction defaults. The token guard keeps very long transcripts away from
// the model's context limit; the estimate assumes ~1.33 tokens per word.
const (
	defaultCorrectionTemperature = 0.3
	defaultMaxCorrectionTokens   = 100000
	tokensPerWord                = 1.33

	// maxHintTerms caps the recognizer context hint; speech APIs only honor
	// the first couple hundred tokens of a prompt.
	maxHintTerms = 30
)

// priorityHintTerms are the most commonly misrecognized industry terms,
// always included in the recognizer context hint.
var priorityHintTerms = []string{
	"Spotify", "Apple Music", "SoundCloud", "Bandcamp",
	"A&R", "DAW", "VST", "MIDI", "EDM", "R&B", "playlist",
	"curator", "streaming", "mastering", "mixing",
}

const correctionSystemPrompt = `You are an assistant for a music industry content platform.
Your task is to correct spelling discrepancies in transcribed podcast text.

Make sure that the names of the following music industry terms, platforms, and products are spelled correctly:
%s

Important instructions:
1. Only add necessary punctuation such as periods, commas, and capitalization
2. Use only the context provided - do not add new information
3. Preserve the original meaning and flow of the conversation
4. Correct obvious transcription errors
5. Keep the casual, conversational tone appropriate for podcast content
6. For artist names and labels, preserve the exact spelling mentioned
7. Maintain industry-specific terminology and acronyms correctly

Output only the corrected transcript without any explanations or notes.`

// Glossary maps category -> term -> definition.
type Glossary map[string]map[string]string

// LoadGlossary reads a glossary JSON file. A missing file yields an empty
// glossary rather than an error, matching a fresh deployment.
func LoadGlossary(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Glossary{}, nil
		}
		return nil, fmt.Errorf("failed to read glossary: %w", err)
	}
	var g Glossary
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse glossary: %w", err)
	}
	return g, nil
}

// Terms returns every glossary term merged with the custom terms,
// deduplicated and sorted for stable prompts.
func (g Glossary) Terms(custom []string) []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	for _, category := range g {
		for term := range category {
			add(term)
		}
	}
	for _, t := range custom {
		add(t)
	}
	sort.Strings(terms)
	return terms
}

// CorrectionResult reports one correction pass.
type CorrectionResult struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Model     string `json:"model,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// CorrectionService post-processes raw transcripts with an LLM pass,
// anchored on a domain glossary plus per-request custom terms.
type CorrectionService struct {
	llm       repositories.LargeLanguageModel
	glossary  Glossary
	maxTokens int
	logger    *zap.Logger
}

// NewCorrectionService creates a correction service.
func NewCorrectionService(llm repositories.LargeLanguageModel, glossary Glossary, logger *zap.Logger) *CorrectionService {
	if glossary == nil {
		glossary = Glossary{}
	}
	return &CorrectionService{
		llm:       llm,
		glossary:  glossary,
		maxTokens: defaultMaxCorrectionTokens,
		logger:    logger,
	}
}

// Correct runs the LLM correction pass over a transcript. Transcripts whose
// estimated token count exceeds the guard are returned unchanged with a
// warning instead of being truncated mid-text. A failed LLM call also falls
// back to the original text.
func (s *CorrectionService) Correct(ctx context.Context, transcript string, customTerms []string) (*CorrectionResult, error) {
	result := &CorrectionResult{Original: transcript, Corrected: transcript}

	estimated := int(float64(len(strings.Fields(transcript))) * tokensPerWord)
	if estimated > s.maxTokens {
		result.Skipped = true
		result.Warning = fmt.Sprintf("transcript too long (~%d tokens estimated), correction skipped", estimated)
		s.logger.Warn("Skipping correction pass", zap.Int("estimatedTokens", estimated))
		return result, nil
	}

	system := fmt.Sprintf(correctionSystemPrompt, strings.Join(s.glossary.Terms(customTerms), ", "))
	corrected, err := s.llm.Complete(ctx, repositories.CompletionRequest{
		System:      system,
		Prompt:      transcript,
		Temperature: defaultCorrectionTemperature,
	})
	if err != nil {
		s.logger.Error("Correction pass failed, keeping original transcript", zap.Error(err))
		result.Warning = fmt.Sprintf("correction failed: %v", err)
		return result, nil
	}

	result.Corrected = corrected
	return result, nil
}

// TranscriptionPrompt builds the short context hint handed to the speech
// recognizer before transcription. It leads with the commonly misheard
// priority terms and appends custom terms up to the cap.
func (s *CorrectionService) TranscriptionPrompt(customTerms []string) string {
	terms := make([]string, 0, maxHintTerms)
	seen := make(map[string]struct{})
	for _, t := range append(append([]string{}, priorityHintTerms...), customTerms...) {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
		if len(terms) >= maxHintTerms {
			break
		}
	}
	return "The following is a music industry podcast discussion about " + strings.Join(terms, ", ")
}
