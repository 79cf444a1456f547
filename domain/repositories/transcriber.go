package repositories

import (
	"context"

	"github.com/castpress/castpress/domain/entities"
)

// AudioConfig describes the raw audio handed to a transcription service.
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Encoding   string `json:"encoding"`
}

// TranscribeOptions carries per-call parameters for one segment.
type TranscribeOptions struct {
	SegmentIndex int
	// Language is an optional BCP-47 hint ("en", "fr"). Empty lets the
	// service auto-detect.
	Language string
	// ContextHint is a short prompt that primes the recognizer with domain
	// vocabulary for better accuracy.
	ContextHint string
	Audio       AudioConfig
}

// Transcriber abstracts a hosted speech-to-text service. One call transcribes
// one segment's audio window. Implementations own their transport timeout and
// retry behavior; any failure is returned as an error and recorded by the
// caller as a per-segment failure.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (*entities.TranscriptionResult, error)
}
