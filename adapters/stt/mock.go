package stt

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
	"github.com/castpress/castpress/domain/repositories"
)

// MockTranscriber is a placeholder transcription service for local
// development without API credentials.
type MockTranscriber struct {
	logger *zap.Logger
}

// NewMockTranscriber creates a new mock transcriber.
func NewMockTranscriber(logger *zap.Logger) repositories.Transcriber {
	return &MockTranscriber{logger: logger}
}

// Transcribe returns canned text sized to the audio window.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, opts repositories.TranscribeOptions) (*entities.TranscriptionResult, error) {
	m.logger.Info("Mock transcription",
		zap.Int("segment", opts.SegmentIndex),
		zap.Int("audioSize", len(audio)))

	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio data received")
	}

	text := fmt.Sprintf("This is placeholder transcript text for segment %d of the uploaded episode.", opts.SegmentIndex)
	return &entities.TranscriptionResult{
		SegmentIndex: opts.SegmentIndex,
		Text:         text,
		Language:     "en",
		Status:       entities.ResultStatusSuccess,
		SubUnits: []entities.SubUnit{
			{Text: text, Start: 0, End: 5 * time.Second},
		},
	}, nil
}
