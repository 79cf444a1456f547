package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/castpress/castpress/adapters/audio"
	"github.com/castpress/castpress/domain/entities"
	"github.com/castpress/castpress/domain/repositories"
)

const (
	defaultWhisperBaseURL = "https://api.openai.com/v1"
	defaultWhisperModel   = "whisper-1"
	defaultWhisperTimeout = 5 * time.Minute
)

// WhisperConfig holds configuration for the Whisper transcription adapter.
// Required fields:
// - APIKey: the API key for the hosted Whisper endpoint
// Optional fields with defaults:
// - BaseURL: API base URL (default: "https://api.openai.com/v1")
// - Model: model name (default: "whisper-1")
// - Timeout: per-call HTTP timeout (default: 5 minutes)
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// WhisperTranscriber implements Transcriber against an OpenAI-compatible
// audio transcription endpoint, requesting verbose JSON so segment timings
// come back alongside the text.
type WhisperTranscriber struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

var _ repositories.Transcriber = (*WhisperTranscriber)(nil)

// whisperSegment is one timed span in a verbose_json response.
type whisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []whisperSegment `json:"segments"`
}

type whisperError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewWhisperTranscriber creates a Whisper adapter.
func NewWhisperTranscriber(config WhisperConfig, logger *zap.Logger) (*WhisperTranscriber, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("whisper API key is required")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultWhisperBaseURL
	}
	model := config.Model
	if model == "" {
		model = defaultWhisperModel
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultWhisperTimeout
	}

	return &WhisperTranscriber{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Transcribe sends one segment's audio window as a multipart upload and maps
// the timed response spans onto the segment's result. Raw PCM windows are
// wrapped in a WAV container first; the endpoint rejects header-less sample
// streams.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, samples []byte, opts repositories.TranscribeOptions) (*entities.TranscriptionResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", w.model); err != nil {
		return nil, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, err
	}
	if opts.Language != "" {
		if err := mw.WriteField("language", opts.Language); err != nil {
			return nil, err
		}
	}
	if opts.ContextHint != "" {
		if err := mw.WriteField("prompt", opts.ContextHint); err != nil {
			return nil, err
		}
	}

	payload := samples
	if opts.Audio.Encoding == "LINEAR16" && opts.Audio.SampleRate > 0 && opts.Audio.Channels > 0 {
		payload = audio.EncodeWAV(samples, opts.Audio.SampleRate, opts.Audio.Channels)
	}

	filename := fmt.Sprintf("segment_%03d.%s", opts.SegmentIndex, extensionFor(opts.Audio.Encoding))
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(payload); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr whisperError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("whisper http %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("whisper http %d: %s", resp.StatusCode, string(raw))
	}

	var parsed whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode whisper response: %w", err)
	}

	result := &entities.TranscriptionResult{
		SegmentIndex: opts.SegmentIndex,
		Text:         parsed.Text,
		Language:     parsed.Language,
		Status:       entities.ResultStatusSuccess,
	}
	for _, seg := range parsed.Segments {
		result.SubUnits = append(result.SubUnits, entities.SubUnit{
			Text:  seg.Text,
			Start: secondsToDuration(seg.Start),
			End:   secondsToDuration(seg.End),
		})
	}

	w.logger.Debug("Segment transcribed",
		zap.Int("segment", opts.SegmentIndex),
		zap.Int("chars", len(parsed.Text)),
		zap.String("language", parsed.Language))

	return result, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func extensionFor(encoding string) string {
	switch encoding {
	case "WAV", "LINEAR16", "wav":
		return "wav"
	case "MP3", "mp3":
		return "mp3"
	case "FLAC", "flac":
		return "flac"
	case "OGG_OPUS", "ogg":
		return "ogg"
	default:
		return "wav"
	}
}
