package stt

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
	"github.com/castpress/castpress/domain/repositories"
)

// syncRecognizeWindow is the longest audio the synchronous Recognize call
// accepts; anything longer must go through the long-running variant.
const syncRecognizeWindow = time.Minute

// GoogleTranscriber implements Transcriber for Google Cloud Speech-to-Text.
// Each segment is transcribed with one Recognize call, synchronous for
// windows under a minute and long-running otherwise; word time offsets from
// the response become the result's sub-units.
type GoogleTranscriber struct {
	client *speech.Client
	logger *zap.Logger
}

var _ repositories.Transcriber = (*GoogleTranscriber)(nil)

// NewGoogleTranscriber creates a Google Cloud Speech adapter. Credentials
// come from the ambient GOOGLE_APPLICATION_CREDENTIALS environment.
func NewGoogleTranscriber(ctx context.Context, logger *zap.Logger) (*GoogleTranscriber, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleTranscriber{client: client, logger: logger}, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}

// Transcribe converts one segment's audio window to text.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte, opts repositories.TranscribeOptions) (*entities.TranscriptionResult, error) {
	encoding, err := getAudioEncoding(opts.Audio.Encoding)
	if err != nil {
		return nil, err
	}

	config := &speechpb.RecognitionConfig{
		Encoding:                   encoding,
		SampleRateHertz:            int32(opts.Audio.SampleRate),
		AudioChannelCount:          int32(opts.Audio.Channels),
		EnableWordTimeOffsets:      true,
		EnableAutomaticPunctuation: true,
	}
	if opts.Language != "" {
		config.LanguageCode = opts.Language
	} else {
		config.LanguageCode = "en-US"
	}
	if opts.ContextHint != "" {
		config.SpeechContexts = []*speechpb.SpeechContext{
			{Phrases: strings.Split(opts.ContextHint, ", ")},
		}
	}

	recAudio := &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
	}

	var recognized []*speechpb.SpeechRecognitionResult
	if fitsSyncRecognize(len(audio), opts.Audio) {
		resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
			Config: config,
			Audio:  recAudio,
		})
		if err != nil {
			return nil, fmt.Errorf("recognize call failed: %w", err)
		}
		recognized = resp.Results
	} else {
		op, err := g.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
			Config: config,
			Audio:  recAudio,
		})
		if err != nil {
			return nil, fmt.Errorf("long running recognize call failed: %w", err)
		}
		resp, err := op.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("long running recognize failed: %w", err)
		}
		recognized = resp.Results
	}

	result := &entities.TranscriptionResult{
		SegmentIndex: opts.SegmentIndex,
		Status:       entities.ResultStatusSuccess,
	}
	var texts []string
	for _, res := range recognized {
		if len(res.Alternatives) == 0 {
			continue
		}
		best := res.Alternatives[0]
		texts = append(texts, best.Transcript)
		if result.Language == "" && res.LanguageCode != "" {
			result.Language = shortLanguageCode(res.LanguageCode)
		}
		for _, w := range best.Words {
			result.SubUnits = append(result.SubUnits, entities.SubUnit{
				Text:  w.Word,
				Start: w.StartTime.AsDuration(),
				End:   w.EndTime.AsDuration(),
			})
		}
	}
	result.Text = strings.Join(texts, " ")

	if result.Text == "" {
		return nil, fmt.Errorf("no speech detected in segment %d", opts.SegmentIndex)
	}

	g.logger.Debug("Segment transcribed",
		zap.Int("segment", opts.SegmentIndex),
		zap.Int("chars", len(result.Text)))

	return result, nil
}

// fitsSyncRecognize reports whether an audio window is short enough for the
// synchronous Recognize call. Only raw LINEAR16 has a derivable play time;
// anything else takes the long-running path rather than risk an oversized
// inline request.
func fitsSyncRecognize(byteLen int, cfg repositories.AudioConfig) bool {
	if strings.ToUpper(cfg.Encoding) != "LINEAR16" {
		return false
	}
	byteRate := cfg.SampleRate * cfg.Channels * 2
	if byteRate <= 0 {
		return false
	}
	duration := time.Duration(float64(byteLen) / float64(byteRate) * float64(time.Second))
	return duration <= syncRecognizeWindow
}

// getAudioEncoding converts an encoding name to the Speech API enum.
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "MP3":
		return speechpb.RecognitionConfig_MP3, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

// shortLanguageCode reduces a BCP-47 tag ("en-US") to its base language.
func shortLanguageCode(code string) string {
	if i := strings.IndexByte(code, '-'); i > 0 {
		return strings.ToLower(code[:i])
	}
	return strings.ToLower(code)
}
