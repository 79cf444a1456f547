package usecase

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
)

// Segmenter defaults. Ten-minute windows keep every chunk under hosted
// transcription upload limits; the five-second floor avoids pathological
// trailing slivers.
const (
	DefaultMaxSegmentDuration  = 10 * time.Minute
	DefaultOverlapWindow       = 2 * time.Second
	DefaultMinTrailingDuration = 5 * time.Second
)

// SegmenterConfig tunes how an asset is cut into segments.
type SegmenterConfig struct {
	// MaxSegmentDuration is the upper bound for one segment's owned range.
	// Cuts land on the nearest whole-second boundary at or before it.
	MaxSegmentDuration time.Duration
	// OverlapWindow is duplicated from the previous segment's tail as
	// transcription context and trimmed back out during reassembly.
	OverlapWindow time.Duration
	// MinTrailingDuration merges a trailing remainder shorter than this into
	// the previous segment instead of emitting it on its own.
	MinTrailingDuration time.Duration
}

func (c SegmenterConfig) withDefaults() SegmenterConfig {
	if c.MaxSegmentDuration <= 0 {
		c.MaxSegmentDuration = DefaultMaxSegmentDuration
	}
	if c.OverlapWindow < 0 {
		c.OverlapWindow = 0
	}
	if c.MinTrailingDuration <= 0 {
		c.MinTrailingDuration = DefaultMinTrailingDuration
	}
	return c
}

// Segmenter cuts an audio asset into an ordered sequence of bounded segments
// that cover the asset exactly once.
type Segmenter struct {
	config SegmenterConfig
	logger *zap.Logger
}

// NewSegmenter creates a segmenter, applying defaults for unset fields.
func NewSegmenter(config SegmenterConfig, logger *zap.Logger) *Segmenter {
	return &Segmenter{
		config: config.withDefaults(),
		logger: logger,
	}
}

// Split produces the segment sequence for one asset. The segments are
// contiguous, non-overlapping in their owned ranges, and their union equals
// [0, duration). An asset at or under the threshold yields a single segment.
func (s *Segmenter) Split(asset *entities.AudioAsset) ([]entities.Segment, error) {
	if asset == nil || len(asset.Data) == 0 {
		return nil, &entities.InvalidAudioError{Reason: "asset is empty or unreadable"}
	}
	if asset.Info.Duration <= 0 {
		return nil, &entities.InvalidAudioError{Reason: "asset has zero duration"}
	}

	duration := asset.Info.Duration
	threshold := s.config.MaxSegmentDuration.Truncate(time.Second)
	if threshold <= 0 {
		return nil, fmt.Errorf("segment threshold %v is below one second", s.config.MaxSegmentDuration)
	}

	var segments []entities.Segment
	for start := time.Duration(0); start < duration; {
		end := start + threshold
		if end > duration {
			end = duration
		}

		remainder := duration - end
		if remainder > 0 && remainder < s.config.MinTrailingDuration {
			// The remainder is too short to stand alone; extend this segment
			// to the end of the asset.
			end = duration
		}

		seg := entities.Segment{
			Index: len(segments),
			Start: start,
			End:   end,
		}
		if seg.Index > 0 {
			seg.LeadIn = s.config.OverlapWindow
			if seg.LeadIn > start {
				seg.LeadIn = start
			}
		}
		segments = append(segments, seg)
		start = end
	}

	s.logger.Info("Audio asset segmented",
		zap.String("assetID", asset.ID),
		zap.Duration("duration", duration),
		zap.Duration("threshold", threshold),
		zap.Int("segments", len(segments)))

	return segments, nil
}
