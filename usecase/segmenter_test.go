package usecase

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
)

// testAsset builds an asset whose byte stream maps 2 bytes to each second, so
// long durations stay cheap in tests.
func testAsset(duration time.Duration) *entities.AudioAsset {
	seconds := int(duration.Seconds())
	return entities.NewAudioAsset("episode.wav", make([]byte, seconds*2), entities.AudioInfo{
		Duration:   duration,
		SampleRate: 1,
		Channels:   1,
		Format:     "LINEAR16",
		ByteRate:   2,
	})
}

func TestSplitEvenDivision(t *testing.T) {
	segmenter := NewSegmenter(SegmenterConfig{
		MaxSegmentDuration:  10 * time.Minute,
		OverlapWindow:       2 * time.Second,
		MinTrailingDuration: 5 * time.Second,
	}, zap.NewNop())

	segments, err := segmenter.Split(testAsset(25 * time.Minute))
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	want := []entities.Segment{
		{Index: 0, Start: 0, End: 10 * time.Minute},
		{Index: 1, Start: 10 * time.Minute, End: 20 * time.Minute, LeadIn: 2 * time.Second},
		{Index: 2, Start: 20 * time.Minute, End: 25 * time.Minute, LeadIn: 2 * time.Second},
	}
	if len(segments) != len(want) {
		t.Fatalf("Expected %d segments, got %d", len(want), len(segments))
	}
	for i, seg := range segments {
		if seg != want[i] {
			t.Errorf("Segment %d = %+v, want %+v", i, seg, want[i])
		}
	}
}

func TestSplitTrailingRemainderMerges(t *testing.T) {
	segmenter := NewSegmenter(SegmenterConfig{
		MaxSegmentDuration:  10 * time.Minute,
		OverlapWindow:       2 * time.Second,
		MinTrailingDuration: 5 * time.Minute,
	}, zap.NewNop())

	segments, err := segmenter.Split(testAsset(22 * time.Minute))
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 10*time.Minute {
		t.Errorf("Segment 0 covers [%v, %v), want [0s, 10m0s)", segments[0].Start, segments[0].End)
	}
	if segments[1].Start != 10*time.Minute || segments[1].End != 22*time.Minute {
		t.Errorf("Segment 1 covers [%v, %v), want [10m0s, 22m0s)", segments[1].Start, segments[1].End)
	}
}

func TestSplitSingleSegment(t *testing.T) {
	segmenter := NewSegmenter(SegmenterConfig{
		MaxSegmentDuration: 10 * time.Minute,
		OverlapWindow:      2 * time.Second,
	}, zap.NewNop())

	segments, err := segmenter.Split(testAsset(7 * time.Minute))
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(segments))
	}
	seg := segments[0]
	if seg.Start != 0 || seg.End != 7*time.Minute {
		t.Errorf("Segment covers [%v, %v), want [0s, 7m0s)", seg.Start, seg.End)
	}
	if seg.LeadIn != 0 {
		t.Errorf("First segment has lead-in %v, want 0", seg.LeadIn)
	}
}

func TestSplitThresholdTruncatesToWholeSecond(t *testing.T) {
	segmenter := NewSegmenter(SegmenterConfig{
		MaxSegmentDuration:  10900 * time.Millisecond,
		MinTrailingDuration: time.Second,
	}, zap.NewNop())

	segments, err := segmenter.Split(testAsset(30 * time.Second))
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		wantStart := time.Duration(i) * 10 * time.Second
		if seg.Start != wantStart {
			t.Errorf("Segment %d starts at %v, want %v", i, seg.Start, wantStart)
		}
	}
}

func TestSplitLeadInClampedToStart(t *testing.T) {
	segmenter := NewSegmenter(SegmenterConfig{
		MaxSegmentDuration:  time.Second,
		OverlapWindow:       5 * time.Second,
		MinTrailingDuration: time.Second,
	}, zap.NewNop())

	segments, err := segmenter.Split(testAsset(3 * time.Second))
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}
	if segments[0].LeadIn != 0 {
		t.Errorf("Segment 0 lead-in = %v, want 0", segments[0].LeadIn)
	}
	if segments[1].LeadIn != time.Second {
		t.Errorf("Segment 1 lead-in = %v, want 1s (clamped to start)", segments[1].LeadIn)
	}
	if segments[1].WindowStart() != 0 {
		t.Errorf("Segment 1 window start = %v, want 0", segments[1].WindowStart())
	}
}

func TestSplitCoverage(t *testing.T) {
	segmenter := NewSegmenter(SegmenterConfig{
		MaxSegmentDuration:  10 * time.Minute,
		OverlapWindow:       2 * time.Second,
		MinTrailingDuration: 5 * time.Second,
	}, zap.NewNop())

	durations := []time.Duration{
		3 * time.Second,
		10 * time.Minute,
		10*time.Minute + 3*time.Second,
		17 * time.Minute,
		61 * time.Minute,
		2 * time.Hour,
	}
	for _, duration := range durations {
		segments, err := segmenter.Split(testAsset(duration))
		if err != nil {
			t.Errorf("Split(%v) error = %v", duration, err)
			continue
		}

		var cursor time.Duration
		for i, seg := range segments {
			if seg.Index != i {
				t.Errorf("duration %v: segment %d carries index %d", duration, i, seg.Index)
			}
			if seg.Start != cursor {
				t.Errorf("duration %v: segment %d starts at %v, want %v", duration, i, seg.Start, cursor)
			}
			if seg.End <= seg.Start {
				t.Errorf("duration %v: segment %d is empty [%v, %v)", duration, i, seg.Start, seg.End)
			}
			cursor = seg.End
		}
		if cursor != duration {
			t.Errorf("duration %v: segments end at %v, coverage is incomplete", duration, cursor)
		}
	}
}

func TestSplitRejectsInvalidAssets(t *testing.T) {
	segmenter := NewSegmenter(SegmenterConfig{}, zap.NewNop())

	tests := []struct {
		name  string
		asset *entities.AudioAsset
	}{
		{name: "nil asset", asset: nil},
		{
			name:  "empty data",
			asset: entities.NewAudioAsset("empty.wav", nil, entities.AudioInfo{Duration: time.Minute}),
		},
		{
			name:  "zero duration",
			asset: entities.NewAudioAsset("silent.wav", make([]byte, 16), entities.AudioInfo{}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := segmenter.Split(tt.asset)
			var invalid *entities.InvalidAudioError
			if !errors.As(err, &invalid) {
				t.Errorf("Split() error = %v, want InvalidAudioError", err)
			}
		})
	}
}
