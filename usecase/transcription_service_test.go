package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
	"github.com/castpress/castpress/domain/repositories"
)

// fakeTranscriber simulates the hosted service. Behavior is keyed by segment
// index; the zero value succeeds with deterministic text per segment.
type fakeTranscriber struct {
	mu       sync.Mutex
	calls    int
	failIdx  map[int]bool
	delay    func(index int) time.Duration
	blockCtx bool

	inFlight    int32
	maxInFlight int32
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, opts repositories.TranscribeOptions) (*entities.TranscriptionResult, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if current <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, current) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay != nil {
		time.Sleep(f.delay(opts.SegmentIndex))
	}
	if f.failIdx[opts.SegmentIndex] {
		return nil, errors.New("service unavailable")
	}

	return &entities.TranscriptionResult{
		SegmentIndex: opts.SegmentIndex,
		Text:         fmt.Sprintf("segment %d", opts.SegmentIndex),
		Language:     "en",
		Status:       entities.ResultStatusSuccess,
	}, nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(transcriber repositories.Transcriber, maxInFlight int) *TranscriptionService {
	segmenter := NewSegmenter(SegmenterConfig{
		MaxSegmentDuration:  10 * time.Second,
		OverlapWindow:       2 * time.Second,
		MinTrailingDuration: time.Second,
	}, zap.NewNop())
	return NewTranscriptionService(segmenter, NewReassembler(ReassemblerConfig{}), transcriber, maxInFlight, zap.NewNop())
}

func TestExecuteMergesInIndexOrder(t *testing.T) {
	// Later segments finish first; the transcript must still read in order.
	fake := &fakeTranscriber{
		delay: func(index int) time.Duration {
			return time.Duration(6-index) * 5 * time.Millisecond
		},
	}
	service := newTestService(fake, 4)

	asset := testAsset(60 * time.Second)
	run := entities.NewPipelineRun(asset.ID)

	transcript, err := service.Execute(context.Background(), run, asset, TranscribeRequest{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "segment 0 segment 1 segment 2 segment 3 segment 4 segment 5"
	if transcript.FullText != want {
		t.Errorf("FullText = %q, want %q", transcript.FullText, want)
	}
	if run.State() != entities.RunStateComplete {
		t.Errorf("Run state = %s, want %s", run.State(), entities.RunStateComplete)
	}
	if fake.callCount() != 6 {
		t.Errorf("Expected 6 transcription calls, got %d", fake.callCount())
	}
	if transcript.DetectedLanguage != "en" {
		t.Errorf("DetectedLanguage = %q, want %q", transcript.DetectedLanguage, "en")
	}
}

func TestExecuteRespectsConcurrencyBound(t *testing.T) {
	fake := &fakeTranscriber{
		delay: func(int) time.Duration { return 10 * time.Millisecond },
	}
	service := newTestService(fake, 2)

	asset := testAsset(80 * time.Second)
	run := entities.NewPipelineRun(asset.ID)

	if _, err := service.Execute(context.Background(), run, asset, TranscribeRequest{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if observed := atomic.LoadInt32(&fake.maxInFlight); observed > 2 {
		t.Errorf("Observed %d concurrent calls, bound is 2", observed)
	}
}

func TestExecutePartialFailure(t *testing.T) {
	fake := &fakeTranscriber{failIdx: map[int]bool{2: true}}
	service := newTestService(fake, 4)

	asset := testAsset(60 * time.Second)
	run := entities.NewPipelineRun(asset.ID)

	transcript, err := service.Execute(context.Background(), run, asset, TranscribeRequest{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if run.State() != entities.RunStateComplete {
		t.Errorf("Run state = %s, want %s", run.State(), entities.RunStateComplete)
	}
	if transcript.SegmentFailureCount != 1 {
		t.Errorf("SegmentFailureCount = %d, want 1", transcript.SegmentFailureCount)
	}
	want := "segment 0 segment 1 " + DefaultGapMarker + " segment 3 segment 4 segment 5"
	if transcript.FullText != want {
		t.Errorf("FullText = %q, want %q", transcript.FullText, want)
	}

	snap := run.Snapshot()
	if snap.FailedSegments != 1 {
		t.Errorf("Snapshot failed segments = %d, want 1", snap.FailedSegments)
	}
	if snap.CompletedSegments != 6 {
		t.Errorf("Snapshot completed segments = %d, want 6", snap.CompletedSegments)
	}
}

func TestExecuteAllSegmentsFailed(t *testing.T) {
	fake := &fakeTranscriber{
		failIdx: map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true},
	}
	service := newTestService(fake, 4)

	asset := testAsset(60 * time.Second)
	run := entities.NewPipelineRun(asset.ID)

	if _, err := service.Execute(context.Background(), run, asset, TranscribeRequest{}); err == nil {
		t.Fatal("Execute() should fail when no segment succeeds")
	}
	if run.State() != entities.RunStateFailed {
		t.Errorf("Run state = %s, want %s", run.State(), entities.RunStateFailed)
	}
}

func TestExecuteInvalidAssetDispatchesNoCalls(t *testing.T) {
	fake := &fakeTranscriber{}
	service := newTestService(fake, 4)

	asset := entities.NewAudioAsset("silent.wav", make([]byte, 16), entities.AudioInfo{})
	run := entities.NewPipelineRun(asset.ID)

	_, err := service.Execute(context.Background(), run, asset, TranscribeRequest{})
	var invalid *entities.InvalidAudioError
	if !errors.As(err, &invalid) {
		t.Fatalf("Execute() error = %v, want InvalidAudioError", err)
	}
	if fake.callCount() != 0 {
		t.Errorf("Expected 0 transcription calls, got %d", fake.callCount())
	}
	if run.State() != entities.RunStateFailed {
		t.Errorf("Run state = %s, want %s", run.State(), entities.RunStateFailed)
	}
}

func TestExecuteCancellationFailsRun(t *testing.T) {
	fake := &fakeTranscriber{blockCtx: true}
	service := newTestService(fake, 4)

	asset := testAsset(60 * time.Second)
	run := entities.NewPipelineRun(asset.ID)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := service.Execute(ctx, run, asset, TranscribeRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if run.State() != entities.RunStateFailed {
		t.Errorf("Run state = %s, want %s", run.State(), entities.RunStateFailed)
	}
}

func TestExecuteReportsProgress(t *testing.T) {
	fake := &fakeTranscriber{failIdx: map[int]bool{1: true}}
	service := newTestService(fake, 4)

	asset := testAsset(30 * time.Second)
	run := entities.NewPipelineRun(asset.ID)

	var mu sync.Mutex
	var completions []int
	failures := 0

	_, err := service.Execute(context.Background(), run, asset, TranscribeRequest{
		Progress: func(completed, total int, result *entities.TranscriptionResult) {
			mu.Lock()
			defer mu.Unlock()
			if total != 3 {
				t.Errorf("Progress total = %d, want 3", total)
			}
			completions = append(completions, completed)
			if result.Status == entities.ResultStatusFailure {
				failures++
			}
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(completions) != 3 {
		t.Fatalf("Expected 3 progress callbacks, got %d", len(completions))
	}
	for i, c := range completions {
		if c != i+1 {
			t.Errorf("Progress callback %d reported completed=%d, want %d", i, c, i+1)
		}
	}
	if failures != 1 {
		t.Errorf("Expected 1 failed result in progress stream, got %d", failures)
	}
}

func TestExecuteForwardsLanguageAndHint(t *testing.T) {
	var mu sync.Mutex
	var gotLang, gotHint string

	fake := &hookTranscriber{hook: func(opts repositories.TranscribeOptions) {
		mu.Lock()
		gotLang = opts.Language
		gotHint = opts.ContextHint
		mu.Unlock()
	}}
	service := newTestService(fake, 1)

	asset := testAsset(5 * time.Second)
	run := entities.NewPipelineRun(asset.ID)

	_, err := service.Execute(context.Background(), run, asset, TranscribeRequest{
		Language:    "en",
		ContextHint: "music industry podcast",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotLang != "en" {
		t.Errorf("Language = %q, want %q", gotLang, "en")
	}
	if !strings.Contains(gotHint, "music industry") {
		t.Errorf("ContextHint = %q, want it to carry the hint", gotHint)
	}
}

type hookTranscriber struct {
	hook func(opts repositories.TranscribeOptions)
}

func (h *hookTranscriber) Transcribe(ctx context.Context, audio []byte, opts repositories.TranscribeOptions) (*entities.TranscriptionResult, error) {
	h.hook(opts)
	return &entities.TranscriptionResult{
		SegmentIndex: opts.SegmentIndex,
		Text:         "ok",
		Status:       entities.ResultStatusSuccess,
	}, nil
}

func TestExecuteReportsStateChanges(t *testing.T) {
	fake := &fakeTranscriber{}
	service := newTestService(fake, 4)
	asset := testAsset(25 * time.Second)
	run := entities.NewPipelineRun(asset.ID)

	var states []entities.RunState
	_, err := service.Execute(context.Background(), run, asset, TranscribeRequest{
		StateChanged: func(state entities.RunState) {
			states = append(states, state)
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []entities.RunState{entities.RunStateSegmented, entities.RunStateReassembling}
	if len(states) != len(want) {
		t.Fatalf("StateChanged called %d times, want %d", len(states), len(want))
	}
	for i, state := range want {
		if states[i] != state {
			t.Errorf("states[%d] = %q, want %q", i, states[i], state)
		}
	}
}
