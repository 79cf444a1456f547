package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
	"github.com/castpress/castpress/domain/repositories"
)

// DefaultMaxConcurrentCalls bounds the transcription fan-out. The bound
// exists to respect the hosted service's rate limits, not CPU contention.
const DefaultMaxConcurrentCalls = 4

// ProgressFunc receives fan-out progress. completed counts finished segment
// calls (success or failure) out of total.
type ProgressFunc func(completed, total int, result *entities.TranscriptionResult)

// TranscribeRequest carries the per-run options for a transcription run.
type TranscribeRequest struct {
	// Language is an optional hint forwarded to every segment call.
	Language string
	// ContextHint primes the recognizer with domain vocabulary.
	ContextHint string
	// Progress, when set, is invoked after each segment call finishes.
	Progress ProgressFunc
	// StateChanged, when set, is invoked as the run advances through its
	// non-terminal states.
	StateChanged func(state entities.RunState)
}

// TranscriptionService drives one pipeline run end to end: segment the
// asset, fan out one transcription call per segment under a concurrency
// bound, then reassemble the results in index order.
type TranscriptionService struct {
	segmenter   *Segmenter
	reassembler *Reassembler
	transcriber repositories.Transcriber
	maxInFlight int
	logger      *zap.Logger
}

// NewTranscriptionService wires the pipeline core together. maxInFlight
// values below one fall back to the default bound.
func NewTranscriptionService(
	segmenter *Segmenter,
	reassembler *Reassembler,
	transcriber repositories.Transcriber,
	maxInFlight int,
	logger *zap.Logger,
) *TranscriptionService {
	if maxInFlight < 1 {
		maxInFlight = DefaultMaxConcurrentCalls
	}
	return &TranscriptionService{
		segmenter:   segmenter,
		reassembler: reassembler,
		transcriber: transcriber,
		maxInFlight: maxInFlight,
		logger:      logger,
	}
}

// Execute runs the pipeline for one asset, moving the run through its states
// and returning the merged transcript. Segmentation failure aborts before any
// call is dispatched. Individual segment failures are recorded and merged as
// gaps; only zero successful segments or caller cancellation fail the run.
func (s *TranscriptionService) Execute(
	ctx context.Context,
	run *entities.PipelineRun,
	asset *entities.AudioAsset,
	req TranscribeRequest,
) (*entities.Transcript, error) {
	segments, err := s.segmenter.Split(asset)
	if err != nil {
		_ = run.MarkFailed(err)
		return nil, err
	}
	if err := run.MarkSegmented(len(segments)); err != nil {
		return nil, err
	}
	if req.StateChanged != nil {
		req.StateChanged(entities.RunStateSegmented)
	}
	if err := run.MarkTranscribing(); err != nil {
		return nil, err
	}

	results, err := s.fanOut(ctx, run, asset, segments, req)
	if err != nil {
		_ = run.MarkFailed(err)
		return nil, err
	}

	succeeded := 0
	for _, res := range results {
		if res != nil && res.Status == entities.ResultStatusSuccess {
			succeeded++
		}
	}
	if succeeded == 0 {
		err := fmt.Errorf("all %d segment(s) failed to transcribe", len(segments))
		_ = run.MarkFailed(err)
		return nil, err
	}

	if err := run.MarkReassembling(); err != nil {
		return nil, err
	}
	if req.StateChanged != nil {
		req.StateChanged(entities.RunStateReassembling)
	}
	transcript, err := s.reassembler.Merge(segments, results)
	if err != nil {
		_ = run.MarkFailed(err)
		return nil, err
	}
	if err := run.MarkComplete(transcript); err != nil {
		return nil, err
	}

	s.logger.Info("Transcription run complete",
		zap.String("runID", run.ID()),
		zap.Int("segments", len(segments)),
		zap.Int("failedSegments", transcript.SegmentFailureCount),
		zap.String("language", transcript.DetectedLanguage))

	return transcript, nil
}

// fanOut dispatches one call per segment, at most maxInFlight at a time, and
// collects exactly one result per segment index. Each worker writes only its
// own slot, so the slice needs no lock. Caller cancellation abandons
// in-flight calls instead of waiting for them.
func (s *TranscriptionService) fanOut(
	ctx context.Context,
	run *entities.PipelineRun,
	asset *entities.AudioAsset,
	segments []entities.Segment,
	req TranscribeRequest,
) ([]*entities.TranscriptionResult, error) {
	results := make([]*entities.TranscriptionResult, len(segments))
	sem := make(chan struct{}, s.maxInFlight)

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	for _, seg := range segments {
		wg.Add(1)
		go func(seg entities.Segment) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[seg.Index] = entities.FailedResult(seg.Index, ctx.Err())
				return
			}

			res := s.transcribeSegment(ctx, asset, seg, req)
			results[seg.Index] = res
			run.RecordSegmentOutcome(res.Status == entities.ResultStatusSuccess)

			if req.Progress != nil {
				mu.Lock()
				completed++
				req.Progress(completed, len(segments), res)
				mu.Unlock()
			}
		}(seg)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return results, nil
	case <-ctx.Done():
		s.logger.Warn("Transcription run aborted, abandoning in-flight calls",
			zap.String("runID", run.ID()),
			zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

func (s *TranscriptionService) transcribeSegment(
	ctx context.Context,
	asset *entities.AudioAsset,
	seg entities.Segment,
	req TranscribeRequest,
) *entities.TranscriptionResult {
	audio := asset.SliceByTime(seg.WindowStart(), seg.End)
	if len(audio) == 0 {
		err := &entities.SegmentTranscriptionError{
			SegmentIndex: seg.Index,
			Err:          fmt.Errorf("empty audio window %v-%v", seg.WindowStart(), seg.End),
		}
		return entities.FailedResult(seg.Index, err)
	}

	opts := repositories.TranscribeOptions{
		SegmentIndex: seg.Index,
		Language:     req.Language,
		ContextHint:  req.ContextHint,
		Audio: repositories.AudioConfig{
			SampleRate: asset.Info.SampleRate,
			Channels:   asset.Info.Channels,
			Encoding:   asset.Info.Format,
		},
	}

	res, err := s.transcriber.Transcribe(ctx, audio, opts)
	if err != nil {
		segErr := &entities.SegmentTranscriptionError{SegmentIndex: seg.Index, Err: err}
		s.logger.Warn("Segment transcription failed",
			zap.Int("segment", seg.Index),
			zap.Error(err))
		return entities.FailedResult(seg.Index, segErr)
	}

	res.SegmentIndex = seg.Index
	if res.Status == "" {
		res.Status = entities.ResultStatusSuccess
	}
	return res
}
