package entities

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunState represents a pipeline run's position in its lifecycle.
type RunState string

const (
	RunStateCreated      RunState = "created"
	RunStateSegmented    RunState = "segmented"
	RunStateTranscribing RunState = "transcribing"
	RunStateReassembling RunState = "reassembling"
	RunStateComplete     RunState = "complete"
	RunStateFailed       RunState = "failed"
)

// ErrRunTerminal is returned when a transition is attempted on a run that
// already reached Complete or Failed.
var ErrRunTerminal = errors.New("run is in a terminal state")

// PipelineRun tracks one transcription run over a single audio asset.
// Transitions only move forward:
//
//	created -> segmented -> transcribing -> reassembling -> complete
//
// with failed reachable from any non-terminal state. Complete covers both
// full and partial success; Failed means segmentation itself failed, zero
// segments succeeded, or the caller aborted the run.
type PipelineRun struct {
	mu sync.Mutex

	id        string
	assetID   string
	state     RunState
	segments  int
	completed int
	failures  int
	err       error

	transcript *Transcript

	createdAt  time.Time
	finishedAt time.Time
}

// NewPipelineRun creates a run in the Created state for the given asset.
func NewPipelineRun(assetID string) *PipelineRun {
	return &PipelineRun{
		id:        uuid.New().String(),
		assetID:   assetID,
		state:     RunStateCreated,
		createdAt: time.Now(),
	}
}

// ID returns the run identifier.
func (r *PipelineRun) ID() string { return r.id }

// AssetID returns the identifier of the audio asset the run operates on.
func (r *PipelineRun) AssetID() string { return r.assetID }

// State returns the current lifecycle state.
func (r *PipelineRun) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// MarkSegmented records the segment count and moves the run forward.
func (r *PipelineRun) MarkSegmented(segments int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.advance(RunStateCreated, RunStateSegmented); err != nil {
		return err
	}
	r.segments = segments
	return nil
}

// MarkTranscribing moves the run into the fan-out phase.
func (r *PipelineRun) MarkTranscribing() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advance(RunStateSegmented, RunStateTranscribing)
}

// RecordSegmentOutcome counts one finished segment call for progress
// reporting. Failed calls count toward both totals.
func (r *PipelineRun) RecordSegmentOutcome(succeeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
	if !succeeded {
		r.failures++
	}
}

// MarkReassembling moves the run into the merge phase.
func (r *PipelineRun) MarkReassembling() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advance(RunStateTranscribing, RunStateReassembling)
}

// MarkComplete stores the merged transcript and finishes the run.
func (r *PipelineRun) MarkComplete(transcript *Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.advance(RunStateReassembling, RunStateComplete); err != nil {
		return err
	}
	r.transcript = transcript
	r.finishedAt = time.Now()
	return nil
}

// MarkFailed finishes the run with an error. Valid from any non-terminal
// state; once terminal the run never leaves it.
func (r *PipelineRun) MarkFailed(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isTerminal() {
		return ErrRunTerminal
	}
	r.state = RunStateFailed
	r.err = err
	r.finishedAt = time.Now()
	return nil
}

// Transcript returns the merged transcript, or nil unless the run completed.
func (r *PipelineRun) Transcript() *Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript
}

// RunSnapshot is a point-in-time copy of a run's progress, safe to hand to
// the API layer while the run is still moving.
type RunSnapshot struct {
	ID                string    `json:"id"`
	AssetID           string    `json:"asset_id"`
	State             RunState  `json:"state"`
	Segments          int       `json:"segments"`
	CompletedSegments int       `json:"completed_segments"`
	FailedSegments    int       `json:"failed_segments"`
	Error             string    `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Snapshot returns a consistent copy of the run's progress.
func (r *PipelineRun) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := RunSnapshot{
		ID:                r.id,
		AssetID:           r.assetID,
		State:             r.state,
		Segments:          r.segments,
		CompletedSegments: r.completed,
		FailedSegments:    r.failures,
		CreatedAt:         r.createdAt,
	}
	if r.err != nil {
		snap.Error = r.err.Error()
	}
	return snap
}

func (r *PipelineRun) advance(from, to RunState) error {
	if r.isTerminal() {
		return ErrRunTerminal
	}
	if r.state != from {
		return fmt.Errorf("cannot move run from %s to %s", r.state, to)
	}
	r.state = to
	return nil
}

func (r *PipelineRun) isTerminal() bool {
	return r.state == RunStateComplete || r.state == RunStateFailed
}
