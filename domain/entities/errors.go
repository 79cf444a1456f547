package entities

import "fmt"

// InvalidAudioError signals an unreadable or zero-duration asset. It is fatal
// to the run and raised before any transcription call is dispatched.
type InvalidAudioError struct {
	Reason string
}

func (e *InvalidAudioError) Error() string {
	return fmt.Sprintf("invalid audio: %s", e.Reason)
}

// SegmentTranscriptionError wraps the failure of a single segment's external
// call. It is recorded on the segment's result and never aborts the batch.
type SegmentTranscriptionError struct {
	SegmentIndex int
	Err          error
}

func (e *SegmentTranscriptionError) Error() string {
	return fmt.Sprintf("segment %d transcription failed: %v", e.SegmentIndex, e.Err)
}

func (e *SegmentTranscriptionError) Unwrap() error {
	return e.Err
}

// ReassemblyGapError is informational: the merged transcript is usable but
// has one or more missing spans. Callers decide whether a partial transcript
// is acceptable.
type ReassemblyGapError struct {
	Gaps []Gap
}

func (e *ReassemblyGapError) Error() string {
	return fmt.Sprintf("transcript has %d missing span(s)", len(e.Gaps))
}
