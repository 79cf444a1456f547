package entities

import "time"

// ResultStatus marks a per-segment transcription outcome.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusFailure ResultStatus = "failure"
)

// SubUnit is a time-stamped span of transcribed text. In a
// TranscriptionResult the offsets are relative to the segment's transcribed
// window; in a Transcript they are absolute on the asset's timeline.
type SubUnit struct {
	Text  string        `json:"text"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// TranscriptionResult is the outcome of one external transcription call for
// one segment. Exactly one result exists per segment index regardless of
// whether the call succeeded.
type TranscriptionResult struct {
	SegmentIndex int          `json:"segment_index"`
	Text         string       `json:"text"`
	SubUnits     []SubUnit    `json:"sub_units,omitempty"`
	Language     string       `json:"language,omitempty"`
	Status       ResultStatus `json:"status"`
	ErrorDetail  string       `json:"error_detail,omitempty"`
}

// FailedResult builds a failure placeholder for a segment whose call did not
// produce usable text.
func FailedResult(index int, err error) *TranscriptionResult {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return &TranscriptionResult{
		SegmentIndex: index,
		Status:       ResultStatusFailure,
		ErrorDetail:  detail,
	}
}

// Gap records a span of the merged transcript with no usable text because
// the owning segment failed.
type Gap struct {
	SegmentIndex int           `json:"segment_index"`
	Start        time.Duration `json:"start"`
	End          time.Duration `json:"end"`
	Detail       string        `json:"detail,omitempty"`
}

// Transcript is the merged, ordered output of a pipeline run. It is immutable
// once constructed and may represent a partial success: failed segments leave
// gap markers in the text and entries in Gaps rather than being dropped
// silently.
type Transcript struct {
	FullText            string    `json:"full_text"`
	SubUnits            []SubUnit `json:"sub_units"`
	DetectedLanguage    string    `json:"detected_language,omitempty"`
	SegmentFailureCount int       `json:"segment_failure_count"`
	Gaps                []Gap     `json:"gaps,omitempty"`
}

// GapError reports the missing spans as an informational error, or nil when
// every segment transcribed cleanly.
func (t *Transcript) GapError() error {
	if t.SegmentFailureCount == 0 {
		return nil
	}
	return &ReassemblyGapError{Gaps: t.Gaps}
}

// IsPartial reports whether at least one segment failed.
func (t *Transcript) IsPartial() bool {
	return t.SegmentFailureCount > 0
}
