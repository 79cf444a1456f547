package entities

import "time"

// Segment is a bounded time-range slice of an audio asset, produced once by
// the segmenter and processed independently. Segments are contiguous and
// non-overlapping: the union of [Start, End) across all segments equals the
// asset's full duration.
type Segment struct {
	// Index is the 0-based ordinal position within the run.
	Index int           `json:"index"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	// LeadIn is the overlap window duplicated from the tail of the previous
	// segment. It is transcribed for context only and trimmed back out during
	// reassembly so it never appears twice in the merged text.
	LeadIn time.Duration `json:"lead_in"`
}

// Duration returns the length of the segment's owned time range,
// excluding the lead-in window.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// WindowStart returns the absolute offset at which the transcribed audio
// window begins (owned range plus lead-in context).
func (s Segment) WindowStart() time.Duration {
	return s.Start - s.LeadIn
}
