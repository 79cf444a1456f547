package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/castpress/castpress/domain/entities"
)

// DefaultGapMarker is inserted in place of a failed segment's text so the
// reader can see where the transcript is incomplete.
const DefaultGapMarker = "[transcription unavailable]"

// ReassemblerConfig tunes how per-segment results are merged.
type ReassemblerConfig struct {
	// GapMarker replaces the text of a failed segment.
	GapMarker string
	// TrimTolerance widens the lead-in trim boundary: a sub-unit is dropped
	// when it ends at or before the segment's owned start plus this slack.
	TrimTolerance time.Duration
}

func (c ReassemblerConfig) withDefaults() ReassemblerConfig {
	if c.GapMarker == "" {
		c.GapMarker = DefaultGapMarker
	}
	return c
}

// Reassembler merges index-addressable segment results into one transcript
// on the asset's absolute time axis.
type Reassembler struct {
	config ReassemblerConfig
}

// NewReassembler creates a reassembler, applying defaults for unset fields.
func NewReassembler(config ReassemblerConfig) *Reassembler {
	return &Reassembler{config: config.withDefaults()}
}

// Merge builds the final transcript. results must hold exactly one entry per
// segment index (a nil entry counts as a failure). Failed segments contribute
// a gap marker and a Gaps entry but never disturb the ordering of the
// surviving text; sub-unit timestamps are shifted to absolute offsets and the
// merged timeline is non-decreasing.
func (r *Reassembler) Merge(segments []entities.Segment, results []*entities.TranscriptionResult) (*entities.Transcript, error) {
	if len(results) != len(segments) {
		return nil, fmt.Errorf("expected %d results, got %d", len(segments), len(results))
	}

	transcript := &entities.Transcript{}
	var parts []string
	var lastEnd time.Duration

	for _, seg := range segments {
		res := results[seg.Index]
		if res == nil || res.Status != entities.ResultStatusSuccess {
			transcript.SegmentFailureCount++
			gap := entities.Gap{
				SegmentIndex: seg.Index,
				Start:        seg.Start,
				End:          seg.End,
			}
			if res != nil {
				gap.Detail = res.ErrorDetail
			}
			transcript.Gaps = append(transcript.Gaps, gap)
			parts = append(parts, r.config.GapMarker)
			continue
		}

		if transcript.DetectedLanguage == "" && res.Language != "" {
			transcript.DetectedLanguage = res.Language
		}

		kept := r.absoluteUnits(seg, res.SubUnits)
		if len(kept) == 0 {
			// No timing information from the provider; fall back to the raw
			// segment text with the lead-in's share of words trimmed off.
			if text := trimLeadInText(seg, res.Text); text != "" {
				parts = append(parts, text)
			}
			continue
		}

		var texts []string
		for _, u := range kept {
			if u.Start < lastEnd {
				u.Start = lastEnd
			}
			if u.End < u.Start {
				u.End = u.Start
			}
			lastEnd = u.End
			transcript.SubUnits = append(transcript.SubUnits, u)
			if t := strings.TrimSpace(u.Text); t != "" {
				texts = append(texts, t)
			}
		}
		if len(texts) > 0 {
			parts = append(parts, strings.Join(texts, " "))
		}
	}

	transcript.FullText = strings.Join(parts, " ")
	return transcript, nil
}

// trimLeadInText approximates the lead-in trim for results that carry no
// timings: the transcribed window includes the lead-in audio, and the
// previous segment already owns those words, so the leading share of words
// proportional to the lead-in's share of the window is dropped.
func trimLeadInText(seg entities.Segment, text string) string {
	text = strings.TrimSpace(text)
	if text == "" || seg.LeadIn <= 0 {
		return text
	}
	window := seg.End - seg.WindowStart()
	if window <= 0 {
		return text
	}
	words := strings.Fields(text)
	drop := int(float64(len(words)) * float64(seg.LeadIn) / float64(window))
	if drop >= len(words) {
		return ""
	}
	return strings.Join(words[drop:], " ")
}

// absoluteUnits shifts a segment's sub-units onto the asset timeline and
// drops the ones that fall entirely inside the lead-in window, since the
// previous segment already owns that span.
func (r *Reassembler) absoluteUnits(seg entities.Segment, units []entities.SubUnit) []entities.SubUnit {
	var kept []entities.SubUnit
	windowStart := seg.WindowStart()
	cutoff := seg.Start + r.config.TrimTolerance
	for _, u := range units {
		abs := entities.SubUnit{
			Text:  u.Text,
			Start: windowStart + u.Start,
			End:   windowStart + u.End,
		}
		if seg.LeadIn > 0 && abs.End <= cutoff {
			continue
		}
		kept = append(kept, abs)
	}
	return kept
}
