package entities

import (
	"time"

	"github.com/google/uuid"
)

// AudioInfo describes the decoded properties of an uploaded audio file.
type AudioInfo struct {
	Duration   time.Duration `json:"duration"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Format     string        `json:"format"`
	// ByteRate is the number of audio bytes per second of playback,
	// used to map time ranges onto the raw byte stream.
	ByteRate int `json:"byte_rate"`
}

// AudioAsset is an immutable reference to uploaded audio plus its metadata.
// It is created once on upload and discarded with the owning session.
type AudioAsset struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Data     []byte    `json:"-"`
	Info     AudioInfo `json:"info"`
}

// NewAudioAsset creates an asset with a fresh identifier.
func NewAudioAsset(filename string, data []byte, info AudioInfo) *AudioAsset {
	return &AudioAsset{
		ID:       uuid.New().String(),
		Filename: filename,
		Data:     data,
		Info:     info,
	}
}

// SliceByTime returns the raw bytes covering [start, end) of the asset's
// timeline. Offsets are aligned down to whole frames so PCM samples are
// never split across a slice boundary.
func (a *AudioAsset) SliceByTime(start, end time.Duration) []byte {
	if a.Info.ByteRate <= 0 || len(a.Data) == 0 {
		return nil
	}
	frame := a.frameSize()
	from := alignDown(int(float64(a.Info.ByteRate)*start.Seconds()), frame)
	to := alignDown(int(float64(a.Info.ByteRate)*end.Seconds()), frame)
	if from < 0 {
		from = 0
	}
	if to > len(a.Data) {
		to = len(a.Data)
	}
	if from >= to {
		return nil
	}
	return a.Data[from:to]
}

func (a *AudioAsset) frameSize() int {
	if a.Info.SampleRate <= 0 || a.Info.ByteRate <= 0 {
		return 1
	}
	frame := a.Info.ByteRate / a.Info.SampleRate
	if frame <= 0 {
		return 1
	}
	return frame
}

func alignDown(n, align int) int {
	if align <= 1 {
		return n
	}
	return n - n%align
}
