// Package audio decodes uploaded audio files into assets the pipeline can
// segment. Uploads are expected as 16-bit PCM WAV, the format every hosted
// recognizer accepts without transcoding.
package audio

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/castpress/castpress/domain/entities"
)

const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
)

// LoadWAV parses a RIFF/WAVE byte stream and returns an immutable asset
// whose Data field holds only the PCM sample stream, so time offsets map
// linearly onto byte offsets. Malformed or empty files yield an
// InvalidAudioError.
func LoadWAV(filename string, raw []byte) (*entities.AudioAsset, error) {
	info, samples, err := parseWAV(raw)
	if err != nil {
		return nil, err
	}
	return entities.NewAudioAsset(filename, samples, info), nil
}

// EncodeWAV wraps a raw 16-bit PCM sample stream in a minimal RIFF/WAVE
// container. Segment slices are header-less byte ranges of an asset's sample
// stream; hosted recognizers that take file uploads need them re-containered
// to decode.
func EncodeWAV(samples []byte, sampleRate, channels int) []byte {
	blockAlign := channels * 2
	buf := make([]byte, 44+len(samples))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(samples)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(samples)))
	copy(buf[44:], samples)
	return buf
}

func parseWAV(raw []byte) (entities.AudioInfo, []byte, error) {
	var info entities.AudioInfo

	if len(raw) < riffHeaderSize {
		return info, nil, &entities.InvalidAudioError{Reason: "file too small to be a WAV"}
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return info, nil, &entities.InvalidAudioError{Reason: "missing RIFF/WAVE header"}
	}

	var samples []byte
	haveFormat := false

	// Walk the chunk list; only fmt and data matter here.
	offset := riffHeaderSize
	for offset+chunkHeaderSize <= len(raw) {
		chunkID := string(raw[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(raw[offset+4 : offset+8]))
		body := offset + chunkHeaderSize
		if chunkSize < 0 || body+chunkSize > len(raw) {
			return info, nil, &entities.InvalidAudioError{Reason: fmt.Sprintf("truncated %q chunk", chunkID)}
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return info, nil, &entities.InvalidAudioError{Reason: "fmt chunk too short"}
			}
			audioFormat := binary.LittleEndian.Uint16(raw[body : body+2])
			if audioFormat != 1 {
				return info, nil, &entities.InvalidAudioError{Reason: fmt.Sprintf("unsupported WAV format code %d, expected PCM", audioFormat)}
			}
			info.Channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			info.ByteRate = int(binary.LittleEndian.Uint32(raw[body+8 : body+12]))
			info.Format = "LINEAR16"
			haveFormat = true
		case "data":
			samples = raw[body : body+chunkSize]
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFormat {
		return info, nil, &entities.InvalidAudioError{Reason: "missing fmt chunk"}
	}
	if info.SampleRate <= 0 || info.ByteRate <= 0 || info.Channels <= 0 {
		return info, nil, &entities.InvalidAudioError{Reason: "invalid format parameters"}
	}
	if len(samples) == 0 {
		return info, nil, &entities.InvalidAudioError{Reason: "no audio samples"}
	}

	info.Duration = time.Duration(float64(len(samples)) / float64(info.ByteRate) * float64(time.Second))
	if info.Duration <= 0 {
		return info, nil, &entities.InvalidAudioError{Reason: "zero-duration audio"}
	}

	return info, samples, nil
}
