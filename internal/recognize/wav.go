package recognize

import (
	"encoding/binary"
	"errors"
)

// decodeWAV extracts 16-bit PCM samples from a RIFF WAVE file, such as
// the output of the ffmpeg preprocessing step.
func decodeWAV(data []byte) ([]float32, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF WAVE file")
	}

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if chunkSize < 0 || body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		if chunkID == "data" {
			return pcm16ToFloat32(data[body : body+chunkSize])
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	return nil, errors.New("no data chunk found")
}

// pcm16ToFloat32 converts little-endian 16-bit samples to [-1, 1) floats.
func pcm16ToFloat32(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, errors.New("data length must be even for 16-bit audio")
	}

	floats := make([]float32, len(data)/2)
	for i := range floats {
		sample := int16(data[i*2]) | int16(data[i*2+1])<<8
		floats[i] = float32(sample) / 32768.0
	}
	return floats, nil
}
