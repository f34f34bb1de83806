package speechgen

import (
	"encoding/binary"
	"time"
)

// Audio format constants. The realtime service produces 16-bit little-endian
// mono PCM at 24 kHz; this package neither resamples nor transcodes.
const (
	// SampleRate is the fixed PCM sample rate in Hz.
	SampleRate = 24000

	// Channels is the fixed channel count (mono).
	Channels = 1

	// BitsPerSample is the fixed sample width.
	BitsPerSample = 16
)

// wavHeaderSize is the size of the canonical RIFF/WAVE header produced by
// EncodeWAV: "RIFF" + length + "WAVE" + 24-byte fmt chunk + "data" + length.
const wavHeaderSize = 44

// EncodeWAV wraps raw PCM bytes in a canonical WAV container: RIFF/WAVE with
// a PCM fmt chunk (1 channel, 24000 Hz, 16 bits/sample) and the input bytes
// verbatim as the data chunk. The function is pure and idempotent: the same
// input always yields byte-identical output.
//
// Empty input fails with ErrEmptyAudio; callers use this to skip producing a
// file when a generation returned no audio.
func EncodeWAV(pcm []byte) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}

	blockAlign := uint16(Channels * BitsPerSample / 8)
	byteRate := uint32(SampleRate) * uint32(blockAlign)
	dataLen := uint32(len(pcm))
	riffLen := uint32(wavHeaderSize-8) + dataLen

	out := make([]byte, wavHeaderSize+len(pcm))

	// RIFF header
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], riffLen)
	copy(out[8:], []byte("WAVE"))

	// Format chunk
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:], 1)  // audio format (PCM)
	binary.LittleEndian.PutUint16(out[22:], Channels)
	binary.LittleEndian.PutUint32(out[24:], SampleRate)
	binary.LittleEndian.PutUint32(out[28:], byteRate)
	binary.LittleEndian.PutUint16(out[32:], blockAlign)
	binary.LittleEndian.PutUint16(out[34:], BitsPerSample)

	// Data chunk
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], dataLen)
	copy(out[44:], pcm)

	return out, nil
}

// PCM16Duration returns the playback duration of raw PCM16 mono audio at the
// fixed sample rate.
func PCM16Duration(pcm []byte) time.Duration {
	samples := len(pcm) / (BitsPerSample / 8)
	return time.Duration(samples) * time.Second / SampleRate
}

// PCM16BytesFor calculates the number of PCM bytes covering the given
// duration in milliseconds at the fixed sample rate. Useful for sizing
// streaming chunks.
func PCM16BytesFor(ms int) int { return (ms * SampleRate * (BitsPerSample / 8)) / 1000 }
