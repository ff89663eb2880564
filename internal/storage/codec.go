package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// encodeVector serializes a float32 slice as raw little-endian bytes
// (spec §4.1 "Encoding"). The element count is recoverable from len(b)/4
// and is compared against the embeddings.dimensions column to detect
// dimension drift on read.
func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// decodeVector is the inverse of encodeVector. It fails rather than
// silently truncating if the byte length isn't a multiple of 4.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("storage: embedding blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func encodeStrings(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func decodeStrings(s string) []string {
	if s == "" {
		return nil
	}
	var ss []string
	if err := json.Unmarshal([]byte(s), &ss); err != nil {
		return nil
	}
	return ss
}

func encodeTrajectory(samples []EmotionalSample) string {
	if samples == nil {
		samples = []EmotionalSample{}
	}
	b, _ := json.Marshal(samples)
	return string(b)
}

func decodeTrajectory(s string) []EmotionalSample {
	if s == "" {
		return nil
	}
	var samples []EmotionalSample
	if err := json.Unmarshal([]byte(s), &samples); err != nil {
		return nil
	}
	return samples
}
