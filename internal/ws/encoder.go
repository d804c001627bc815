package ws

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Encoder converts analysis payloads to wire format (JSON + Zstd).
// EncodeAll is safe for concurrent use, so one Encoder serves the hub.
type Encoder struct {
	zstdEncoder *zstd.Encoder
}

// NewEncoder creates a new Encoder with Zstd compression.
func NewEncoder() (*Encoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Encoder{zstdEncoder: enc}, nil
}

// Encode marshals v to JSON and compresses it.
func (e *Encoder) Encode(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return e.zstdEncoder.EncodeAll(raw, nil), nil
}

// Close releases the zstd encoder.
func (e *Encoder) Close() {
	e.zstdEncoder.Close()
}

// Decode decompresses and unmarshals a wire frame. Used by tests and
// client tooling.
func Decode(frame []byte, v interface{}) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(frame, nil)
	if err != nil {
		return fmt.Errorf("decompress frame: %w", err)
	}
	return json.Unmarshal(raw, v)
}
