// Package codec provides the pluggable wire formats used by remote-backed
// stores. JSON is the default; msgpack and CBOR are available for callers
// that need a more compact payload.
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// Codec defines methods for encoding and decoding values.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON implements Codec using encoding/json.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Gob implements Codec using encoding/gob.
type Gob struct{}

func (Gob) Marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (Gob) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Limit wraps another codec and rejects oversized payloads at Unmarshal
// time. Marshal is forwarded unchanged. MaxDecode <= 0 disables the check.
type Limit struct {
	Inner     Codec
	MaxDecode int
}

func (c Limit) Marshal(v any) ([]byte, error) { return c.Inner.Marshal(v) }

func (c Limit) Unmarshal(data []byte, v any) error {
	if c.MaxDecode > 0 && len(data) > c.MaxDecode {
		return fmt.Errorf("payload too large: %d > %d", len(data), c.MaxDecode)
	}
	return c.Inner.Unmarshal(data, v)
}
