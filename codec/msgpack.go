package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack implements Codec using vmihailenco/msgpack/v5. It is compact and
// fast; use `msgpack` struct tags where field naming must match JSON.
type Msgpack struct{}

func (Msgpack) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (Msgpack) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
