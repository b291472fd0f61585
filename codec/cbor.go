package codec

import "github.com/fxamacker/cbor/v2"

// CBOR implements Codec using fxamacker/cbor. Construct with NewCBOR; the
// zero value is not usable.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR returns a CBOR codec. When deterministic is true the RFC 8949
// core deterministic encoding options are used, which yields byte-stable
// output suitable for hashing.
func NewCBOR(deterministic bool) (CBOR, error) {
	var eo cbor.EncOptions
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR{}, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em, dec: dm}, nil
}

func (c CBOR) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c CBOR) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
