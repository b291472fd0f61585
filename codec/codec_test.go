package codec

import (
	"reflect"
	"testing"
)

type payload struct {
	Name string   `json:"name" msgpack:"name"`
	Tags []string `json:"tags" msgpack:"tags"`
}

func TestCodecsRoundTrip(t *testing.T) {
	cborCodec, err := NewCBOR(false)
	if err != nil {
		t.Fatalf("NewCBOR: %v", err)
	}
	codecs := map[string]Codec{
		"json":    JSON{},
		"gob":     Gob{},
		"msgpack": Msgpack{},
		"cbor":    cborCodec,
	}
	in := payload{Name: "warden", Tags: []string{"a", "b"}}
	for name, c := range codecs {
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatalf("%s marshal: %v", name, err)
		}
		var out payload
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s unmarshal: %v", name, err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Fatalf("%s: expected %+v, got %+v", name, in, out)
		}
	}
}

func TestLimitRejectsOversizedPayload(t *testing.T) {
	c := Limit{Inner: JSON{}, MaxDecode: 4}
	data, err := c.Marshal(payload{Name: "long-enough"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out payload
	if err := c.Unmarshal(data, &out); err == nil {
		t.Fatalf("expected size limit error")
	}
}
