// Package merge defines how a store combines an existing value with a new
// one on upsert. Stores hold a Strategy; the default replaces the old value
// outright. The Value variant carries an explicit scalar/record tag so the
// record-merge rule is selected by tag, not by runtime type inspection.
package merge

// Strategy defines how an existing value and a new value are combined.
type Strategy[T any] interface {
	Merge(old, new T) T
}

// Replace keeps the new value unconditionally. It is the default strategy
// for arbitrary value types.
type Replace[T any] struct{}

// Merge implements Strategy.Merge.
func (Replace[T]) Merge(_, new T) T { return new }

// Func adapts a plain function to a Strategy.
type Func[T any] func(old, new T) T

// Merge implements Strategy.Merge.
func (f Func[T]) Merge(old, new T) T { return f(old, new) }

// Kind tags a Value as a scalar or a structured record.
type Kind uint8

const (
	// Scalar marks an opaque single value.
	Scalar Kind = iota
	// Record marks a field map whose entries can be merged individually.
	Record
)

// Value is a tagged variant stored by caches that need per-field upsert
// semantics. Fields are exported so any codec can serialize it.
type Value struct {
	Kind   Kind           `json:"kind" msgpack:"kind"`
	Scalar any            `json:"scalar,omitempty" msgpack:"scalar,omitempty"`
	Record map[string]any `json:"record,omitempty" msgpack:"record,omitempty"`
}

// NewScalar wraps v as an opaque scalar value.
func NewScalar(v any) Value { return Value{Kind: Scalar, Scalar: v} }

// NewRecord wraps fields as a mergeable record value. The map is not copied.
func NewRecord(fields map[string]any) Value { return Value{Kind: Record, Record: fields} }

// Interface returns the wrapped value: the field map for records, the raw
// value for scalars.
func (v Value) Interface() any {
	if v.Kind == Record {
		return v.Record
	}
	return v.Scalar
}

// Variant merges two Values. When both are records the fields are combined
// with the new value winning per field; in every other combination the new
// value replaces the old one.
type Variant struct{}

// Merge implements Strategy.Merge.
func (Variant) Merge(old, new Value) Value {
	if old.Kind != Record || new.Kind != Record {
		return new
	}
	out := make(map[string]any, len(old.Record)+len(new.Record))
	for k, v := range old.Record {
		out[k] = v
	}
	for k, v := range new.Record {
		out[k] = v
	}
	return Value{Kind: Record, Record: out}
}
