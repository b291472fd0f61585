package maintenance

import "context"

// Coordinator is the cross-instance exclusion primitive a Runner consults
// before each cycle. Acquire returns (false, nil) when another instance
// holds the token; that is expected steady-state, not an error. Release is
// called once per successful Acquire.
type Coordinator interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Nop always wins coordination. It is the default for deployments with a
// single instance.
type Nop struct{}

func (Nop) Acquire(context.Context) (bool, error) { return true, nil }
func (Nop) Release(context.Context) error         { return nil }
