package spot

import "context"

// Source delivers the raw spot catalog. Implementations do no coercion;
// Normalize is applied by the caller.
type Source interface {
	Fetch(ctx context.Context) ([]RawSpot, error)
}
