package policy

import "context"

// Store persists policies. Load and Delete return ErrPolicyNotFound for
// unknown names; Load returns ErrMalformedPolicy for records it cannot
// accept.
type Store interface {
	Load(ctx context.Context, name string) (*Policy, error)
	Save(ctx context.Context, p *Policy) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}
