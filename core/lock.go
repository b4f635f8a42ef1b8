package core

import "context"

// Locker grants exclusive, expiring locks on keys.
// Lock returns an error wrapping ErrConflict when the key is already held.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(ctx context.Context) error, err error)
}
