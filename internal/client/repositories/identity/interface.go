// Package identity persists the non-secret identity fields of the session
// (coordinator URL, principal id, client device id) in a local key-value
// table. Secrets never go through this package.
package identity

import "context"

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
