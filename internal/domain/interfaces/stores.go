package interfaces

import "context"

// StorageMedium is the host storage a SecureStorage writes through.
// Get reports ok=false for a missing key.
type StorageMedium interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// StateRepository persists engine state across reloads.
type StateRepository interface {
	Init(ctx context.Context) error
	Write(ctx context.Context, name, data string, persistent bool) error
	Read(ctx context.Context, name string, persistent bool) (string, error)
	Remove(ctx context.Context, name string, persistent bool) error
}
