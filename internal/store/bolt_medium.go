package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"mterelay/internal/domain"
)

// BoltMedium is a durable medium backed by a bbolt database. Keys take the
// form category/name; each category lives in its own bucket.
type BoltMedium struct {
	db *bolt.DB
}

// OpenBoltMedium opens (creating if needed) the database at path.
func OpenBoltMedium(path string) (*BoltMedium, error) {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return &BoltMedium{db: db}, nil
}

// Close releases the database.
func (b *BoltMedium) Close() error { return b.db.Close() }

func splitKey(key string) (bucket, name []byte) {
	i := strings.IndexByte(key, '/')
	if i < 0 {
		return []byte("default"), []byte(key)
	}
	return []byte(key[:i]), []byte(key[i+1:])
}

func (b *BoltMedium) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	bkt, name := splitKey(key)
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bkt)
		if bk == nil {
			return nil
		}
		if v := bk.Get(name); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (b *BoltMedium) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bkt, name := splitKey(key)
	return b.db.Update(func(tx *bolt.Tx) error {
		bk, err := tx.CreateBucketIfNotExists(bkt)
		if err != nil {
			return err
		}
		return bk.Put(name, value)
	})
}

func (b *BoltMedium) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bkt, name := splitKey(key)
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bkt)
		if bk == nil {
			return nil
		}
		return bk.Delete(name)
	})
}

var _ domain.StorageMedium = (*BoltMedium)(nil)
