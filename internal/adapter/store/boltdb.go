package store

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketMeta       = []byte("meta")
	bucketNamespaces = []byte("namespaces")
)

// BoltStore owns the bbolt file: a meta bucket and one nested bucket per
// vector namespace.
type BoltStore struct {
	db   *bbolt.DB
	path string
}

func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketMeta, bucketNamespaces} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	return &BoltStore{db: db, path: path}, nil
}

func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// namespaceBucket returns the bucket for name, creating it when asked.
func namespaceBucket(tx *bbolt.Tx, name string, create bool) (*bbolt.Bucket, error) {
	root := tx.Bucket(bucketNamespaces)
	if root == nil {
		return nil, fmt.Errorf("namespaces bucket not found")
	}
	if !create {
		return root.Bucket([]byte(name)), nil
	}
	return root.CreateBucketIfNotExists([]byte(name))
}
