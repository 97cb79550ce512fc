package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketMappings = []byte("manual_mappings")

// BoltRepo keeps mappings in an embedded bbolt file, one JSON value per id.
type BoltRepo struct {
	db *bolt.DB
}

func NewBoltRepo(path string) (*BoltRepo, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bbolt dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMappings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt bucket: %w", err)
	}
	return &BoltRepo{db: db}, nil
}

func (r *BoltRepo) Close() error {
	return r.db.Close()
}

func (r *BoltRepo) Create(_ context.Context, m *Mapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMappings)
		if b.Get([]byte(m.ID)) != nil {
			return fmt.Errorf("mapping %s already exists", m.ID)
		}
		return b.Put([]byte(m.ID), data)
	})
}

func (r *BoltRepo) Get(_ context.Context, id string) (*Mapping, error) {
	var m *Mapping
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMappings).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		var err error
		m, err = decodeMapping(data)
		return err
	})
	return m, err
}

func (r *BoltRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Mapping, int, error) {
	var all []*Mapping
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMappings).ForEach(func(_, v []byte) error {
			m, err := decodeMapping(v)
			if err != nil {
				return err
			}
			all = append(all, m)
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}
	items, total := page(all, f, limit, offset)
	return items, total, nil
}

func (r *BoltRepo) Update(_ context.Context, id string, fn func(*Mapping) error) (*Mapping, error) {
	var m *Mapping
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMappings)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		var err error
		if m, err = decodeMapping(data); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		out, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal mapping: %w", err)
		}
		return b.Put([]byte(id), out)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// decodeMapping unmarshals a value read inside a transaction. json.Unmarshal
// copies, so the result outlives the tx.
func decodeMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal mapping: %w", err)
	}
	return &m, nil
}
