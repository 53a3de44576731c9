// Package utils provides storage and fetch helpers shared by the room viewer binaries.
package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrLayoutNotFound = errors.New("layout not found")
	ErrBadLayoutName  = errors.New("bad layout name")
)

const layoutKeyPrefix = "layout/"

// LayoutStore keeps named room layouts (encoded GeoJSON) in a badger database. It stores the
// initial zone sets operators import, never the readings a session produces.
type LayoutStore struct {
	db    *badger.DB
	cache sync.Map
}

func OpenLayoutStore(path string) (*LayoutStore, error) {
	opts := badger.DefaultOptions(path)
	// Decrease logging verbosity
	opts.Logger = nil
	return openLayoutStore(opts)
}

// OpenMemoryLayoutStore opens a store that lives only as long as the process.
func OpenMemoryLayoutStore() (*LayoutStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openLayoutStore(opts)
}

func openLayoutStore(opts badger.Options) (*LayoutStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &LayoutStore{db: db}, nil
}

func (s *LayoutStore) Close() error {
	return s.db.Close()
}

func layoutKey(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return nil, fmt.Errorf("%w: %q", ErrBadLayoutName, name)
	}
	return []byte(layoutKeyPrefix + name), nil
}

func (s *LayoutStore) Put(name string, data []byte) error {
	key, err := layoutKey(name)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err == nil {
		s.cache.Delete(name)
	}
	return err
}

// PutBatch imports several layouts in one write batch.
func (s *LayoutStore) PutBatch(entries map[string][]byte) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for name, v := range entries {
		key, err := layoutKey(name)
		if err != nil {
			return err
		}
		if err := wb.Set(key, v); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}
	for name := range entries {
		s.cache.Delete(name)
	}
	return nil
}

func (s *LayoutStore) Get(name string) ([]byte, error) {
	if v, ok := s.cache.Load(name); ok {
		return v.([]byte), nil
	}
	key, err := layoutKey(name)
	if err != nil {
		return nil, err
	}

	var val []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrLayoutNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	s.cache.Store(name, val)
	return val, nil
}

func (s *LayoutStore) Delete(name string) error {
	key, err := layoutKey(name)
	if err != nil {
		return err
	}
	s.cache.Delete(name)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// List returns stored layout names in lexical order.
func (s *LayoutStore) List() ([]string, error) {
	var names []string
	err := s.ForEach(func(name string, _ []byte) error {
		names = append(names, name)
		return nil
	})
	sort.Strings(names)
	return names, err
}

func (s *LayoutStore) ForEach(fn func(name string, data []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(layoutKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), layoutKeyPrefix)
			err := item.Value(func(v []byte) error {
				return fn(name, v)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
