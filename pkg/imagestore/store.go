// Package imagestore provides a BadgerDB-backed cache of sBPF program images.
//
// Images are keyed by their BLAKE3 ID and stored zstd-compressed. Reads
// re-hash the decompressed bytes, so a damaged value is reported instead of
// decoded. An optional BoltDB label index maps names to image IDs.
package imagestore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/fortiblox/sbpf-isa/pkg/image"
)

// prefixImage is the key prefix for image data.
// Key format: prefixImage + image ID (32 bytes)
var prefixImage = []byte{0x01}

// Store errors.
var (
	ErrNotFound = errors.New("image not found")
	ErrCorrupt  = errors.New("stored image does not match its id")
	ErrClosed   = errors.New("image store closed")
	ErrNoPath   = errors.New("path is required unless running in memory")
)

// Config contains configuration for the image store.
type Config struct {
	// Path is the directory path for the database.
	Path string

	// InMemory runs the database in memory (for testing).
	InMemory bool

	// SyncWrites ensures writes are synced to disk.
	SyncWrites bool

	// Logger is an optional logger. Set to nil to disable logging.
	Logger badger.Logger

	// LabelPath is the BoltDB file for the label index. Empty disables labels.
	LabelPath string
}

// DefaultConfig returns default configuration. The label index is kept
// alongside the image data when path is set.
func DefaultConfig(path string) Config {
	cfg := Config{
		Path:       path,
		SyncWrites: false,
		Logger:     nil, // Disable logging by default
	}
	if path != "" {
		cfg.LabelPath = filepath.Join(path, "labels.db")
	}
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return ErrNoPath
	}
	return nil
}

// Store is a persistent image cache. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	labels *labelIndex
	closed atomic.Bool
}

// Open opens or creates an image store.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s := &Store{db: db}

	if cfg.LabelPath != "" {
		s.labels, err = openLabels(cfg.LabelPath, !cfg.SyncWrites)
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// imageKey returns the BadgerDB key for an image.
func imageKey(id image.ID) []byte {
	key := make([]byte, 1+image.IDSize)
	key[0] = prefixImage[0]
	copy(key[1:], id[:])
	return key
}

// Put stores an image. Storing an image that is already present is a no-op
// rewrite of identical bytes.
func (s *Store) Put(img *image.Image) error {
	if s.closed.Load() {
		return ErrClosed
	}

	data, err := img.Encode(image.EncodingZstd)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(imageKey(img.ID()), data)
	})
}

// Get retrieves an image by ID.
func (s *Store) Get(id image.ID) (*image.Image, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var img *image.Image
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(imageKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			decoded, err := image.Decode(val, image.EncodingZstd)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
			}
			if decoded.ID() != id {
				return fmt.Errorf("%w: %s hashes to %s", ErrCorrupt, id, decoded.ID())
			}
			img = decoded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Has checks if an image exists.
func (s *Store) Has(id image.ID) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}

	var exists bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(imageKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// Delete removes an image and any labels bound to it. Deleting a missing
// image is not an error.
func (s *Store) Delete(id image.ID) error {
	if s.closed.Load() {
		return ErrClosed
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(imageKey(id))
	})
	if err != nil {
		return err
	}
	if s.labels != nil {
		return s.labels.removeID(id)
	}
	return nil
}

// IDs returns the IDs of all stored images in key order.
func (s *Store) IDs() ([]image.ID, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var ids []image.ID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixImage
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) != 1+image.IDSize {
				continue
			}
			var id image.ID
			copy(id[:], key[1:])
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Count returns the number of stored images.
func (s *Store) Count() (int, error) {
	ids, err := s.IDs()
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Close closes the database and the label index.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	err := s.db.Close()
	if s.labels != nil {
		if lerr := s.labels.db.Close(); err == nil {
			err = lerr
		}
	}
	return err
}
