package imagestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fortiblox/sbpf-isa/pkg/image"
	bolt "go.etcd.io/bbolt"
)

// MaxLabelLen is the maximum length of a label name in bytes.
const MaxLabelLen = 128

// bucketLabels maps label name -> image ID.
var bucketLabels = []byte("labels")

// Label errors.
var (
	ErrNoLabels     = errors.New("label index not configured")
	ErrInvalidLabel = errors.New("invalid label")
)

// Label is a name bound to a stored image.
type Label struct {
	Name string
	ID   image.ID
}

// labelIndex is a BoltDB file of human-readable names for image IDs.
type labelIndex struct {
	db *bolt.DB
}

// openLabels creates or opens the label index at path.
func openLabels(path string, noSync bool) (*labelIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
		NoSync:  noSync,
	})
	if err != nil {
		return nil, fmt.Errorf("open label index: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketLabels); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketLabels, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &labelIndex{db: db}, nil
}

// validateLabel rejects empty or oversized names and names that would be
// read as an image ID.
func validateLabel(name string) error {
	if name == "" || len(name) > MaxLabelLen {
		return fmt.Errorf("%w: length %d, want 1-%d", ErrInvalidLabel, len(name), MaxLabelLen)
	}
	if _, err := image.ParseID(name); err == nil {
		return fmt.Errorf("%w: %q is an image id", ErrInvalidLabel, name)
	}
	return nil
}

func (l *labelIndex) set(name string, id image.ID) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLabels).Put([]byte(name), id[:])
	})
}

func (l *labelIndex) get(name string) (image.ID, error) {
	var id image.ID
	err := l.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(bucketLabels).Get([]byte(name))
		if val == nil {
			return fmt.Errorf("%w: label %q", ErrNotFound, name)
		}
		if len(val) != image.IDSize {
			return fmt.Errorf("%w: label %q has %d-byte id", ErrCorrupt, name, len(val))
		}
		copy(id[:], val)
		return nil
	})
	return id, err
}

func (l *labelIndex) remove(name string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLabels).Delete([]byte(name))
	})
}

// removeID drops every label bound to id.
func (l *labelIndex) removeID(id image.ID) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLabels)

		// Buckets cannot be modified during ForEach.
		var names [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if string(v) == string(id[:]) {
				names = append(names, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := b.Delete(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *labelIndex) list() ([]Label, error) {
	var labels []Label
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLabels).ForEach(func(k, v []byte) error {
			if len(v) != image.IDSize {
				return nil
			}
			lb := Label{Name: string(k)}
			copy(lb.ID[:], v)
			labels = append(labels, lb)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// SetLabel binds name to a stored image, replacing any previous binding.
func (s *Store) SetLabel(name string, id image.ID) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.labels == nil {
		return ErrNoLabels
	}
	if err := validateLabel(name); err != nil {
		return err
	}

	ok, err := s.Has(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.labels.set(name, id)
}

// Resolve returns the image ID bound to name.
func (s *Store) Resolve(name string) (image.ID, error) {
	if s.closed.Load() {
		return image.ID{}, ErrClosed
	}
	if s.labels == nil {
		return image.ID{}, ErrNoLabels
	}
	return s.labels.get(name)
}

// RemoveLabel removes a label. Removing a missing label is not an error.
func (s *Store) RemoveLabel(name string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.labels == nil {
		return ErrNoLabels
	}
	return s.labels.remove(name)
}

// Labels returns all labels in name order.
func (s *Store) Labels() ([]Label, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if s.labels == nil {
		return nil, ErrNoLabels
	}
	return s.labels.list()
}
