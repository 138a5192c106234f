// Package history records the outcome of every compile in a BoltDB database
// kept in the build tree.
//
// One entry is kept per output artifact, overwritten by each compile, so the
// database answers "when and how was this last built, and did it work" for
// every artifact, including the diagnostics of failed compiles.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	// DBName is the database file name inside the build tree
	DBName = "history.db"

	// bucketName is the BoltDB bucket name for build entries
	bucketName = "builds"
)

// History stores build entries in BoltDB
type History struct {
	db    *bbolt.DB
	root  string // build tree the database lives in
	runID string
}

// Open opens (creating if needed) the history of the build tree at root
func Open(root string) (*History, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}

	dbPath := filepath.Join(root, DBName)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}

	return &History{
		db:    db,
		root:  root,
		runID: uuid.New().String(),
	}, nil
}

// RunID identifies this invocation in recorded entries
func (h *History) RunID() string {
	return h.runID
}

// Close closes the history database
func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}

	return nil
}

// Record stores e as the latest entry for its output. RunID, CommandHash and
// SourceHash are filled in, and diagnostics are stored compressed.
func (h *History) Record(e Entry, diagnostics []byte) error {
	e.RunID = h.runID
	e.CommandHash = HashCommand(e.Command)

	if e.Source != "" {
		sum, err := HashFile(e.Source)
		if err != nil {
			return err
		}
		e.SourceHash = sum
	}

	compressed, err := compress(diagnostics)
	if err != nil {
		return err
	}
	e.Diagnostics = compressed

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	err = h.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(e.Output), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store history entry: %w", err)
	}

	return nil
}

// Get returns the entry for output, or nil if it was never built
func (h *History) Get(output string) (*Entry, error) {
	var entry *Entry

	err := h.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(output))
		if data == nil {
			return nil
		}

		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}

	return entry, nil
}

// List returns every entry ordered by output path
func (h *History) List() ([]*Entry, error) {
	var entries []*Entry

	err := h.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}

			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return entries, nil
}

// Clear removes all entries
func (h *History) Clear() error {
	err := h.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	return nil
}

// Stats returns the number of entries and the total size of the build tree
func (h *History) Stats() (int, int64, error) {
	var count int
	var totalSize int64

	err := h.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	err = filepath.Walk(h.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if !info.IsDir() {
			totalSize += info.Size()
		}

		return nil
	})

	return count, totalSize, err
}
