// Package store provides a thin bbolt wrapper for gaflat's local data store.
//
// The store keeps raw batchGet responses under a user-chosen name so they
// can be re-rendered later in any format without calling the API again.
// Documents are only saved after they parse, so everything in the store is
// known to convert.
//
// Buckets:
//
//	responses   raw response documents plus metadata, keyed by name
//	_meta       internal: schema version, created_at
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/gaflat/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketResponses = []byte("responses")
	bucketInternal  = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"responses"}

// ErrNotFound is returned when a named entry does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketResponses, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Responses ────────────────────────────────────────────────────────────────

// Entry is the metadata kept alongside a stored response.
type Entry struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Source  string    `json:"source"`
	SavedAt time.Time `json:"saved_at"`
	Reports int       `json:"reports"`
	Rows    int       `json:"rows"`
	Bytes   int       `json:"bytes"`
}

// storedResponse is the on-disk envelope: metadata plus the raw document.
type storedResponse struct {
	Entry
	Raw json.RawMessage `json:"raw"`
}

// NormaliseName trims and lower-cases a store name and rejects empty or
// whitespace-containing names.
func NormaliseName(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", fmt.Errorf("store name must not be empty")
	}
	if strings.ContainsAny(n, " \t\n") {
		return "", fmt.Errorf("invalid store name %q: whitespace not allowed", name)
	}
	return n, nil
}

// PutResponse saves raw under name, replacing any existing entry.
// resp is the parsed form of raw and supplies the report and row counts.
func (s *Store) PutResponse(name, source string, raw []byte, resp *model.ReportResponse) (Entry, error) {
	key, err := NormaliseName(name)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		ID:      uuid.NewString(),
		Name:    key,
		Source:  source,
		SavedAt: time.Now().UTC(),
		Bytes:   len(raw),
	}
	if resp != nil {
		entry.Reports = len(resp.Reports)
		entry.Rows = resp.RowCount()
	}
	b, err := json.Marshal(storedResponse{Entry: entry, Raw: raw})
	if err != nil {
		return Entry{}, fmt.Errorf("encoding response: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResponses).Put([]byte(key), b)
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// GetResponse returns the metadata and raw document stored under name.
// Returns ErrNotFound if there is no such entry.
func (s *Store) GetResponse(name string) (Entry, []byte, error) {
	key, err := NormaliseName(name)
	if err != nil {
		return Entry{}, nil, err
	}
	var sr storedResponse
	var found bool
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketResponses).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &sr)
	})
	if err != nil {
		return Entry{}, nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	if !found {
		return Entry{}, nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return sr.Entry, []byte(sr.Raw), nil
}

// ListResponses returns metadata for every stored response, sorted by name.
func (s *Store) ListResponses() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResponses).ForEach(func(k, v []byte) error {
			var sr storedResponse
			if err := json.Unmarshal(v, &sr); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			entries = append(entries, sr.Entry)
			return nil
		})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, err
}

// DeleteResponse removes the entry stored under name.
// Returns ErrNotFound if there is no such entry.
func (s *Store) DeleteResponse(name string) error {
	key, err := NormaliseName(name)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		if b.Get([]byte(key)) == nil {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return b.Delete([]byte(key))
	})
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			_ = b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
