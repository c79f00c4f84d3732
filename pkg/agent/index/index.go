// Package index provides Badger DB-backed storage for the latest known
// digest of every monitored file. The manifest stays the append-only
// audit trail; the index answers "what should this file hash to right
// now" without replaying it.
package index

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// prefixFile namespaces file entries so future record types can share
// the database.
const prefixFile = "f:"

// ErrNotFound is returned when a path has no index entry.
var ErrNotFound = errors.New("path not indexed")

// Entry is the latest recorded state of one monitored file.
type Entry struct {
	Path       string `json:"path"`
	Digest     string `json:"digest"`
	Size       int64  `json:"size"`
	ModTime    int64  `json:"mod_time"`
	RecordedAt int64  `json:"recorded_at"`
}

// Index is the digest store backed by Badger DB.
type Index struct {
	db *badger.DB
}

// Open opens or creates an index at the given path.
func Open(path string) (*Index, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Index{db: db}, nil
}

// Close closes the index.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Put stores an entry, stamping RecordedAt when the caller left it
// zero.
func (ix *Index) Put(entry *Entry) error {
	if entry.RecordedAt == 0 {
		entry.RecordedAt = time.Now().Unix()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return ix.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(entry.Path), data)
	})
}

// Get retrieves the entry for path, or ErrNotFound.
func (ix *Index) Get(path string) (*Entry, error) {
	var entry Entry

	err := ix.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(path))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// Delete removes the entry for path. Deleting an unindexed path is not
// an error.
func (ix *Index) Delete(path string) error {
	return ix.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(path))
	})
}

// All returns every entry sorted by path.
func (ix *Index) All() ([]*Entry, error) {
	var entries []*Entry

	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixFile)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return nil // Skip invalid entries
				}
				entries = append(entries, &entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

// Count returns the number of indexed files.
func (ix *Index) Count() (int64, error) {
	var count int64

	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixFile)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

func key(path string) []byte {
	return []byte(prefixFile + path)
}
