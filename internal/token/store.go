package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/splwallet/internal/storage"
)

// ErrUnknownMint is returned by Get when nothing is stored for a mint.
var ErrUnknownMint = errors.New("unknown mint")

var prefixMint = []byte("m/") // m/<mint base58> -> Metadata JSON

// Store persists mint metadata.
type Store struct {
	db *storage.PrefixDB
}

// NewStore creates a mint metadata store over db.
func NewStore(db storage.DB) *Store {
	return &Store{db: storage.NewPrefixDB(db, prefixMint)}
}

// Put stores metadata for a mint.
func (s *Store) Put(meta *Metadata) error {
	if meta.Mint == "" {
		return fmt.Errorf("token put: empty mint")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("token marshal: %w", err)
	}
	return s.db.Put([]byte(meta.Mint), data)
}

// Get retrieves metadata for a mint.
func (s *Store) Get(mint string) (*Metadata, error) {
	data, err := s.db.Get([]byte(mint))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	if err != nil {
		return nil, fmt.Errorf("token get: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("token unmarshal: %w", err)
	}
	return &meta, nil
}

// Has checks if metadata exists for a mint.
func (s *Store) Has(mint string) (bool, error) {
	return s.db.Has([]byte(mint))
}

// Forget removes a single mint.
func (s *Store) Forget(mint string) error {
	return s.db.Delete([]byte(mint))
}

// List returns all stored mints ordered by mint address.
func (s *Store) List() ([]Metadata, error) {
	entries := []Metadata{}
	err := s.db.ForEach(nil, func(_, value []byte) error {
		var meta Metadata
		if err := json.Unmarshal(value, &meta); err != nil {
			return nil // Skip corrupt entries.
		}
		entries = append(entries, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Mint < entries[j].Mint })
	return entries, nil
}

// Reset drops every stored mint and returns how many were removed.
func (s *Store) Reset() (int, error) {
	return s.db.DeleteAll()
}
