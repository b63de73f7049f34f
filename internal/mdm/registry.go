package mdm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// KindAttachment is the registry kind of an uploaded media file.
const KindAttachment = "attachment"

// ErrNotFound is returned by a Registry when no record has the given id.
var ErrNotFound = errors.New("media not found")

// Entry is a registry record as seen by the pass.
type Entry struct {
	ID   int64
	Kind string
}

// IsAttachment reports whether the record is an uploaded media file.
func (e Entry) IsAttachment() bool { return e.Kind == KindAttachment }

// Registry looks up content records by id. Lookups are read-only.
type Registry interface {
	Lookup(ctx context.Context, id int64) (Entry, error)
}

// MapRegistry is an in-memory Registry keyed by id.
type MapRegistry struct {
	mu    sync.RWMutex
	kinds map[int64]string
}

// NewMapRegistry returns an empty MapRegistry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{kinds: make(map[int64]string)}
}

// LoadMapRegistry reads a JSON object mapping decimal ids to kinds,
// e.g. {"5": "attachment", "7": "post"}.
func LoadMapRegistry(r io.Reader) (*MapRegistry, error) {
	var raw map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	reg := NewMapRegistry()
	for k, kind := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("registry id %q: %w", k, err)
		}
		reg.Set(id, kind)
	}
	return reg, nil
}

// Set records the kind for id.
func (m *MapRegistry) Set(id int64, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds[id] = kind
}

// Lookup implements Registry.
func (m *MapRegistry) Lookup(_ context.Context, id int64) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kind, ok := m.kinds[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{ID: id, Kind: kind}, nil
}
