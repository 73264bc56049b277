package store

import (
	"context"
	"reflect"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps documents in process memory. It backs local development
// and tests; nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// Collection returns the named collection, creating it on first use.
func (s *MemoryStore) Collection(name string) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string]Document)}
		s.collections[name] = c
	}
	return c
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}

type memoryCollection struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]Document
}

func (c *memoryCollection) InsertOne(_ context.Context, doc Document) (string, error) {
	stored := clone(doc)

	var oid primitive.ObjectID
	switch id := stored[IDField].(type) {
	case primitive.ObjectID:
		oid = id
	case string:
		parsed, err := ParseID(id)
		if err != nil {
			return "", err
		}
		oid = parsed
	default:
		oid = primitive.NewObjectID()
	}
	stored[IDField] = oid

	c.mu.Lock()
	defer c.mu.Unlock()

	key := oid.Hex()
	if _, exists := c.docs[key]; !exists {
		c.order = append(c.order, key)
	}
	c.docs[key] = stored
	return key, nil
}

func (c *memoryCollection) FindOne(_ context.Context, filter Filter) (Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, key := range c.order {
		if doc := c.docs[key]; matches(doc, filter) {
			return clone(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (c *memoryCollection) FindByID(_ context.Context, id string) (Document, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.docs[oid.Hex()]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (c *memoryCollection) Find(_ context.Context, filter Filter) ([]Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := []Document{}
	for _, key := range c.order {
		if doc := c.docs[key]; matches(doc, filter) {
			docs = append(docs, clone(doc))
		}
	}
	return docs, nil
}

func (c *memoryCollection) UpdateByID(_ context.Context, id string, set Document) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.docs[oid.Hex()]
	if !ok {
		return ErrNotFound
	}
	updated := clone(doc)
	for k, v := range set {
		if k == IDField {
			continue
		}
		updated[k] = v
	}
	c.docs[oid.Hex()] = updated
	return nil
}

func (c *memoryCollection) DeleteByID(_ context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := oid.Hex()
	if _, ok := c.docs[key]; !ok {
		return ErrNotFound
	}
	delete(c.docs, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func matches(doc Document, filter Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if fa, ok := Float(a); ok {
		fb, ok := Float(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}
