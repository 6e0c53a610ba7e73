package docstore

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps encoded documents in process. It is used for local
// demo runs and tests, and goes through the same JSON codec as the
// postgres backend.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data Fields) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data Fields, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	if merge {
		if existing, ok := coll[id]; ok {
			return s.mergeLocked(coll, id, existing, data)
		}
	}
	b, err := marshalFields(data)
	if err != nil {
		return err
	}
	coll[id] = b
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	b, ok := s.collections[collection][id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	data, err := unmarshalFields(b)
	if err != nil {
		return nil, err
	}
	return &Document{ID: id, Data: data}, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, data Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	existing, ok := coll[id]
	if !ok {
		return ErrNotFound
	}
	return s.mergeLocked(coll, id, existing, data)
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.validate(); err != nil {
		return nil, err
	}

	filters := make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, err
		}
		filters[i] = Filter{Field: f.Field, Op: f.Op, Value: v}
	}

	s.mu.RLock()
	docs := make([]Document, 0, len(s.collections[collection]))
	for id, b := range s.collections[collection] {
		data, err := unmarshalFields(b)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if matchesAll(data, filters) {
			docs = append(docs, Document{ID: id, Data: data})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(docs, func(i, j int) bool {
		if q.OrderBy == "" {
			return docs[i].ID < docs[j].ID
		}
		c, ok := compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
		if !ok || c == 0 {
			return docs[i].ID < docs[j].ID
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) collection(name string) map[string][]byte {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string][]byte)
		s.collections[name] = coll
	}
	return coll
}

func (s *MemoryStore) mergeLocked(coll map[string][]byte, id string, existing []byte, data Fields) error {
	current, err := unmarshalFields(existing)
	if err != nil {
		return err
	}
	for k, v := range data {
		current[k] = v
	}
	b, err := marshalFields(current)
	if err != nil {
		return err
	}
	coll[id] = b
	return nil
}

func matchesAll(data Fields, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		c, comparable := compareValues(v, f.Value)
		switch f.Op {
		case OpEqual:
			if comparable {
				if c != 0 {
					return false
				}
			} else if !reflect.DeepEqual(v, f.Value) {
				return false
			}
		case OpLess:
			if !comparable || c >= 0 {
				return false
			}
		case OpGreater:
			if !comparable || c <= 0 {
				return false
			}
		}
	}
	return true
}

// compareValues orders two decoded scalar values of the same kind.
func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}
