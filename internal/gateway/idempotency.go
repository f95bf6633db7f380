package gateway

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

// IdempotencyStore remembers the first successful response per request id
// for the life of the process. Entries never expire.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]domain.OrderResponse
	flight  singleflight.Group
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{entries: make(map[string]domain.OrderResponse)}
}

// TryGet returns the stored response for id.
func (s *IdempotencyStore) TryGet(id string) (domain.OrderResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.entries[id]
	return resp, ok
}

// Put stores resp under id unless an entry exists, and returns whichever
// response is stored afterwards.
func (s *IdempotencyStore) Put(id string, resp domain.OrderResponse) domain.OrderResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[id]; ok {
		return existing
	}
	s.entries[id] = resp
	return resp
}

// Len returns the number of stored responses.
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Do runs fn once for concurrent callers sharing id. Callers arriving while
// fn is in flight receive its result; shared reports that case.
func (s *IdempotencyStore) Do(id string, fn func() (domain.OrderResponse, error)) (resp domain.OrderResponse, shared bool, err error) {
	v, err, shared := s.flight.Do(id, func() (any, error) {
		return fn()
	})
	if err != nil {
		return domain.OrderResponse{}, shared, err
	}
	return v.(domain.OrderResponse), shared, nil
}
