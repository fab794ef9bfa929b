package storage

import (
	"errors"
	"math"
	"slices"
	"strconv"
	"sync"
)

// ErrValueNotInteger is returned by Incr when the stored value is not a
// decimal int64 or is already math.MaxInt64.
var ErrValueNotInteger = errors.New("value is not integer")

// Store is a flat string map guarded by one mutex. Every method holds the
// lock for its whole body, so read-modify-write sequences such as Incr are
// atomic with respect to every other call.
type Store struct {
	mu   sync.Mutex
	data map[string]string
}

func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Set inserts or replaces the value for key.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok
}

// Del removes key and reports whether it was present.
func (s *Store) Del(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return false
	}
	delete(s.data, key)
	return true
}

func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Keys returns every key in ascending order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	slices.Sort(keys)
	return keys
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.data)
}

// Incr adds one to the integer stored at key, treating a missing key as 0,
// and stores the result as decimal text. The stored value is left untouched
// when it does not parse.
func (s *Store) Incr(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := int64(0)
	if value, ok := s.data[key]; ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, ErrValueNotInteger
		}
		if parsed == math.MaxInt64 {
			return 0, ErrValueNotInteger
		}
		current = parsed
	}
	current++
	s.data[key] = strconv.FormatInt(current, 10)
	return current, nil
}
