package types

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// Set keeps insertion order so Array output is stable
type Set[T comparable] struct {
	hash  map[T]struct{}
	order []T
}

func NewSet[T comparable](values ...T) *Set[T] {
	set := &Set[T]{hash: make(map[T]struct{})}
	set.Insert(values...)
	return set
}

func (s *Set[T]) Insert(values ...T) {
	for _, value := range values {
		if _, found := s.hash[value]; found {
			continue
		}
		s.hash[value] = struct{}{}
		s.order = append(s.order, value)
	}
}

func (s *Set[T]) Exists(value T) bool {
	if s == nil {
		return false
	}
	_, found := s.hash[value]
	return found
}

func (s *Set[T]) Remove(value T) {
	if !s.Exists(value) {
		return
	}
	delete(s.hash, value)
	for idx, elem := range s.order {
		if elem == value {
			s.order = append(s.order[:idx], s.order[idx+1:]...)
			break
		}
	}
}

func (s *Set[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

func (s *Set[T]) Array() []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}

// SortedStrings returns the elements formatted and sorted
func (s *Set[T]) SortedStrings() []string {
	out := make([]string, 0, s.Len())
	for _, elem := range s.Array() {
		out = append(out, fmt.Sprint(elem))
	}
	sort.Strings(out)
	return out
}

func (s *Set[T]) String() string {
	return fmt.Sprintf("%v", s.Array())
}

func (s *Set[T]) MarshalJSON() ([]byte, error) {
	arr := s.Array()
	if arr == nil {
		arr = []T{}
	}
	return json.Marshal(arr)
}

func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var arr []T
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	s.hash = make(map[T]struct{})
	s.order = nil
	s.Insert(arr...)
	return nil
}
