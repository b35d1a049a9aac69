package store

import (
	"encoding/json"
)

// Key names a stored document and fixes its Go type. Default supplies the
// value returned when the document is absent or unusable; Validate, when
// set, rejects decoded values that must not reach callers.
type Key[T any] struct {
	Name     string
	Default  func() T
	Validate func(T) error
}

func (k Key[T]) fallback() T {
	if k.Default == nil {
		var zero T
		return zero
	}
	return k.Default()
}

// Get returns the value stored under k, or k's default when the value is
// missing, cannot be read, cannot be decoded or fails validation. Failures
// are logged and never returned.
func Get[T any](s *Store, k Key[T]) T {
	data, ok, err := s.load(k.Name)
	if err != nil {
		s.logger.Warn("storage read failed, using default", "key", k.Name, "error", err)
		return k.fallback()
	}
	if !ok {
		return k.fallback()
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger.Warn("stored value undecodable, using default", "key", k.Name, "error", err)
		return k.fallback()
	}
	if k.Validate != nil {
		if err := k.Validate(v); err != nil {
			s.logger.Warn("stored value invalid, using default", "key", k.Name, "error", err)
			return k.fallback()
		}
	}
	return v
}

// Set encodes v and stores it under k. A failed write is logged; the value
// stays visible to readers for the rest of the session.
func Set[T any](s *Store, k Key[T], v T) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("storage encode failed", "key", k.Name, "error", err)
		return
	}
	if err := s.save(k.Name, data); err != nil {
		s.logger.Warn("storage write failed", "key", k.Name, "error", err)
	}
}
