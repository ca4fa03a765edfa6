// Package session keeps per-visitor state between requests. Values are stored
// as JSON so every Store backend sees the same encoding.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID       string
	values   map[string]json.RawMessage
	modified bool
	isNew    bool
}

func New(id string) *Session {
	return &Session{ID: id, values: map[string]json.RawMessage{}, isNew: true}
}

// Get decodes the value stored under key into dst. It reports false when the
// key is absent.
func (s *Session) Get(key string, dst any) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode session key %q: %w", key, err)
	}
	return true, nil
}

func (s *Session) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session key %q: %w", key, err)
	}
	s.values[key] = raw
	s.modified = true
	return nil
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.modified = true
	}
}

func (s *Session) Modified() bool { return s.modified }
func (s *Session) IsNew() bool    { return s.isNew }

func (s *Session) encode() ([]byte, error) {
	return json.Marshal(s.values)
}

func decode(id string, data []byte) (*Session, error) {
	values := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &Session{ID: id, values: values}, nil
}
