// Package settings reads the node's flat JSON settings file (conf.json).
//
// Every lookup takes the default to use when the key is absent, so callers
// state each key's fallback where they read it. Required keys are read with
// a zero default; an absent credential shows up as a failed association or
// a rejected upload rather than a load error.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("settings: key not found")

// Store is an immutable key/value view over the settings file.
type Store struct {
	values map[string]any
}

func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %q: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse settings %q: %w", path, err)
	}
	return s, nil
}

func Parse(data []byte) (*Store, error) {
	values := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	return &Store{values: values}, nil
}

// FromMap copies m into a new Store.
func FromMap(m map[string]any) *Store {
	values := make(map[string]any, len(m))
	for k, v := range m {
		values[k] = v
	}
	return &Store{values: values}
}

func (s *Store) Lookup(key string) (any, error) {
	if s == nil {
		return nil, ErrNotFound
	}
	v, ok := s.values[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	return v, nil
}

func (s *Store) Has(key string) bool {
	_, err := s.Lookup(key)
	return err == nil
}

func (s *Store) String(key, def string) string {
	v, err := s.Lookup(key)
	if err != nil {
		return def
	}
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Float returns def when the key is absent or its value is not numeric.
// Numeric strings ("2.0") are accepted.
func (s *Store) Float(key string, def float64) float64 {
	v, err := s.Lookup(key)
	if err != nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	return f
}

func (s *Store) Int(key string, def int) int {
	v, err := s.Lookup(key)
	if err != nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
		return def
	}
	return int(f)
}

// Millis reads a millisecond count, the unit the settings file uses for
// every period.
func (s *Store) Millis(key string, def time.Duration) time.Duration {
	v, err := s.Lookup(key)
	if err != nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	return time.Duration(f * float64(time.Millisecond))
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
