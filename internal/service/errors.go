package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound    = errors.New("service: event not found")
	ErrInvalidPage = errors.New("service: invalid page")
	// ErrInternal wraps failures the caller cannot fix by changing input.
	ErrInternal = errors.New("service: internal error")
)

// ValidationError collects every rejected field of a request. Values are
// either []string or, for the nested recurrence rule, map[string][]string.
type ValidationError struct {
	Fields map[string]any
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("service: validation failed: %s", strings.Join(keys, ", "))
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	switch cur := e.Fields[field].(type) {
	case []string:
		e.Fields[field] = append(cur, msg)
	default:
		e.Fields[field] = []string{msg}
	}
}

func (e *ValidationError) nest(field string, inner map[string][]string) {
	if len(inner) == 0 {
		return
	}
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	merged, _ := e.Fields[field].(map[string][]string)
	if merged == nil {
		merged = make(map[string][]string, len(inner))
	}
	for k, v := range inner {
		merged[k] = append(merged[k], v...)
	}
	e.Fields[field] = merged
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}
