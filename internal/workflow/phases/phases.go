// Package phases holds the business logic for each step of the seller
// recovery workflow. Handlers receive a trigger whose metadata was
// validated at the HTTP boundary, talk to the recovery repos, and return
// a JobResult. Infrastructure errors are returned as Go errors so the
// queue can retry; expected business outcomes (no claims found, all
// matches rejected) come back as Success=false and are never retried.
package phases

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func metaString(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// metaInt tolerates both float64 (JSON decoding) and int (direct Go
// callers, tests).
func metaInt(meta map[string]any, key string) (int, bool) {
	switch v := meta[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func metaInt64(meta map[string]any, key string) (int64, bool) {
	switch v := meta[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func metaSlice(meta map[string]any, key string) []any {
	v, ok := meta[key]
	if !ok {
		return nil
	}
	s, _ := v.([]any)
	return s
}

func metaUUID(meta map[string]any, key string) (uuid.UUID, error) {
	raw := metaString(meta, key)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return id, nil
}

// SoftFailures collects per-item errors in batch phases. A phase that
// processes some items successfully reports the failures in its result
// message instead of failing the whole attempt.
type SoftFailures struct {
	items []string
}

func (s *SoftFailures) Add(key string, err error) {
	s.items = append(s.items, fmt.Sprintf("%s: %v", key, err))
}

func (s *SoftFailures) Len() int { return len(s.items) }

func (s *SoftFailures) Summary() string {
	if len(s.items) == 0 {
		return ""
	}
	return strings.Join(s.items, "; ")
}
