package multiagent

import (
	"fmt"
	"sync"
	"time"
)

// EntryMetadata is the bookkeeping attached to every SharedMemory value
// (§3): who wrote it, when, and the monotonically increasing version.
type EntryMetadata struct {
	WrittenBy string         `json:"written_by"`
	WrittenAt time.Time      `json:"written_at"`
	Version   int            `json:"version"`
	UserMeta  map[string]any `json:"user_meta,omitempty"`
}

// Entry is one SharedMemory record.
type Entry struct {
	Value    any           `json:"value"`
	Metadata EntryMetadata `json:"metadata"`
}

// AccessLogEntry records one SharedMemory operation when logging is
// enabled.
type AccessLogEntry struct {
	Operation string    `json:"operation"`
	Key       string    `json:"key"`
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is a running tally of operation counts, exported alongside data.
type Stats struct {
	Writes  int `json:"writes"`
	Reads   int `json:"reads"`
	Deletes int `json:"deletes"`
}

// ExportedState is the snapshot/restore wire format for SharedMemory.
type ExportedState struct {
	Data       map[string]Entry `json:"data"`
	AccessLog  []AccessLogEntry `json:"access_log"`
	Statistics Stats            `json:"statistics"`
}

// SharedMemory is a process-local key/value store serialized under a
// single mutex so concurrent workers observe a linear history (§4.8, §5).
// It is the only designed shared-mutable resource in the multi-agent
// model.
type SharedMemory struct {
	mu         sync.Mutex
	data       map[string]Entry
	accessLog  []AccessLogEntry
	logEnabled bool
	stats      Stats
}

// NewSharedMemory builds an empty store. logAccess enables per-operation
// audit logging.
func NewSharedMemory(logAccess bool) *SharedMemory {
	return &SharedMemory{
		data:       make(map[string]Entry),
		logEnabled: logAccess,
	}
}

func (s *SharedMemory) record(op, key, agentID string) {
	if !s.logEnabled {
		return
	}
	s.accessLog = append(s.accessLog, AccessLogEntry{
		Operation: op,
		Key:       key,
		AgentID:   agentID,
		Timestamp: time.Now(),
	})
}

// Write sets value under key, bumping version (first write starts at 1).
func (s *SharedMemory) Write(key string, value any, writerID string, meta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := 1
	if existing, ok := s.data[key]; ok {
		version = existing.Metadata.Version + 1
	}
	s.data[key] = Entry{
		Value: value,
		Metadata: EntryMetadata{
			WrittenBy: writerID,
			WrittenAt: time.Now(),
			Version:   version,
			UserMeta:  meta,
		},
	}
	s.stats.Writes++
	s.record("write", key, writerID)
}

// Read returns the value at key, or def if absent. Reads do not bump
// version.
func (s *SharedMemory) Read(key string, readerID string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Reads++
	s.record("read", key, readerID)
	if e, ok := s.data[key]; ok {
		return e.Value
	}
	return def
}

// Delete removes key, reporting whether anything was removed.
func (s *SharedMemory) Delete(key string, deleterID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	s.stats.Deletes++
	s.record("delete", key, deleterID)
	return ok
}

// CompareAndSwap atomically replaces key's value with newValue only if the
// key exists and its current value equals expected. A missing key always
// fails and never creates the key.
func (s *SharedMemory) CompareAndSwap(key string, expected, newValue any, writerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[key]
	if !ok {
		s.record("cas", key, writerID)
		return false
	}
	if !equalValues(existing.Value, expected) {
		s.record("cas", key, writerID)
		return false
	}
	s.data[key] = Entry{
		Value: newValue,
		Metadata: EntryMetadata{
			WrittenBy: writerID,
			WrittenAt: time.Now(),
			Version:   existing.Metadata.Version + 1,
			UserMeta:  existing.Metadata.UserMeta,
		},
	}
	s.stats.Writes++
	s.record("cas", key, writerID)
	return true
}

// Append pushes item onto the list at key: absent becomes a one-element
// list, a list grows, a scalar becomes a two-element list [old, item].
func (s *SharedMemory) Append(key string, item any, writerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[key]
	version := 1
	var newValue any
	if !ok {
		newValue = []any{item}
	} else {
		version = existing.Metadata.Version + 1
		if list, ok := existing.Value.([]any); ok {
			newValue = append(append([]any(nil), list...), item)
		} else {
			newValue = []any{existing.Value, item}
		}
	}
	s.data[key] = Entry{
		Value: newValue,
		Metadata: EntryMetadata{
			WrittenBy: writerID,
			WrittenAt: time.Now(),
			Version:   version,
		},
	}
	s.stats.Writes++
	s.record("append", key, writerID)
}

// Increment adds delta to the numeric value at key, treating
// an absent key as zero. Fails (returns an error) if the current value is
// not numeric.
func (s *SharedMemory) Increment(key string, writerID string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[key]
	version := 1
	current := 0.0
	if ok {
		version = existing.Metadata.Version + 1
		n, isNum := asFloat(existing.Value)
		if !isNum {
			return 0, fmt.Errorf("value at key %q is not numeric", key)
		}
		current = n
	}
	result := current + delta
	s.data[key] = Entry{
		Value: result,
		Metadata: EntryMetadata{
			WrittenBy: writerID,
			WrittenAt: time.Now(),
			Version:   version,
		},
	}
	s.stats.Writes++
	s.record("increment", key, writerID)
	return result, nil
}

// Export snapshots the full store.
func (s *SharedMemory) Export() ExportedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make(map[string]Entry, len(s.data))
	for k, v := range s.data {
		data[k] = v
	}
	return ExportedState{
		Data:       data,
		AccessLog:  append([]AccessLogEntry(nil), s.accessLog...),
		Statistics: s.stats,
	}
}

// Import overwrites the store's contents from a prior Export.
func (s *SharedMemory) Import(state ExportedState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make(map[string]Entry, len(state.Data))
	for k, v := range state.Data {
		data[k] = v
	}
	s.data = data
	s.accessLog = append([]AccessLogEntry(nil), state.AccessLog...)
	s.stats = state.Statistics
}

func equalValues(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
