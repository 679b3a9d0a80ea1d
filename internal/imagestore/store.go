// Package imagestore buffers user-captured images per named slot until they
// are attached to a generation request. Values are data-URI strings; nothing
// is persisted beyond the session.
package imagestore

import (
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// DecodeError reports a failed read of a selected file. The slot's previous
// value is left untouched.
type DecodeError struct {
	Slot string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image for slot %s: %v", e.Slot, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Listener is notified after a slot is set or cleared. value is the new
// data URI, empty when the slot was cleared.
type Listener func(slotID, value string)

// Store holds at most one encoded image per slot name.
type Store struct {
	mu        sync.RWMutex
	slots     map[string]string
	listeners []Listener
}

func New() *Store {
	return &Store{
		slots: make(map[string]string),
	}
}

// Subscribe registers a listener for slot updates.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Set reads the selected file and stores it under slotID as a data URI,
// overwriting any previous value. Files without an image/* content type are
// skipped silently. Read failures return a *DecodeError and leave the slot
// unchanged. The returned bool reports whether the slot was written.
func (s *Store) Set(slotID, contentType string, r io.Reader) (bool, error) {
	if !strings.HasPrefix(contentType, "image/") {
		log.Printf("[ImageStore] Ignoring non-image file for slot %s (type=%s)", slotID, contentType)
		return false, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return false, &DecodeError{Slot: slotID, Err: err}
	}

	value := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))

	s.mu.Lock()
	s.slots[slotID] = value
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(slotID, value)
	}

	log.Printf("[ImageStore] Slot %s updated (%d bytes)", slotID, len(data))
	return true, nil
}

// Clear resets the slot to absent. Idempotent.
func (s *Store) Clear(slotID string) {
	s.mu.Lock()
	_, existed := s.slots[slotID]
	delete(s.slots, slotID)
	listeners := s.listeners
	s.mu.Unlock()

	if existed {
		for _, fn := range listeners {
			fn(slotID, "")
		}
		log.Printf("[ImageStore] Slot %s cleared", slotID)
	}
}

// Get returns the slot's current value and whether it is present.
func (s *Store) Get(slotID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[slotID]
	return v, ok
}

// ValidateRequired reports whether every listed slot holds an image.
func (s *Store) ValidateRequired(requiredSlots []string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, slotID := range requiredSlots {
		if s.slots[slotID] == "" {
			log.Printf("[ImageStore] Missing required image slot: %s", slotID)
			return false
		}
	}
	return true
}

// Snapshot returns a copy of all filled slots. Payload builds work on the
// snapshot so a later slot change cannot mutate an in-flight build.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.slots))
	for k, v := range s.slots {
		out[k] = v
	}
	return out
}

// Slots returns the names of all filled slots.
func (s *Store) Slots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.slots))
	for k := range s.slots {
		names = append(names, k)
	}
	return names
}
