package plugin

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-deck/internal/protocol"
)

// DevicesChangedFunc observes device set changes.
type DevicesChangedFunc func(added, removed []string)

// Store is the process-wide state mutated by the dispatcher's built-in
// reactions: the most recent message, global settings, connected devices
// and user info. Readers receive copies.
type Store struct {
	mu             sync.RWMutex
	current        *protocol.Message
	globalSettings json.RawMessage
	devices        map[string]struct{}
	userInfo       json.RawMessage

	observersMu  sync.Mutex
	observers    []deviceObserver
	nextObserver uint64
}

type deviceObserver struct {
	id uint64
	fn DevicesChangedFunc
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{devices: make(map[string]struct{})}
}

// Current returns the most recently dispatched message.
func (s *Store) Current() (protocol.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return protocol.Message{}, false
	}
	return s.current.Clone(), true
}

// GlobalSettings returns a copy of the global settings.
func (s *Store) GlobalSettings() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRaw(s.globalSettings)
}

// DecodeGlobalSettings unmarshals the global settings into v; empty
// settings leave v untouched.
func (s *Store) DecodeGlobalSettings(v any) error {
	raw := s.GlobalSettings()
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// UserInfo returns a copy of the last user info payload.
func (s *Store) UserInfo() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRaw(s.userInfo)
}

// Devices returns the connected device ids in sorted order.
func (s *Store) Devices() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.devices))
	for d := range s.devices {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// HasDevice reports whether device is connected.
func (s *Store) HasDevice(device string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.devices[device]
	return ok
}

// OnDevicesChanged registers fn to run after every device set change.
// The returned func removes it; calling it again is a no-op.
func (s *Store) OnDevicesChanged(fn DevicesChangedFunc) (remove func()) {
	s.observersMu.Lock()
	s.nextObserver++
	id := s.nextObserver
	s.observers = append(s.observers, deviceObserver{id: id, fn: fn})
	s.observersMu.Unlock()

	return func() {
		s.observersMu.Lock()
		defer s.observersMu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) setCurrent(msg protocol.Message) {
	c := msg.Clone()
	s.mu.Lock()
	s.current = &c
	s.mu.Unlock()
}

func (s *Store) setGlobalSettings(raw json.RawMessage) {
	s.mu.Lock()
	s.globalSettings = cloneRaw(raw)
	s.mu.Unlock()
}

func (s *Store) setUserInfo(raw json.RawMessage) {
	s.mu.Lock()
	s.userInfo = cloneRaw(raw)
	s.mu.Unlock()
}

func (s *Store) addDevice(device string) {
	s.mu.Lock()
	_, exists := s.devices[device]
	s.devices[device] = struct{}{}
	s.mu.Unlock()

	if !exists {
		s.notify([]string{device}, nil)
	}
}

func (s *Store) removeDevice(device string) {
	s.mu.Lock()
	_, exists := s.devices[device]
	delete(s.devices, device)
	s.mu.Unlock()

	if exists {
		s.notify(nil, []string{device})
	}
}

func (s *Store) notify(added, removed []string) {
	s.observersMu.Lock()
	observers := append([]deviceObserver(nil), s.observers...)
	s.observersMu.Unlock()

	for _, o := range observers {
		o.fn(added, removed)
	}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
