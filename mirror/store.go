// Package mirror keeps a local copy of the bridge configuration and applies
// every mutation to the bridge first and to the copy second.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/persist"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	storeKey     = "mirror.json"
	storeVersion = 1
)

// Types lists the mirrored resource types in refresh order.
var Types = []hue.ResourceType{
	hue.RTypeRoom,
	hue.RTypeZone,
	hue.RTypeDevice,
	hue.RTypeScene,
	hue.RTypeBehaviorInstance,
	hue.RTypeLight,
	hue.RTypeButton,
	hue.RTypeDevicePower,
}

func Mirrored(rtype hue.ResourceType) bool {
	return slices.Contains(Types, rtype)
}

type storeDoc struct {
	Version     int                                    `json:"version"`
	RefreshedAt time.Time                              `json:"refreshed_at"`
	Drifted     bool                                   `json:"drifted,omitempty"`
	Resources   map[hue.ResourceType][]json.RawMessage `json:"resources"`
}

// Store is the in-memory mirror backed by one persisted document. Reads never
// touch the bridge.
type Store struct {
	backend persist.Backend

	mu          sync.RWMutex
	docs        map[hue.ResourceType]map[string]json.RawMessage
	refreshedAt time.Time
	drifted     bool

	// Derived from room children on every change.
	roomOfDevice  map[string]string
	devicesOfRoom map[string][]string
}

func NewStore(backend persist.Backend) *Store {
	s := &Store{backend: backend}
	s.reset(nil, time.Time{})
	return s
}

// Load reads the persisted mirror. A missing document leaves the store empty.
func (s *Store) Load(ctx context.Context) error {
	b, err := s.backend.Load(ctx, storeKey)
	if errors.Is(err, persist.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load mirror: %w", err)
	}

	var doc storeDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decode mirror: %w", err)
	}
	if doc.Version != storeVersion {
		return fmt.Errorf("mirror version %d not supported", doc.Version)
	}

	docs := make(map[hue.ResourceType]map[string]json.RawMessage)
	for rtype, list := range doc.Resources {
		for _, raw := range list {
			var h hue.Header
			if err := json.Unmarshal(raw, &h); err != nil {
				return fmt.Errorf("decode mirrored %s: %w", rtype, err)
			}
			if docs[rtype] == nil {
				docs[rtype] = make(map[string]json.RawMessage)
			}
			docs[rtype][h.ID] = raw
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(docs, doc.RefreshedAt)
	s.drifted = doc.Drifted
	return nil
}

func (s *Store) reset(docs map[hue.ResourceType]map[string]json.RawMessage, refreshedAt time.Time) {
	s.docs = make(map[hue.ResourceType]map[string]json.RawMessage, len(Types))
	for _, t := range Types {
		s.docs[t] = make(map[string]json.RawMessage)
	}
	for t, byID := range docs {
		if !Mirrored(t) {
			continue
		}
		for id, doc := range byID {
			s.docs[t][id] = doc
		}
	}
	s.refreshedAt = refreshedAt
	s.drifted = false
	s.reindex()
}

func (s *Store) reindex() {
	s.roomOfDevice = make(map[string]string)
	s.devicesOfRoom = make(map[string][]string)
	for roomID, raw := range s.docs[hue.RTypeRoom] {
		var room hue.Group
		if err := json.Unmarshal(raw, &room); err != nil {
			continue
		}
		for _, deviceID := range room.ChildrenOf(hue.RTypeDevice) {
			s.roomOfDevice[deviceID] = roomID
			s.devicesOfRoom[roomID] = append(s.devicesOfRoom[roomID], deviceID)
		}
	}
	for _, ids := range s.devicesOfRoom {
		sort.Strings(ids)
	}
}

// persist writes the current state. Callers hold the write lock.
func (s *Store) persist(ctx context.Context) error {
	doc := storeDoc{
		Version:     storeVersion,
		RefreshedAt: s.refreshedAt,
		Drifted:     s.drifted,
		Resources:   make(map[hue.ResourceType][]json.RawMessage, len(s.docs)),
	}
	for t, byID := range s.docs {
		doc.Resources[t] = sortedDocs(byID)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, storeKey, b)
}

func sortedDocs(byID map[string]json.RawMessage) []json.RawMessage {
	ids := maps.Keys(byID)
	sort.Strings(ids)
	out := make([]json.RawMessage, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out
}

// replace swaps in a complete set of resources. The in-memory state changes
// even when persisting fails; the error is then reported to the caller.
func (s *Store) replace(ctx context.Context, docs map[hue.ResourceType]map[string]json.RawMessage, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(docs, at)
	return s.save(ctx)
}

func (s *Store) put(ctx context.Context, rtype hue.ResourceType, id string, doc json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.docs[rtype]
	if !ok {
		return nil
	}
	byID[id] = doc
	if rtype == hue.RTypeRoom {
		s.reindex()
	}
	return s.save(ctx)
}

func (s *Store) remove(ctx context.Context, rtype hue.ResourceType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[rtype], id)
	if rtype == hue.RTypeRoom {
		s.reindex()
	}
	return s.save(ctx)
}

// apply runs fn under the write lock and persists once afterwards.
func (s *Store) apply(ctx context.Context, fn func(docs map[hue.ResourceType]map[string]json.RawMessage) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !fn(s.docs) {
		return nil
	}
	s.reindex()
	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	if err := s.persist(ctx); err != nil {
		s.drifted = true
		return err
	}
	return nil
}

func (s *Store) markDrifted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drifted = true
}

// Get returns one cached resource document.
func (s *Store) Get(rtype hue.ResourceType, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[rtype][id]
	if !ok {
		return nil, &hueerr.NotFoundError{Kind: string(rtype), Query: id}
	}
	return doc, nil
}

// Has reports whether a resource is cached.
func (s *Store) Has(rtype hue.ResourceType, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[rtype][id]
	return ok
}

// List returns every cached document of one type ordered by id.
func (s *Store) List(rtype hue.ResourceType) []json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedDocs(s.docs[rtype])
}

func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, byID := range s.docs {
		if len(byID) > 0 {
			return false
		}
	}
	return s.refreshedAt.IsZero()
}

func (s *Store) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// Drifted reports whether a mutation reached the bridge without being
// persisted locally since the last refresh.
func (s *Store) Drifted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drifted
}

// RoomOf returns the room a device is a child of.
func (s *Store) RoomOf(deviceID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.roomOfDevice[deviceID]
	return roomID, ok
}

// DevicesIn returns the ids of the devices in a room, sorted.
func (s *Store) DevicesIn(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.devicesOfRoom[roomID])
}

type Info struct {
	Exists      bool
	RefreshedAt time.Time
	Age         time.Duration
	Stale       bool
	Drifted     bool
	Counts      map[hue.ResourceType]int
}

func (s *Store) Info(now time.Time, maxAge time.Duration) Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		Exists:      !s.refreshedAt.IsZero(),
		RefreshedAt: s.refreshedAt,
		Drifted:     s.drifted,
		Counts:      make(map[hue.ResourceType]int, len(s.docs)),
	}
	for t, byID := range s.docs {
		info.Counts[t] = len(byID)
	}
	if info.Exists {
		info.Age = now.Sub(s.refreshedAt)
	}
	info.Stale = !info.Exists || s.drifted || info.Age > maxAge
	return info
}

func decodeAll[T any](docs []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, raw := range docs {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) Rooms() ([]hue.Group, error) { return decodeAll[hue.Group](s.List(hue.RTypeRoom)) }

func (s *Store) Zones() ([]hue.Group, error) { return decodeAll[hue.Group](s.List(hue.RTypeZone)) }

func (s *Store) Devices() ([]hue.Device, error) {
	return decodeAll[hue.Device](s.List(hue.RTypeDevice))
}

func (s *Store) Scenes() ([]hue.Scene, error) { return decodeAll[hue.Scene](s.List(hue.RTypeScene)) }

func (s *Store) Behaviors() ([]hue.BehaviorInstance, error) {
	return decodeAll[hue.BehaviorInstance](s.List(hue.RTypeBehaviorInstance))
}

func (s *Store) Lights() ([]hue.Light, error) { return decodeAll[hue.Light](s.List(hue.RTypeLight)) }

func (s *Store) Buttons() ([]hue.Button, error) {
	return decodeAll[hue.Button](s.List(hue.RTypeButton))
}

// Decode unmarshals one cached resource into v.
func (s *Store) Decode(rtype hue.ResourceType, id string, v any) error {
	raw, err := s.Get(rtype, id)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
