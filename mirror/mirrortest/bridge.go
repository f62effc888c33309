// Package mirrortest provides an in-memory bridge for tests.
package mirrortest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aldld/huebackup/hue"
)

var ErrInjected = errors.New("injected bridge failure")

// Call is one mutation received by the bridge.
type Call struct {
	Op   string
	Type hue.ResourceType
	ID   string
	Body json.RawMessage
}

// Bridge implements mirror.Bridge on top of maps. Creates assign ids
// "new-1", "new-2", ... in order.
type Bridge struct {
	mu     sync.Mutex
	docs   map[hue.ResourceType]map[string]json.RawMessage
	calls  []Call
	nextID int

	// Fail makes every call whose op and type match return ErrInjected.
	// Keys are "op" or "op/type", e.g. "list/scene" or "update".
	Fail map[string]bool
}

func NewBridge() *Bridge {
	return &Bridge{
		docs: make(map[hue.ResourceType]map[string]json.RawMessage),
		Fail: make(map[string]bool),
	}
}

// Add seeds a resource. doc must contain id and type.
func (b *Bridge) Add(doc string) {
	var h hue.Header
	if err := json.Unmarshal([]byte(doc), &h); err != nil || h.ID == "" {
		panic(fmt.Sprintf("mirrortest: bad seed document %s", doc))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.put(h.Type, h.ID, json.RawMessage(doc))
}

func (b *Bridge) put(rtype hue.ResourceType, id string, doc json.RawMessage) {
	if b.docs[rtype] == nil {
		b.docs[rtype] = make(map[string]json.RawMessage)
	}
	b.docs[rtype][id] = doc
}

// Doc returns the bridge's current document for a resource.
func (b *Bridge) Doc(rtype hue.ResourceType, id string) (json.RawMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[rtype][id]
	return doc, ok
}

// Calls returns the mutations received so far.
func (b *Bridge) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

func (b *Bridge) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

func (b *Bridge) failing(op string, rtype hue.ResourceType) bool {
	return b.Fail[op] || b.Fail[op+"/"+string(rtype)]
}

func (b *Bridge) List(_ context.Context, rtype hue.ResourceType) ([]json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing("list", rtype) {
		return nil, ErrInjected
	}
	ids := make([]string, 0, len(b.docs[rtype]))
	for id := range b.docs[rtype] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]json.RawMessage, len(ids))
	for i, id := range ids {
		out[i] = b.docs[rtype][id]
	}
	return out, nil
}

func (b *Bridge) Create(_ context.Context, rtype hue.ResourceType, body any) (hue.ResourceRef, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, _ := json.Marshal(body)
	if b.failing("create", rtype) {
		return hue.ResourceRef{}, ErrInjected
	}

	b.nextID++
	id := fmt.Sprintf("new-%d", b.nextID)
	b.calls = append(b.calls, Call{Op: "create", Type: rtype, ID: id, Body: raw})

	var fields map[string]any
	_ = json.Unmarshal(raw, &fields)
	fields["id"] = id
	fields["type"] = rtype
	doc, _ := json.Marshal(fields)
	b.put(rtype, id, doc)
	return hue.ResourceRef{ID: id, Type: rtype}, nil
}

func (b *Bridge) Update(_ context.Context, rtype hue.ResourceType, id string, body any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, _ := json.Marshal(body)
	if b.failing("update", rtype) {
		return ErrInjected
	}
	cur, ok := b.docs[rtype][id]
	if !ok {
		return fmt.Errorf("%s/%s: not found", rtype, id)
	}
	b.calls = append(b.calls, Call{Op: "update", Type: rtype, ID: id, Body: raw})

	var doc, fields map[string]json.RawMessage
	_ = json.Unmarshal(cur, &doc)
	_ = json.Unmarshal(raw, &fields)
	for k, v := range fields {
		doc[k] = v
	}
	merged, _ := json.Marshal(doc)
	b.docs[rtype][id] = merged
	return nil
}

func (b *Bridge) Delete(_ context.Context, rtype hue.ResourceType, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing("delete", rtype) {
		return ErrInjected
	}
	if _, ok := b.docs[rtype][id]; !ok {
		return fmt.Errorf("%s/%s: not found", rtype, id)
	}
	b.calls = append(b.calls, Call{Op: "delete", Type: rtype, ID: id})
	delete(b.docs[rtype], id)
	return nil
}
