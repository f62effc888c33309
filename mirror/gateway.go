package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"golang.org/x/exp/slog"
)

const DefaultMaxAge = 24 * time.Hour

// Bridge is the part of *hue.Client the gateway calls.
type Bridge interface {
	List(ctx context.Context, rtype hue.ResourceType) ([]json.RawMessage, error)
	Create(ctx context.Context, rtype hue.ResourceType, body any) (hue.ResourceRef, error)
	Update(ctx context.Context, rtype hue.ResourceType, id string, body any) error
	Delete(ctx context.Context, rtype hue.ResourceType, id string) error
}

// Gateway executes mutations against the bridge and, only once the bridge
// accepted them, applies the same change to the Store.
type Gateway struct {
	log     *slog.Logger
	bridge  Bridge
	store   *Store
	journal *Journal
	maxAge  time.Duration
	now     func() time.Time
}

func NewGateway(log *slog.Logger, bridge Bridge, store *Store, maxAge time.Duration) *Gateway {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Gateway{
		log:     log,
		bridge:  bridge,
		store:   store,
		journal: &Journal{log: log, backend: store.backend},
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (g *Gateway) Store() *Store { return g.store }

func (g *Gateway) Journal() *Journal { return g.journal }

// Refresh reads every mirrored type from the bridge and replaces the store.
// If any read fails the store is left as it was.
func (g *Gateway) Refresh(ctx context.Context) error {
	docs := make(map[hue.ResourceType]map[string]json.RawMessage, len(Types))
	for _, rtype := range Types {
		list, err := g.bridge.List(ctx, rtype)
		if err != nil {
			g.log.Error("refresh failed", slog.String("type", string(rtype)), slog.Any("error", err))
			return &hueerr.RemoteError{Op: "list", Type: string(rtype), Err: err}
		}

		byID := make(map[string]json.RawMessage, len(list))
		for _, raw := range list {
			var h hue.Header
			if err := json.Unmarshal(raw, &h); err != nil || h.ID == "" {
				g.log.Warn("skipping resource without id", slog.String("type", string(rtype)))
				continue
			}
			byID[h.ID] = raw
		}
		docs[rtype] = byID
	}

	at := g.now()
	if err := g.store.replace(ctx, docs, at); err != nil {
		return &hueerr.StaleCacheWarning{
			RefreshedAt: at,
			Reason:      "refreshed mirror could not be persisted",
			Err:         err,
		}
	}

	g.log.Info("mirror refreshed", slog.Time("refreshed_at", at))
	return nil
}

// Stale reports whether the mirror is older than the freshness window, has
// never been refreshed, or drifted from the bridge.
func (g *Gateway) Stale() bool {
	return g.Info().Stale
}

func (g *Gateway) Info() Info {
	return g.store.Info(g.now(), g.maxAge)
}

// Freshness returns a *hueerr.StaleCacheWarning when the mirror is stale and
// nil otherwise. Reads keep working either way.
func (g *Gateway) Freshness() error {
	info := g.Info()
	if !info.Stale {
		return nil
	}
	reason := "older than " + g.maxAge.String()
	switch {
	case !info.Exists:
		reason = "never refreshed"
	case info.Drifted:
		reason = "local changes were not persisted"
	}
	return &hueerr.StaleCacheWarning{RefreshedAt: info.RefreshedAt, Age: info.Age, Reason: reason}
}

// EnsureFresh refreshes when forced, when the store is empty or when it is
// stale. An unforced refresh that cannot reach the bridge falls back to a
// non-empty mirror and returns the Freshness warning instead.
func (g *Gateway) EnsureFresh(ctx context.Context, force bool) error {
	if !force && !g.store.Empty() && !g.Stale() {
		return nil
	}
	err := g.Refresh(ctx)
	if force || g.store.Empty() || !errors.Is(err, hueerr.ErrRemote) {
		return err
	}
	var stale *hueerr.StaleCacheWarning
	if !errors.As(g.Freshness(), &stale) {
		return err
	}
	stale.Reason = fmt.Sprintf("bridge unreachable (%v), %s", err, stale.Reason)
	g.log.Warn("using cached mirror", slog.String("reason", stale.Reason))
	return stale
}

// Get reads from the store only.
func (g *Gateway) Get(rtype hue.ResourceType, id string) (json.RawMessage, error) {
	return g.store.Get(rtype, id)
}

// Create posts a new resource and caches the payload under the assigned id.
func (g *Gateway) Create(ctx context.Context, rtype hue.ResourceType, payload any) (hue.ResourceRef, error) {
	fields, err := toFields(payload)
	if err != nil {
		return hue.ResourceRef{}, err
	}

	ref, err := g.bridge.Create(ctx, rtype, payload)
	if err != nil {
		g.log.Error("create failed", slog.String("type", string(rtype)), slog.Any("error", err))
		return hue.ResourceRef{}, &hueerr.RemoteError{Op: "create", Type: string(rtype), Err: err}
	}
	g.log.Info("resource created", slog.String("op", "create"),
		slog.String("type", string(rtype)), slog.String("id", ref.ID))

	fields["id"] = mustMarshal(ref.ID)
	fields["type"] = mustMarshal(rtype)
	doc := mustMarshal(fields)

	g.journal.record(ctx, g.now(), "create", rtype, ref.ID, doc)
	if !Mirrored(rtype) {
		return ref, nil
	}
	if err := g.store.put(ctx, rtype, ref.ID, doc); err != nil {
		return ref, g.driftWarning("create", rtype, ref.ID, err)
	}
	return ref, nil
}

// Update sends a partial document and merges its top-level fields into the
// cached copy.
func (g *Gateway) Update(ctx context.Context, rtype hue.ResourceType, id string, payload any) error {
	fields, err := toFields(payload)
	if err != nil {
		return err
	}

	if err := g.bridge.Update(ctx, rtype, id, payload); err != nil {
		g.log.Error("update failed", slog.String("type", string(rtype)),
			slog.String("id", id), slog.Any("error", err))
		return &hueerr.RemoteError{Op: "update", Type: string(rtype), ID: id, Err: err}
	}
	g.log.Info("resource updated", slog.String("op", "update"),
		slog.String("type", string(rtype)), slog.String("id", id))
	g.journal.record(ctx, g.now(), "update", rtype, id, mustMarshal(fields))
	if !Mirrored(rtype) {
		return nil
	}

	cached, err := g.store.Get(rtype, id)
	if err != nil {
		// The bridge has a resource we never saw; a partial document would
		// be worse than none.
		g.store.markDrifted()
		return g.driftWarning("update", rtype, id, fmt.Errorf("%s/%s is not cached", rtype, id))
	}
	merged, err := mergeFields(cached, fields)
	if err != nil {
		g.store.markDrifted()
		return g.driftWarning("update", rtype, id, err)
	}
	if err := g.store.put(ctx, rtype, id, merged); err != nil {
		return g.driftWarning("update", rtype, id, err)
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, rtype hue.ResourceType, id string) error {
	if err := g.bridge.Delete(ctx, rtype, id); err != nil {
		g.log.Error("delete failed", slog.String("type", string(rtype)),
			slog.String("id", id), slog.Any("error", err))
		return &hueerr.RemoteError{Op: "delete", Type: string(rtype), ID: id, Err: err}
	}
	g.log.Info("resource deleted", slog.String("op", "delete"),
		slog.String("type", string(rtype)), slog.String("id", id))
	g.journal.record(ctx, g.now(), "delete", rtype, id, nil)
	if !Mirrored(rtype) {
		return nil
	}

	if err := g.store.remove(ctx, rtype, id); err != nil {
		return g.driftWarning("delete", rtype, id, err)
	}
	return nil
}

func (g *Gateway) driftWarning(op string, rtype hue.ResourceType, id string, err error) error {
	g.log.Warn("bridge changed but mirror is out of date",
		slog.String("op", op), slog.String("type", string(rtype)),
		slog.String("id", id), slog.Any("error", err))
	return &hueerr.StaleCacheWarning{
		RefreshedAt: g.store.RefreshedAt(),
		Reason:      fmt.Sprintf("%s of %s/%s succeeded on the bridge but not locally", op, rtype, id),
		Err:         err,
	}
}

// ApplyEvent folds a bridge event into the store without a remote read.
// Updates only touch resources that are already cached.
func (g *Gateway) ApplyEvent(ctx context.Context, event hue.Event) error {
	err := g.store.apply(ctx, func(docs map[hue.ResourceType]map[string]json.RawMessage) bool {
		changed := false
		for _, res := range event.Data {
			if !Mirrored(res.Type) {
				continue
			}
			switch event.Type {
			case "add":
				docs[res.Type][res.ID] = res.Raw
				changed = true
			case "update":
				cached, ok := docs[res.Type][res.ID]
				if !ok {
					continue
				}
				var fields map[string]json.RawMessage
				if err := json.Unmarshal(res.Raw, &fields); err != nil {
					g.log.Warn("undecodable event resource", slog.String("id", res.ID), slog.Any("error", err))
					continue
				}
				merged, err := mergeFields(cached, fields)
				if err != nil {
					g.log.Warn("cannot merge event", slog.String("id", res.ID), slog.Any("error", err))
					continue
				}
				docs[res.Type][res.ID] = merged
				changed = true
			case "delete":
				if _, ok := docs[res.Type][res.ID]; ok {
					delete(docs[res.Type], res.ID)
					changed = true
				}
			}
		}
		return changed
	})
	if err != nil {
		return &hueerr.StaleCacheWarning{
			RefreshedAt: g.store.RefreshedAt(),
			Reason:      "event " + event.ID + " could not be persisted",
			Err:         err,
		}
	}
	return nil
}

// toFields turns a payload into its top-level JSON fields. Payloads must be
// JSON objects.
func toFields(payload any) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		return nil, &hueerr.InvariantError{Reason: "payload must be a JSON object"}
	}
	return fields, nil
}

func mergeFields(doc json.RawMessage, fields map[string]json.RawMessage) (json.RawMessage, error) {
	var current map[string]json.RawMessage
	if err := json.Unmarshal(doc, &current); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if k == "id" || k == "type" {
			continue
		}
		current[k] = v
	}
	return json.Marshal(current)
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
