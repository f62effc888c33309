package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/match"
	"github.com/aldld/huebackup/mirror"
	"github.com/aldld/huebackup/persist"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Entry describes a stored snapshot without loading it.
type Entry struct {
	Key     string
	SavedAt time.Time
	ShortID string
	Slug    string
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// parseKey splits snapshots/<timestamp>_<short id>_<slug>.json.
func parseKey(key string) (Entry, bool) {
	name, ok := strings.CutPrefix(key, keyPrefix)
	if !ok || strings.Contains(name, "/") {
		return Entry{}, false
	}
	name, ok = strings.CutSuffix(name, ".json")
	idStart := len(keyTimeLayout) + 1
	slugStart := idStart + keyIDLen + 1
	if !ok || len(name) <= slugStart || name[idStart-1] != '_' || name[slugStart-1] != '_' {
		return Entry{}, false
	}
	at, err := time.ParseInLocation(keyTimeLayout, name[:len(keyTimeLayout)], time.Local)
	if err != nil {
		return Entry{}, false
	}
	id := name[idStart : slugStart-1]
	if !isHex(id) {
		return Entry{}, false
	}
	return Entry{Key: key, SavedAt: at, ShortID: id, Slug: name[slugStart:]}, true
}

type Snapshotter struct {
	log     *slog.Logger
	gw      *mirror.Gateway
	backend persist.Backend
	now     func() time.Time
	newID   func() string
}

func NewSnapshotter(log *slog.Logger, gw *mirror.Gateway, backend persist.Backend) *Snapshotter {
	return &Snapshotter{
		log:     log,
		gw:      gw,
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Save captures the room matching query and stores the snapshot.
func (s *Snapshotter) Save(ctx context.Context, query string) (*Snapshot, error) {
	room, err := s.gw.Store().FindRoom(query)
	if err != nil {
		return nil, err
	}
	snap, err := Capture(s.gw.Store(), room, s.now())
	if err != nil {
		return nil, err
	}
	snap.ID = s.newID()

	b, err := encode(snap)
	if err != nil {
		return nil, err
	}

	// Snapshots are never overwritten.
	switch _, err := s.backend.Load(ctx, snap.Key()); {
	case err == nil:
		return nil, &hueerr.InvariantError{Reason: "snapshot key already taken", IDs: []string{snap.Key()}}
	case !errors.Is(err, persist.ErrNotExist):
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	if err := s.backend.Save(ctx, snap.Key(), b); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	s.log.Info("snapshot saved",
		slog.String("room", snap.Room.Name),
		slog.String("key", snap.Key()),
		slog.Int("resources", len(snap.Resources)),
	)
	return snap, nil
}

// Load reads and validates a stored snapshot.
func (s *Snapshotter) Load(ctx context.Context, key string) (*Snapshot, error) {
	b, err := s.backend.Load(ctx, key)
	if errors.Is(err, persist.ErrNotExist) {
		return nil, &hueerr.NotFoundError{Kind: "snapshot", Query: key}
	}
	if err != nil {
		return nil, err
	}
	snap, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", key, err)
	}
	return snap, nil
}

// List returns stored snapshots newest first. A non-empty query keeps only
// the snapshots of the one room slug it matches.
func (s *Snapshotter) List(ctx context.Context, query string) ([]Entry, error) {
	keys, err := s.backend.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	slugs := make(map[string]bool)
	var slugList []string
	for _, key := range keys {
		e, ok := parseKey(key)
		if !ok {
			continue
		}
		entries = append(entries, e)
		if !slugs[e.Slug] {
			slugs[e.Slug] = true
			slugList = append(slugList, e.Slug)
		}
	}

	if query != "" {
		slug, err := match.ByName("snapshot room", Slug(query), slugList, func(s string) string { return s })
		if err != nil {
			return nil, err
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.Slug == slug {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].SavedAt.Equal(entries[j].SavedAt) {
			return entries[i].SavedAt.After(entries[j].SavedAt)
		}
		return entries[i].Key > entries[j].Key
	})
	return entries, nil
}

// Latest loads the most recent snapshot of the room matching query.
func (s *Snapshotter) Latest(ctx context.Context, query string) (*Snapshot, error) {
	entries, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &hueerr.NotFoundError{Kind: "snapshot", Query: query}
	}
	return s.Load(ctx, entries[0].Key)
}

// Resolve accepts either a snapshot key or a room name.
func (s *Snapshotter) Resolve(ctx context.Context, keyOrRoom string) (*Snapshot, error) {
	if _, ok := parseKey(keyOrRoom); ok {
		return s.Load(ctx, keyOrRoom)
	}
	return s.Latest(ctx, keyOrRoom)
}

// Live captures the current mirror state of the snapshot's room. A room that
// no longer exists yields a snapshot with no resources.
func (s *Snapshotter) Live(snap *Snapshot) (*Snapshot, error) {
	var room hue.Group
	if err := s.gw.Store().Decode(hue.RTypeRoom, snap.Room.ID, &room); err != nil {
		if errors.Is(err, hueerr.ErrNotFound) {
			return &Snapshot{Version: FormatVersion, SavedAt: s.now(), Room: snap.Room}, nil
		}
		return nil, err
	}
	return Capture(s.gw.Store(), room, s.now())
}
