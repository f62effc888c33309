package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"golang.org/x/exp/slog"
)

var ErrNotConfirmed = errors.New("restore not confirmed")

var (
	sceneWritable    = []string{"metadata", "actions", "palette", "speed", "auto_dynamic"}
	behaviorWritable = []string{"configuration", "enabled", "metadata"}
)

type RestoreOptions struct {
	// Yes skips confirmation.
	Yes bool
	// Confirm is shown the changes restore would make, live to snapshot.
	Confirm func(Report) bool
}

// Outcome is the result for one resource. NewID is set when the resource had
// to be recreated under a new id.
type Outcome struct {
	Type    hue.ResourceType
	ID      string
	Name    string
	Op      string
	NewID   string
	Warning error
	Err     error
}

type RestoreResult struct {
	Changes  Report
	Restored []Outcome
	Failed   []Outcome
}

func (r *RestoreResult) OK() bool { return len(r.Failed) == 0 }

// Err joins the failures, or returns nil.
func (r *RestoreResult) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, o := range r.Failed {
		errs = append(errs, fmt.Errorf("%s %s: %w", o.Type, o.ID, o.Err))
	}
	return errors.Join(errs...)
}

// Restore writes the snapshot's scenes and behavior instances back to the
// bridge. Scenes go first so that behaviors can point at recreated scenes.
// Each resource succeeds or fails on its own; scenes outside the snapshot are
// never touched.
func (s *Snapshotter) Restore(ctx context.Context, snap *Snapshot, opts RestoreOptions) (*RestoreResult, error) {
	live, err := s.Live(snap)
	if err != nil {
		return nil, err
	}
	result := &RestoreResult{Changes: Diff(live, snap)}

	if !opts.Yes && (opts.Confirm == nil || !opts.Confirm(result.Changes)) {
		return result, ErrNotConfirmed
	}

	store := s.gw.Store()
	sceneIDs := make(map[string]string)
	failedScenes := make(map[string]bool)

	for _, r := range snap.Of(hue.RTypeScene) {
		o := Outcome{Type: r.Type, ID: r.ID, Name: r.Name()}
		fields, err := pick(r.Doc, sceneWritable)
		if err == nil {
			if store.Has(hue.RTypeScene, r.ID) {
				o.Op = "update"
				err = s.gw.Update(ctx, hue.RTypeScene, r.ID, fields)
			} else {
				o.Op = "create"
				var ref hue.ResourceRef
				ref, err = s.create(ctx, r, fields, "group")
				if ref.ID != "" {
					o.NewID = ref.ID
					sceneIDs[r.ID] = ref.ID
				}
			}
		}
		if s.record(result, o, err) {
			failedScenes[r.ID] = true
		}
	}

	for _, r := range snap.Of(hue.RTypeBehaviorInstance) {
		o := Outcome{Type: r.Type, ID: r.ID, Name: r.Name()}
		deps, err := dependsOn(r, failedScenes)
		if err == nil && len(deps) > 0 {
			err = &hueerr.InvariantError{Reason: "behavior depends on scenes that failed to restore", IDs: deps}
		}
		var fields map[string]json.RawMessage
		if err == nil {
			fields, err = pick(r.Doc, behaviorWritable)
		}
		if err == nil {
			if cfg, ok := fields["configuration"]; ok {
				fields["configuration"], err = hue.RemapReferences(cfg, hue.RTypeScene, sceneIDs)
			}
		}
		if err == nil {
			if store.Has(hue.RTypeBehaviorInstance, r.ID) {
				o.Op = "update"
				err = s.gw.Update(ctx, hue.RTypeBehaviorInstance, r.ID, fields)
			} else {
				o.Op = "create"
				var ref hue.ResourceRef
				ref, err = s.create(ctx, r, fields, "script_id")
				o.NewID = ref.ID
			}
		}
		s.record(result, o, err)
	}

	s.log.Info("restore finished",
		slog.String("room", snap.Room.Name),
		slog.Int("restored", len(result.Restored)),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *Snapshotter) create(ctx context.Context, r Resource, fields map[string]json.RawMessage, extra string) (hue.ResourceRef, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(r.Doc, &doc); err != nil {
		return hue.ResourceRef{}, err
	}
	if v, ok := doc[extra]; ok {
		fields[extra] = v
	}
	return s.gw.Create(ctx, r.Type, fields)
}

// record files o under restored or failed and reports whether it failed.
// Stale cache warnings mean the bridge accepted the change.
func (s *Snapshotter) record(result *RestoreResult, o Outcome, err error) bool {
	switch {
	case err == nil:
		result.Restored = append(result.Restored, o)
	case hueerr.IsWarning(err):
		o.Warning = err
		result.Restored = append(result.Restored, o)
	default:
		o.Err = err
		result.Failed = append(result.Failed, o)
		s.log.Error("restore failed",
			slog.String("type", string(o.Type)), slog.String("id", o.ID), slog.Any("error", err))
		return true
	}
	return false
}

func dependsOn(r Resource, failed map[string]bool) ([]string, error) {
	if len(failed) == 0 {
		return nil, nil
	}
	var cfg struct {
		Configuration json.RawMessage `json:"configuration"`
	}
	if err := json.Unmarshal(r.Doc, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Configuration) == 0 {
		return nil, nil
	}
	ids, err := hue.ReferencedIDs(cfg.Configuration, hue.RTypeScene)
	if err != nil {
		return nil, err
	}
	var deps []string
	for _, id := range ids {
		if failed[id] {
			deps = append(deps, id)
		}
	}
	return deps, nil
}

func pick(doc json.RawMessage, keys []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(doc, &all); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}
