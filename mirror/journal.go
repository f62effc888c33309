package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/persist"
	"golang.org/x/exp/slog"
)

const (
	auditPrefix     = "audit/"
	auditTimeLayout = "2006-01-02_15-04-05.000000"
)

// Entry is one mutation that reached the bridge.
type Entry struct {
	At      time.Time        `json:"at"`
	Op      string           `json:"op"`
	Type    hue.ResourceType `json:"type"`
	ID      string           `json:"id"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

// Journal records successful mutations. Recording is best effort.
type Journal struct {
	log     *slog.Logger
	backend persist.Backend
}

func auditKey(e Entry) string {
	return fmt.Sprintf("%s%s_%s_%s_%s.json", auditPrefix,
		e.At.UTC().Format(auditTimeLayout), e.Op, e.Type, e.ID)
}

func (j *Journal) record(ctx context.Context, at time.Time, op string, rtype hue.ResourceType, id string, payload json.RawMessage) {
	e := Entry{At: at, Op: op, Type: rtype, ID: id, Payload: payload}
	b, err := json.Marshal(e)
	if err == nil {
		err = j.backend.Save(ctx, auditKey(e), b)
	}
	if err != nil {
		j.log.Warn("could not record audit entry",
			slog.String("op", op), slog.String("id", id), slog.Any("error", err))
	}
}

// Entries returns the recorded mutations, oldest first. A non-empty since
// skips entries before that time.
func (j *Journal) Entries(ctx context.Context, since time.Time) ([]Entry, error) {
	keys, err := j.backend.List(ctx, auditPrefix)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		b, err := j.backend.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			j.log.Warn("skipping unreadable audit entry", slog.String("key", key), slog.Any("error", err))
			continue
		}
		if !since.IsZero() && e.At.Before(since) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
