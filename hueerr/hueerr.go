// Package hueerr holds the error taxonomy shared by the mirror, snapshot,
// behavior and zone scene packages.
//
// Every concrete error type matches one of the sentinel values below, so callers
// classify failures with errors.Is and inspect details with errors.As:
//
//	var amb *hueerr.AmbiguousError
//	if errors.As(err, &amb) {
//	    // amb.Candidates lists every match
//	}
package hueerr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrAmbiguous  = errors.New("ambiguous reference")
	ErrRemote     = errors.New("remote failure")
	ErrInvariant  = errors.New("invariant violation")
	ErrStaleCache = errors.New("stale cache")
)

// NotFoundError is returned when nothing matches a lookup. Suggestions holds
// near-misses ranked by similarity.
type NotFoundError struct {
	Kind        string // "room", "scene", "switch", ...
	Query       string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found", e.Kind, e.Query)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AmbiguousError is returned when a name matches more than one resource.
type AmbiguousError struct {
	Kind       string
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s %q is ambiguous, candidates: %s",
		e.Kind, e.Query, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Is(target error) bool { return target == ErrAmbiguous }

// RemoteError wraps a failed bridge call.
type RemoteError struct {
	Op   string // list, get, create, update, delete
	Type string
	ID   string
	Err  error
}

func (e *RemoteError) Error() string {
	target := e.Type
	if e.ID != "" {
		target += "/" + e.ID
	}
	return fmt.Sprintf("bridge %s %s: %v", e.Op, target, e.Err)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

func (e *RemoteError) Unwrap() error { return e.Err }

// InvariantError reports data that an operation refuses to proceed on.
type InvariantError struct {
	Reason string
	IDs    []string
}

func (e *InvariantError) Error() string {
	if len(e.IDs) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.IDs, ", "))
}

func (e *InvariantError) Is(target error) bool { return target == ErrInvariant }

// StaleCacheWarning is advisory. It is returned either when the mirror is older
// than the freshness window or when a remote mutation succeeded but could not
// be persisted locally; in the second case Err holds the local failure.
type StaleCacheWarning struct {
	RefreshedAt time.Time
	Age         time.Duration
	Reason      string
	Err         error
}

func (w *StaleCacheWarning) Error() string {
	msg := "cache is stale"
	if w.Reason != "" {
		msg += ": " + w.Reason
	}
	if !w.RefreshedAt.IsZero() {
		msg += fmt.Sprintf(" (last refresh %s, %s ago)",
			w.RefreshedAt.Format(time.RFC3339), w.Age.Round(time.Minute))
	}
	if w.Err != nil {
		msg += fmt.Sprintf(": %v", w.Err)
	}
	return msg
}

func (w *StaleCacheWarning) Is(target error) bool { return target == ErrStaleCache }

func (w *StaleCacheWarning) Unwrap() error { return w.Err }

// IsWarning reports whether err only carries advisory information.
func IsWarning(err error) bool {
	if err == nil {
		return false
	}
	var w *StaleCacheWarning
	return errors.As(err, &w) && !errors.Is(err, ErrRemote) && !errors.Is(err, ErrInvariant)
}
