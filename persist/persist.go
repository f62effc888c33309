// Package persist stores named JSON documents for the resource mirror,
// snapshots and the audit journal.
package persist

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrNotExist = errors.New("persist: document does not exist")

// Backend is the persistence contract the core relies on. Keys are
// slash-separated, e.g. "snapshots/2024-01-02_10-00-00_Office.json".
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, doc []byte) error
	// List returns the keys starting with prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("persist: invalid key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("persist: invalid key %q", key)
	}
	return cleaned, nil
}
