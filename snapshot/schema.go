package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/snapshot-v1.json
var snapshotSchemaJSON string

var snapshotSchema = jsonschema.MustCompileString("snapshot-v1.json", snapshotSchemaJSON)

// checkSchema reports where a stored document departs from the snapshot
// format. Both the written and the read side go through it.
func checkSchema(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	if err := snapshotSchema.Validate(doc); err != nil {
		return fmt.Errorf("not a version %d snapshot: %w", FormatVersion, err)
	}
	return nil
}

func encode(snap *Snapshot) ([]byte, error) {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := checkSchema(b); err != nil {
		return nil, fmt.Errorf("snapshot of %s: %w", snap.Room.Name, err)
	}
	return b, nil
}

// decode validates a stored snapshot document and decodes it. A resource
// whose embedded document disagrees with its own type or id is rejected.
func decode(data []byte) (*Snapshot, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	for _, r := range s.Resources {
		var h hueHeader
		if err := json.Unmarshal(r.Doc, &h); err != nil {
			return nil, err
		}
		if h.ID != r.ID || h.Type != string(r.Type) {
			return nil, fmt.Errorf("resource %s/%s holds document %s/%s", r.Type, r.ID, h.Type, h.ID)
		}
	}
	return &s, nil
}

type hueHeader struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}
