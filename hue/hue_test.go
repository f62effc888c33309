package hue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(tint.NewHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(testLogger(), Config{
		Addr:   strings.TrimPrefix(srv.URL, "https://"),
		AppKey: "secret",
	})
}

func TestListSendsAppKeyAndDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(hueAppKeyHeader))
		assert.Equal(t, "/clip/v2/resource/scene", r.URL.Path)
		_, _ = io.WriteString(w, `{"errors":[],"data":[{"id":"s1","type":"scene"},{"id":"s2","type":"scene"}]}`)
	})

	docs, err := c.List(context.Background(), RTypeScene)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var h Header
	require.NoError(t, json.Unmarshal(docs[1], &h))
	assert.Equal(t, Header{ID: "s2", Type: RTypeScene}, h)
}

func TestCreateReturnsReference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/clip/v2/resource/scene", r.URL.Path)

		var body SceneCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Relax (lounge)", body.Metadata.Name)

		_, _ = io.WriteString(w, `{"errors":[],"data":[{"rid":"new-id","rtype":"scene"}]}`)
	})

	ref, err := c.Create(context.Background(), RTypeScene, SceneCreate{Metadata: Metadata{Name: "Relax (lounge)"}})
	require.NoError(t, err)
	assert.Equal(t, ResourceRef{ID: "new-id", Type: RTypeScene}, ref)
}

func TestUpdateAndDeletePaths(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		_, _ = io.WriteString(w, `{"errors":[],"data":[{"rid":"b1","rtype":"behavior_instance"}]}`)
	})

	ctx := context.Background()
	require.NoError(t, c.Update(ctx, RTypeBehaviorInstance, "b1", map[string]any{"enabled": true}))
	require.NoError(t, c.Delete(ctx, RTypeBehaviorInstance, "b1"))
	assert.Equal(t, []string{
		"PUT /clip/v2/resource/behavior_instance/b1",
		"DELETE /clip/v2/resource/behavior_instance/b1",
	}, calls)
}

func TestErrorStatusJoinsBridgeErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errors":[{"description":"invalid body"},{"description":"scene in use"}],"data":[]}`)
	})

	err := c.Delete(context.Background(), RTypeScene, "s1")
	require.Error(t, err)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Contains(t, err.Error(), "invalid body")
	assert.Contains(t, err.Error(), "scene in use")
}

func TestGetEmptyDataIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[],"data":[]}`)
	})

	_, err := c.Get(context.Background(), RTypeRoom, "missing")
	assert.Error(t, err)
}

func TestDecodeEvents(t *testing.T) {
	payload := `[{"id":"e1","creationtime":"2024-05-01T10:00:00Z","type":"update","data":[
		{"id":"s1","type":"scene","metadata":{"name":"Relax"}},
		{"type":"scene"}
	]}]`

	events, err := decodeEvents([]byte(payload), testLogger())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "update", events[0].Type)
	require.Len(t, events[0].Data, 1)
	assert.Equal(t, "s1", events[0].Data[0].ID)
	assert.JSONEq(t, `{"id":"s1","type":"scene","metadata":{"name":"Relax"}}`, string(events[0].Data[0].Raw))
}
