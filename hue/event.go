package hue

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tmaxmax/go-sse"
	"golang.org/x/exp/slog"
)

const (
	retrySleepDuration = 2 * time.Second
)

type Event struct {
	ID           string // The Hue event UUID.
	LastEventID  string // The SSE event ID.
	CreationTime time.Time
	Type         string // add, update, delete
	Data         []EventResource
}

// EventResource is one changed resource. For update events Raw only holds
// the fields that changed.
type EventResource struct {
	Header
	Raw json.RawMessage
}

type EventFilter func(Event) bool

type rawEvent struct {
	Event
	log *slog.Logger
}

func (r *rawEvent) UnmarshalJSON(data []byte) error {
	var rawData struct {
		ID           string            `json:"id"`
		CreationTime time.Time         `json:"creationtime"`
		Type         string            `json:"type"`
		Data         []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &rawData); err != nil {
		return err
	}

	r.ID = rawData.ID
	r.CreationTime = rawData.CreationTime
	r.Type = rawData.Type
	r.Data = nil

	for _, msg := range rawData.Data {
		var header Header
		if err := json.Unmarshal(msg, &header); err != nil {
			return err
		}
		if header.Type == "" || header.ID == "" {
			r.log.Warn("event resource without id or type")
			continue
		}
		r.Data = append(r.Data, EventResource{Header: header, Raw: msg})
	}

	return nil
}

// Events listens on the bridge event stream until ctx is done, reconnecting
// after errors. Matching events are sent to out.
func (c *Client) Events(ctx context.Context, filter EventFilter, out chan<- Event) error {
	for {
		lastEventId, err := c.listen(ctx, filter, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Error("error while listening for events, retrying",
			slog.Any("error", err),
			slog.String("last_event_id", lastEventId),
			slog.Duration("retry_after", retrySleepDuration),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retrySleepDuration):
		}
	}
}

func (c *Client) listen(ctx context.Context, filter EventFilter, out chan<- Event) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.absURL("/eventstream/clip/v2"), nil)
	if err != nil {
		return "", err
	}
	req.Header.Add(hueAppKeyHeader, c.AppKey)
	conn := c.sseClient.NewConnection(req)

	var lastEventID string
	conn.SubscribeToAll(func(ev sse.Event) {
		lastEventID = ev.LastEventID
		if len(ev.Data) == 0 {
			return
		}

		events, err := decodeEvents(ev.Data, c.log)
		if err != nil {
			c.log.Error("error while unmarshalling message", slog.Any("error", err))
			return
		}
		for _, event := range events {
			event.LastEventID = ev.LastEventID
			if len(event.Data) == 0 || (filter != nil && !filter(event)) {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	})

	c.log.Info("listening for bridge events")
	err = conn.Connect()
	return lastEventID, err
}

// decodeEvents parses one SSE payload, a JSON array of bridge events.
func decodeEvents(data []byte, log *slog.Logger) ([]Event, error) {
	var rawMsgs []json.RawMessage
	if err := json.Unmarshal(data, &rawMsgs); err != nil {
		return nil, err
	}

	var events []Event
	for _, rawMsg := range rawMsgs {
		raw := rawEvent{log: log}
		if err := json.Unmarshal(rawMsg, &raw); err != nil {
			log.Error("error while unmarshalling event", slog.Any("error", err))
			continue
		}
		events = append(events, raw.Event)
	}
	return events, nil
}
