package hue

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tmaxmax/go-sse"
	"golang.org/x/exp/slog"
)

const (
	hueAppKeyHeader = "hue-application-key"
)

type ErrorResponse struct {
	Errors []HueError `json:"errors"`
}

type HueError struct {
	Description string `json:"description"`
}

func (e HueError) Error() string {
	return e.Description
}

func joinHueErrors(hueErrors []HueError) error {
	errs := make([]error, len(hueErrors))
	for i, e := range hueErrors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status string
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return e.Status
	}
	return fmt.Sprintf("%s: %v", e.Status, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

type Config struct {
	Addr   string
	AppKey string
}

type Client struct {
	Config

	log        *slog.Logger
	httpClient *http.Client
	sseClient  *sse.Client
}

// response is the CLIP v2 envelope shared by every resource endpoint.
type response[T any] struct {
	Errors []HueError `json:"errors"`
	Data   []T        `json:"data"`
}

func NewClient(log *slog.Logger, config Config) *Client {
	// The bridge serves a self-signed certificate.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	httpClient := &http.Client{Transport: transport}

	sseClient := &sse.Client{HTTPClient: httpClient}

	return &Client{
		Config:     config,
		log:        log,
		httpClient: httpClient,
		sseClient:  sseClient,
	}
}

func (c *Client) absURL(endpoint string) string {
	return fmt.Sprintf("https://%s%s", c.Addr, endpoint)
}

func (c *Client) resourceURL(endpoint string) string {
	return c.absURL("/clip/v2/resource" + endpoint)
}

func resourcePath(rtype ResourceType, id string) string {
	if id == "" {
		return "/" + string(rtype)
	}
	return "/" + string(rtype) + "/" + id
}

// List returns every resource of one type as raw JSON documents.
func (c *Client) List(ctx context.Context, rtype ResourceType) ([]json.RawMessage, error) {
	var res response[json.RawMessage]
	if err := c.get(ctx, resourcePath(rtype, ""), &res); err != nil {
		return nil, err
	}
	if len(res.Errors) != 0 {
		return nil, joinHueErrors(res.Errors)
	}
	return res.Data, nil
}

func (c *Client) Get(ctx context.Context, rtype ResourceType, id string) (json.RawMessage, error) {
	var res response[json.RawMessage]
	if err := c.get(ctx, resourcePath(rtype, id), &res); err != nil {
		return nil, err
	}
	if len(res.Errors) != 0 {
		return nil, joinHueErrors(res.Errors)
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("%s %s: empty response", rtype, id)
	}
	return res.Data[0], nil
}

// Create posts a new resource and returns the reference the bridge assigned.
func (c *Client) Create(ctx context.Context, rtype ResourceType, body any) (ResourceRef, error) {
	var res response[ResourceRef]
	if err := c.send(ctx, http.MethodPost, resourcePath(rtype, ""), body, &res); err != nil {
		return ResourceRef{}, err
	}
	if len(res.Errors) != 0 {
		return ResourceRef{}, joinHueErrors(res.Errors)
	}
	if len(res.Data) == 0 {
		return ResourceRef{}, fmt.Errorf("create %s: bridge returned no reference", rtype)
	}
	ref := res.Data[0]
	if ref.Type == "" {
		ref.Type = rtype
	}
	return ref, nil
}

func (c *Client) Update(ctx context.Context, rtype ResourceType, id string, body any) error {
	var res response[ResourceRef]
	if err := c.send(ctx, http.MethodPut, resourcePath(rtype, id), body, &res); err != nil {
		return err
	}
	if len(res.Errors) != 0 {
		return joinHueErrors(res.Errors)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, rtype ResourceType, id string) error {
	var res response[ResourceRef]
	if err := c.send(ctx, http.MethodDelete, resourcePath(rtype, id), nil, &res); err != nil {
		return err
	}
	if len(res.Errors) != 0 {
		return joinHueErrors(res.Errors)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, response any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL(endpoint), nil)
	if err != nil {
		return err
	}
	return c.do(req, response)
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any, response any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resourceURL(endpoint), bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, response)
}

func (c *Client) do(req *http.Request, response any) error {
	req.Header.Add(hueAppKeyHeader, c.AppKey)
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	c.log.Debug("request complete",
		slog.String("status", res.Status),
		slog.String("url", req.URL.String()),
		slog.String("method", req.Method),
	)

	dec := json.NewDecoder(res.Body)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var errResp ErrorResponse
		if err := dec.Decode(&errResp); err != nil {
			return &StatusError{Status: res.Status}
		}
		err := &StatusError{Status: res.Status, Err: joinHueErrors(errResp.Errors)}

		c.log.Error("request error", slog.Any("error", err))
		return err
	}

	if err := dec.Decode(response); err != nil {
		return err
	}

	return nil
}
