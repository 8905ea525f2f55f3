package csvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/ports/output"
)

const defaultTimeout = 15 * time.Second

var _ output.CheckinOverlay = (*Client)(nil)

// Client talks to the CSV-store endpoint:
//
//	GET  ?action=get         → JSON array of rows
//	GET  ?action=getcheckins → {id: {status, checkedInAt}}
//	POST ?action=checkin     ← {attendeeId, status, checkedInAt} → {success}
type Client struct {
	dataURL     string
	checkinsURL string
	http        *http.Client
}

// NewClient validates the endpoint URLs. checkinsURL defaults to dataURL.
func NewClient(dataURL, checkinsURL string, httpClient *http.Client) (*Client, error) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return nil, fmt.Errorf("csvstore: CSV_DATA_URL est requis: %w", domain.ErrSourceMisconfigured)
	}
	if strings.TrimSpace(checkinsURL) == "" {
		checkinsURL = dataURL
	}
	for _, raw := range []string{dataURL, checkinsURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("csvstore: URL invalide %q: %w", raw, domain.ErrSourceMisconfigured)
		}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{dataURL: dataURL, checkinsURL: strings.TrimSpace(checkinsURL), http: httpClient}, nil
}

func withAction(base, action string) string {
	u, _ := url.Parse(base)
	q := u.Query()
	q.Set("action", action)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %v: %w", err, domain.ErrSourceMisconfigured)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %v: %w", rawURL, err, domain.ErrSourceUnavailable)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", rawURL, err, domain.ErrSourceUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: HTTP %d: %w", rawURL, resp.StatusCode, domain.ErrSourceUnavailable)
	}
	return body, nil
}

// Rows fetches the raw row payload. Both a bare array and {"data": [...]} are accepted.
func (c *Client) Rows(ctx context.Context) ([]json.RawMessage, error) {
	body, err := c.get(ctx, withAction(c.dataURL, "get"))
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		var wrapped struct {
			Data  []json.RawMessage `json:"data"`
			Rows  []json.RawMessage `json:"rows"`
			Error string            `json:"error"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode rows: %v: %w", err, domain.ErrSourceParse)
		}
		if wrapped.Error != "" {
			return nil, fmt.Errorf("csvstore: %s: %w", wrapped.Error, domain.ErrSourceUnavailable)
		}
		if wrapped.Data != nil {
			return wrapped.Data, nil
		}
		return wrapped.Rows, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %v: %w", err, domain.ErrSourceParse)
	}
	return rows, nil
}

type checkinState struct {
	Status      string     `json:"status"`
	CheckedInAt *time.Time `json:"checkedInAt"`
}

// Fetch returns the server-held check-in map.
func (c *Client) Fetch(ctx context.Context) (map[string]entities.StatusUpdate, error) {
	body, err := c.get(ctx, withAction(c.checkinsURL, "getcheckins"))
	if err != nil {
		return nil, err
	}
	out := make(map[string]entities.StatusUpdate)
	trimmed := bytes.TrimSpace(body)
	// PHP encodes an empty associative array as [].
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[]")) || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}
	var raw map[string]checkinState
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode checkins: %v: %w", err, domain.ErrSourceParse)
	}
	for id, st := range raw {
		status, err := domain.ParseStatus(strings.ToLower(st.Status))
		if err != nil {
			continue
		}
		out[id] = entities.StatusUpdate{Status: status, CheckedInAt: st.CheckedInAt}
	}
	return out, nil
}

type checkinRequest struct {
	AttendeeID  string     `json:"attendeeId"`
	Status      string     `json:"status"`
	CheckedInAt *time.Time `json:"checkedInAt"`
}

// Put writes one check-in state.
func (c *Client) Put(ctx context.Context, id string, u entities.StatusUpdate) error {
	payload, err := json.Marshal(checkinRequest{AttendeeID: id, Status: string(u.Status), CheckedInAt: u.CheckedInAt})
	if err != nil {
		return fmt.Errorf("encode checkin: %v: %w", err, domain.ErrUpdateRejected)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, withAction(c.checkinsURL, "checkin"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %v: %w", err, domain.ErrUpdateRejected)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST checkin: %v: %w", err, domain.ErrUpdateRejected)
	}
	defer resp.Body.Close()

	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode checkin response (HTTP %d): %v: %w", resp.StatusCode, err, domain.ErrUpdateRejected)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !out.Success {
		return fmt.Errorf("checkin %s refusé (HTTP %d) %s: %w", id, resp.StatusCode, out.Error, domain.ErrUpdateRejected)
	}
	return nil
}
