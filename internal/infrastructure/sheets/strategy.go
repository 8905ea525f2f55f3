package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"checkin/internal/domain"
)

// maxExportSize bounds what a strategy will read from one response.
const maxExportSize = 16 << 20

// Strategy is one way of acquiring the exported table.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

func httpGet(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxExportSize))
}

// Direct fetches the export URL itself.
type Direct struct {
	URL    string
	Client *http.Client
}

func (d Direct) Name() string { return "direct" }

func (d Direct) Fetch(ctx context.Context) ([]byte, error) {
	return httpGet(ctx, d.Client, d.URL)
}

// Relay fetches the export URL through a pass-through endpoint: GET <relay>?url=<encoded>.
type Relay struct {
	RelayURL string
	Target   string
	Client   *http.Client
}

func (r Relay) Name() string { return "relay" }

func (r Relay) Fetch(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(r.RelayURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("url", r.Target)
	u.RawQuery = q.Encode()
	return httpGet(ctx, r.Client, u.String())
}

// Manual serves a file the operator provided: a configured local path, or
// the last file imported through the API.
type Manual struct {
	Path string

	mu       sync.RWMutex
	imported []byte
}

func (m *Manual) Name() string { return "manual" }

// Import stores an uploaded export for the next load.
func (m *Manual) Import(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imported = append([]byte(nil), data...)
}

func (m *Manual) Fetch(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	imported := m.imported
	m.mu.RUnlock()
	if imported != nil {
		return imported, nil
	}
	if strings.TrimSpace(m.Path) == "" {
		return nil, domain.ErrManualSourceRequired
	}
	return os.ReadFile(m.Path)
}
