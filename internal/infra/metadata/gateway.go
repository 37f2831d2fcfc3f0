package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"certichain/internal/domain"
	"certichain/internal/usecase"
)

const DefaultMaxBytes = 1 << 20

var ErrNotJSON = errors.New("metadata document is not JSON")

// Gateway fetches documents from an HTTP IPFS gateway.
type Gateway struct {
	BaseURL  string
	Client   *http.Client
	MaxBytes int64
}

func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = usecase.DefaultMetadataTimeout
	}
	return &Gateway{
		BaseURL:  baseURL,
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: DefaultMaxBytes,
	}
}

// Fetch returns nil without error for placeholder pointers.
func (g *Gateway) Fetch(ctx context.Context, pointer string) (json.RawMessage, error) {
	if g == nil {
		return nil, errors.New("metadata gateway is nil")
	}
	if pointer == "" || domain.IsPlaceholderPointer(pointer) {
		return nil, nil
	}
	path, err := Normalize(pointer)
	if err != nil {
		return nil, err
	}
	base := g.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metadata: gateway returned %s", resp.Status)
	}

	limit := g.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("fetch metadata: document exceeds %d bytes", limit)
	}
	if !json.Valid(body) {
		return nil, ErrNotJSON
	}
	return json.RawMessage(body), nil
}

var _ usecase.MetadataFetcher = (*Gateway)(nil)
