package authkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harborview/identity/pkg/jwtx"
)

// DefaultFetchTimeout bounds trust-material fetches. A hung issuer must
// surface as ErrKeyUnavailable, not a stuck request.
const DefaultFetchTimeout = 3 * time.Second

// Client fetches trust material from the issuer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchJWKS retrieves the issuer's published key set.
func (c *Client) FetchJWKS(ctx context.Context) (jwtx.JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/.well-known/jwks.json", nil)
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return jwtx.JWKS{}, fmt.Errorf("%w: jwks endpoint returned %d", ErrKeyUnavailable, resp.StatusCode)
	}

	var jwks jwtx.JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return jwtx.JWKS{}, fmt.Errorf("%w: decode jwks: %w", ErrKeyUnavailable, err)
	}
	return jwks, nil
}

// FetchPublicKeyPEM retrieves a single public key as PEM bytes. An empty
// kid asks for the issuer's current default key.
func (c *Client) FetchPublicKeyPEM(ctx context.Context, kid string) ([]byte, error) {
	url := c.baseURL + "/v1/keys/public.pem"
	if kid != "" {
		url += "?kid=" + kid
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: key endpoint returned %d", ErrKeyUnavailable, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
