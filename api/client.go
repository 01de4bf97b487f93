package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/log"
)

// ErrNotFound is returned by the client for 404 responses.
var ErrNotFound = errors.New("api: not found")

// ClientConfig of the API client.
type ClientConfig struct {
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	MaxRetries     int           `mapstructure:"max-retries"`
}

// DefaultClientConfig returns the default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestTimeout: 10 * time.Second,
		MaxRetries:     3,
	}
}

// ClientOpt modifies Client.
type ClientOpt func(*Client)

// WithClientLogger sets logger for the client.
func WithClientLogger(logger *zap.Logger) ClientOpt {
	return func(c *Client) {
		c.client.Logger = log.NewLeveled(logger)
	}
}

// Client queries the API of a node.
type Client struct {
	base   *url.URL
	client *retryablehttp.Client
}

// NewClient creates a client for the node at address.
func NewClient(address string, cfg ClientConfig, opts ...ClientOpt) (*Client, error) {
	base, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	if base.Scheme == "" {
		base, err = url.Parse("http://" + address)
		if err != nil {
			return nil, fmt.Errorf("parsing address: %w", err)
		}
	}
	c := &Client{
		base: base,
		client: &retryablehttp.Client{
			HTTPClient:   &http.Client{Timeout: cfg.RequestTimeout},
			RetryMax:     cfg.MaxRetries,
			RetryWaitMin: 100 * time.Millisecond,
			RetryWaitMax: time.Second,
			Backoff:      retryablehttp.LinearJitterBackoff,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) get(ctx context.Context, path string, height *types.Height, result any) error {
	query := url.Values{}
	if height != nil {
		query.Set("height", strconv.FormatUint(height.Uint64(), 10))
	}
	return c.getQuery(ctx, path, query, result)
}

func (c *Client) getQuery(ctx context.Context, path string, query url.Values, result any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		var rst ErrorResponse
		if err := json.Unmarshal(data, &rst); err != nil || rst.Error == "" {
			rst.Error = res.Status
		}
		if res.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, rst.Error)
		}
		return fmt.Errorf("get %s: %s: %s", path, res.Status, rst.Error)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decoding response of %s: %w", path, err)
	}
	return nil
}

// Status returns the status of the node.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var rst StatusResponse
	if err := c.get(ctx, "/v1/status", nil, &rst); err != nil {
		return nil, err
	}
	return &rst, nil
}

// Account returns the registry entry at the last processed height.
func (c *Client) Account(ctx context.Context, id types.AccountID) (*AccountResponse, error) {
	var rst AccountResponse
	if err := c.get(ctx, "/v1/accounts/"+id.String(), nil, &rst); err != nil {
		return nil, err
	}
	return &rst, nil
}

// Nonce returns the nonce the node expects in the next transaction of the account.
func (c *Client) Nonce(ctx context.Context, id types.AccountID) (uint64, error) {
	account, err := c.Account(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.Nonce, nil
}

// State returns the raw value of the key at the height. Nil height reads the last processed one.
func (c *Client) State(ctx context.Context, key []byte, height *types.Height) ([]byte, error) {
	var rst StateResponse
	if err := c.get(ctx, "/v1/state/"+hex.EncodeToString(key), height, &rst); err != nil {
		return nil, err
	}
	return hex.DecodeString(rst.Value)
}

// View decodes the application view into result.
func (c *Client) View(ctx context.Context, view, arg string, height *types.Height, result any) error {
	return c.get(ctx, "/v1/app/"+url.PathEscape(view)+"/"+url.PathEscape(arg), height, result)
}

// Roots returns the state roots of heights in [from, to]. Nil to reads up to the last
// processed height. The server returns at most MaxRoots heights.
func (c *Client) Roots(ctx context.Context, from types.Height, to *types.Height) ([]RootResponse, error) {
	query := url.Values{"from": {strconv.FormatUint(from.Uint64(), 10)}}
	if to != nil {
		query.Set("to", strconv.FormatUint(to.Uint64(), 10))
	}
	var rst []RootResponse
	if err := c.getQuery(ctx, "/v1/roots", query, &rst); err != nil {
		return nil, err
	}
	return rst, nil
}
