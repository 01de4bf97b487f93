// Package celestia implements da.Client over the JSON-RPC API of celestia-node.
package celestia

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
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/da"
	"github.com/shardnet/go-shard/log"
)

// ErrUnauthorized is returned when the node rejects the auth token.
var ErrUnauthorized = errors.New("unauthorized")

// Config of the celestia-node client.
type Config struct {
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth-token"`

	RequestTimeout    time.Duration `mapstructure:"request-timeout"`
	MaxRetries        int           `mapstructure:"max-retries"`
	RetryDelay        time.Duration `mapstructure:"retry-delay"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`

	// GasPrice for blob.Submit, zero lets the node estimate it.
	GasPrice float64 `mapstructure:"gas-price"`
	// VerifyHeight fetches the header of every requested height and compares its height.
	VerifyHeight bool `mapstructure:"verify-height"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		URL:               "http://127.0.0.1:26658",
		RequestTimeout:    30 * time.Second,
		MaxRetries:        3,
		RetryDelay:        500 * time.Millisecond,
		RequestsPerSecond: 20,
	}
}

// Opt modifies Client.
type Opt func(*Client)

// WithLogger sets logger for the client.
func WithLogger(logger *zap.Logger) Opt {
	return func(c *Client) {
		c.logger = logger
		c.client.Logger = log.NewLeveled(logger)
	}
}

// WithHTTPClient overwrites underlying http client.
func WithHTTPClient(client *http.Client) Opt {
	return func(c *Client) {
		c.client.HTTPClient = client
	}
}

// Client is a JSON-RPC client of celestia-node.
type Client struct {
	logger  *zap.Logger
	url     string
	token   string
	cfg     Config
	client  *retryablehttp.Client
	limiter *rate.Limiter
	id      atomic.Uint64
}

var _ da.Client = (*Client)(nil)

// New creates a client for the node at cfg.URL.
func New(cfg Config, opts ...Opt) (*Client, error) {
	addr, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	if addr.Scheme == "" {
		addr.Scheme = "http"
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	c := &Client{
		logger: zap.NewNop(),
		url:    addr.String(),
		token:  cfg.AuthToken,
		cfg:    cfg,
		client: &retryablehttp.Client{
			HTTPClient:   &http.Client{Timeout: cfg.RequestTimeout},
			RetryMax:     cfg.MaxRetries,
			RetryWaitMin: cfg.RetryDelay,
			RetryWaitMax: 2 * cfg.RetryDelay,
			Backoff:      retryablehttp.LinearJitterBackoff,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Info("created celestia client",
		zap.String("url", c.url),
		zap.Bool("auth", c.token != ""),
		zap.Int("max retries", c.client.RetryMax),
		zap.Float64("requests per second", cfg.RequestsPerSecond),
	)
	return c, nil
}

func encodeParams(params ...any) ([]json.RawMessage, error) {
	rst := make([]json.RawMessage, 0, len(params))
	for _, param := range params {
		raw, err := json.Marshal(param)
		if err != nil {
			return nil, fmt.Errorf("encode param: %w", err)
		}
		rst = append(rst, raw)
	}
	return rst, nil
}

// call executes the method. Transport failures are returned wrapped with da.ErrUnavailable,
// errors reported by the node are returned as *RPCError.
func (c *Client) call(ctx context.Context, method string, result any, params ...any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	encoded, err := encodeParams(params...)
	if err != nil {
		return err
	}
	body, err := json.Marshal(Request{
		JSONRPC: jsonrpcVersion,
		ID:      c.id.Add(1),
		Method:  method,
		Params:  encoded,
	})
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w", da.ErrUnavailable, method, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response body: %w", da.ErrUnavailable, err)
	}
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s: %s", ErrUnauthorized, method, res.Status)
	default:
		c.logger.Debug("celestia request failed",
			zap.String("method", method),
			zap.String("status", res.Status),
			zap.String("body", string(data)),
		)
		return fmt.Errorf("%w: %s: status %s", da.ErrUnavailable, method, res.Status)
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return fmt.Errorf("%w: decoding response of %s: %w", da.ErrUnavailable, method, err)
	}
	if response.Error != nil {
		return response.Error
	}
	if result == nil || len(response.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(response.Result, result); err != nil {
		return fmt.Errorf("%w: decoding result of %s: %w", da.ErrUnavailable, method, err)
	}
	return nil
}

func isRPCError(err error, msg string) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && strings.Contains(rpcErr.Message, msg)
}

func classify(err error, height types.Height) error {
	switch {
	case err == nil:
		return nil
	case isRPCError(err, MsgFutureHeight), isRPCError(err, MsgSyncing):
		return fmt.Errorf("%w: %d: %w", da.ErrNotProduced, height, err)
	case errors.Is(err, da.ErrUnavailable), errors.Is(err, ErrUnauthorized):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", da.ErrUnavailable, err)
	}
}

// GetBlobs implements da.Client.
func (c *Client) GetBlobs(ctx context.Context, ns types.Namespace, height types.Height) (blobs []types.Blob, err error) {
	defer func() { da.Observe(MethodBlobGetAll, err) }()
	var rst []Blob
	err = c.call(ctx, MethodBlobGetAll, &rst, height.Uint64(), [][]byte{ns.Bytes()})
	if isRPCError(err, MsgBlobNotFound) {
		err = nil
		rst = nil
	}
	if err := classify(err, height); err != nil {
		return nil, err
	}
	if c.cfg.VerifyHeight {
		if err := c.verifyHeight(ctx, height); err != nil {
			return nil, err
		}
	}
	blobs = make([]types.Blob, 0, len(rst))
	for i, blob := range rst {
		if !bytes.Equal(blob.Namespace, ns.Bytes()) {
			return nil, fmt.Errorf("%w: blob %d at %d has namespace %x", da.ErrUnavailable, i, height, blob.Namespace)
		}
		index := blob.Index
		if index < 0 {
			// older nodes don't report the index, the response is ordered
			index = i
		}
		blobs = append(blobs, types.Blob{
			Data:       blob.Data,
			Commitment: blob.Commitment,
			Index:      index,
		})
	}
	return blobs, nil
}

func (c *Client) verifyHeight(ctx context.Context, height types.Height) error {
	var header Header
	err := classify(c.call(ctx, MethodHeaderGetByHeight, &header, height.Uint64()), height)
	if err != nil {
		return err
	}
	if types.Height(header.Header.Height) != height {
		return fmt.Errorf("%w: requested %d, received %d", da.ErrHeightMismatch, height, header.Header.Height)
	}
	return nil
}

// Submit implements da.Client.
func (c *Client) Submit(ctx context.Context, ns types.Namespace, blobs [][]byte) (height types.Height, err error) {
	defer func() { da.Observe(MethodBlobSubmit, err) }()
	params := make([]Blob, 0, len(blobs))
	for _, data := range blobs {
		params = append(params, Blob{Namespace: ns.Bytes(), Data: data})
	}
	var rst uint64
	if err := c.call(ctx, MethodBlobSubmit, &rst, params, SubmitOptions{GasPrice: c.cfg.GasPrice}); err != nil {
		return 0, classify(err, 0)
	}
	c.logger.Debug("submitted blobs",
		zap.Int("count", len(blobs)),
		zap.Uint64("height", rst),
	)
	return types.Height(rst), nil
}

// Head implements da.Client.
func (c *Client) Head(ctx context.Context) (height types.Height, err error) {
	defer func() { da.Observe(MethodNetworkHead, err) }()
	var header Header
	if err := c.call(ctx, MethodNetworkHead, &header); err != nil {
		return 0, classify(err, 0)
	}
	return types.Height(header.Header.Height), nil
}
