// Package api serves read-only queries over the applied state.
//
// Every query reads a snapshot at a fully applied height. The height defaults to the
// last processed one, heights above it are not found.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	httpmetrics "github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
	"go.uber.org/zap"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/ingest"
	"github.com/shardnet/go-shard/metrics"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/sql/accounts"
	"github.com/shardnet/go-shard/sql/checkpoint"
	"github.com/shardnet/go-shard/sql/dropped"
	"github.com/shardnet/go-shard/sql/state"
	"github.com/shardnet/go-shard/vm/core"
)

// recorder is shared by all servers, it registers collectors in the default registry.
var recorder = metricsprom.NewRecorder(metricsprom.Config{Prefix: metrics.Namespace})

// MaxRoots is the largest number of heights returned by /v1/roots.
const MaxRoots = 1000

var (
	errNotFound   = errors.New("not found")
	errBadRequest = errors.New("bad request")
)

// Config of the query API.
type Config struct {
	// Listen is the address of the server. Empty disables it.
	Listen             string        `mapstructure:"listen"`
	CorsAllowedOrigins []string      `mapstructure:"cors-allowed-origins"`
	ReadTimeout        time.Duration `mapstructure:"read-timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Listen:             "127.0.0.1:9070",
		CorsAllowedOrigins: []string{"*"},
		ReadTimeout:        10 * time.Second,
	}
}

// StatusProvider reports the progress of the ingestion loop.
type StatusProvider interface {
	Status() ingest.Status
}

// StatusResponse is returned by /v1/status.
type StatusResponse struct {
	LastProcessedHeight types.Height    `json:"last_processed_height"`
	LoopState           ingest.State    `json:"loop_state"`
	Namespace           types.Namespace `json:"namespace"`
	App                 string          `json:"app"`
	StateRoot           types.Hash32    `json:"state_root"`
}

// AccountResponse is returned by /v1/accounts/{id}.
type AccountResponse struct {
	Account   types.AccountID  `json:"account"`
	PublicKey *types.PublicKey `json:"public_key"`
	Nonce     uint64           `json:"nonce"`
	Height    types.Height     `json:"height"`
}

// StateResponse is returned by /v1/state/{key}.
type StateResponse struct {
	Key    string       `json:"key"`
	Value  string       `json:"value"`
	Height types.Height `json:"height"`
}

// RootResponse is an element of the list returned by /v1/roots.
type RootResponse struct {
	Height  types.Height `json:"height"`
	Root    types.Hash32 `json:"root"`
	Applied int          `json:"applied"`
	Dropped int          `json:"dropped"`
}

// ErrorResponse is returned with every non 2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Opt modifies Server.
type Opt func(*Server)

// WithLogger sets logger for Server.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server is the query API server.
type Server struct {
	logger *zap.Logger
	db     sql.Executor
	status StatusProvider
	app    core.Application
	ns     types.Namespace
	srv    *http.Server
	lis    net.Listener
}

// NewServer creates the server. It is not listening until Start.
func NewServer(
	db sql.Executor,
	status StatusProvider,
	app core.Application,
	ns types.Namespace,
	cfg Config,
	opts ...Opt,
) *Server {
	s := &Server{
		logger: zap.NewNop(),
		db:     db,
		status: status,
		app:    app,
		ns:     ns,
	}
	for _, opt := range opts {
		opt(s)
	}
	mdlw := httpmetrics.New(httpmetrics.Config{Recorder: recorder})
	measure := func(id string, h http.HandlerFunc) http.Handler {
		return std.Handler(id, mdlw, h)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Method(http.MethodGet, "/v1/status", measure("status", s.getStatus))
	router.Method(http.MethodGet, "/v1/accounts/{id}", measure("accounts", s.getAccount))
	router.Method(http.MethodGet, "/v1/state/{key}", measure("state", s.getState))
	router.Method(http.MethodGet, "/v1/dropped", measure("dropped", s.getDropped))
	router.Method(http.MethodGet, "/v1/roots", measure("roots", s.getRoots))
	router.Method(http.MethodGet, "/v1/app/{view}/{arg}", measure("app", s.getView))
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, fmt.Errorf("%w: %s", errNotFound, r.URL.Path))
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.CorsAllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(router)
	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
	}
	return s
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen api on %s: %w", s.srv.Addr, err)
	}
	s.lis = lis
	s.logger.Info("api server started", zap.Stringer("address", lis.Addr()))
	go func() {
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("api server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the address the server listens on, valid after Start.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errNotFound), errors.Is(err, sql.ErrNotFound), errors.Is(err, core.ErrUnknownView):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	default:
		s.logger.Warn("query failed", zap.Error(err))
	}
	s.respond(w, status, ErrorResponse{Error: err.Error()})
}

// height reads the height query parameter.
func (s *Server) height(r *http.Request) (types.Height, error) {
	last := s.status.Status().LastProcessed
	height, set, err := parseHeight(r, "height")
	switch {
	case err != nil:
		return 0, err
	case !set:
		return last, nil
	}
	if height > last {
		return 0, fmt.Errorf("%w: height %d is not processed, last processed %d", errNotFound, height, last)
	}
	return height, nil
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.status.Status()
	s.respond(w, http.StatusOK, StatusResponse{
		LastProcessedHeight: status.LastProcessed,
		LoopState:           status.State,
		Namespace:           s.ns,
		App:                 s.app.Name(),
		StateRoot:           status.Root,
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := types.StringToAccountID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	height, err := s.height(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	rst := AccountResponse{Account: id, Height: height}
	account, err := accounts.Get(s.db, id, height)
	switch {
	case errors.Is(err, sql.ErrNotFound):
	case err != nil:
		s.fail(w, err)
		return
	default:
		rst.PublicKey = account.PublicKey
		rst.Nonce = account.Nonce
	}
	s.respond(w, http.StatusOK, rst)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "key")
	key, err := hex.DecodeString(raw)
	if err != nil {
		s.fail(w, fmt.Errorf("%w: key must be hex: %w", errBadRequest, err))
		return
	}
	height, err := s.height(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	value, err := state.Get(s.db, key, height)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, StateResponse{
		Key:    raw,
		Value:  hex.EncodeToString(value),
		Height: height,
	})
}

func (s *Server) getDropped(w http.ResponseWriter, r *http.Request) {
	height, err := s.height(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	records, err := dropped.List(s.db, height)
	if err != nil {
		s.fail(w, err)
		return
	}
	if records == nil {
		records = []dropped.Record{}
	}
	s.respond(w, http.StatusOK, records)
}

func parseHeight(r *http.Request, name string) (types.Height, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s %q: %w", errBadRequest, name, raw, err)
	}
	return types.Height(value), true, nil
}

// getRoots returns state roots for heights in [from, to]. The range is clamped to the
// last processed height and to MaxRoots heights starting at from.
func (s *Server) getRoots(w http.ResponseWriter, r *http.Request) {
	last := s.status.Status().LastProcessed
	from, _, err := parseHeight(r, "from")
	if err != nil {
		s.fail(w, err)
		return
	}
	to, set, err := parseHeight(r, "to")
	if err != nil {
		s.fail(w, err)
		return
	}
	if !set || to > last {
		to = last
	}
	if from > to {
		s.fail(w, fmt.Errorf("%w: from %d is above %d", errBadRequest, from, to))
		return
	}
	if to-from >= MaxRoots {
		to = from + MaxRoots - 1
	}
	infos, err := checkpoint.Roots(s.db, from, to)
	if err != nil {
		s.fail(w, err)
		return
	}
	rst := make([]RootResponse, 0, len(infos))
	for _, info := range infos {
		rst = append(rst, RootResponse{
			Height:  info.Height,
			Root:    info.Root,
			Applied: info.Applied,
			Dropped: info.Dropped,
		})
	}
	s.respond(w, http.StatusOK, rst)
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	height, err := s.height(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	rst, err := s.app.View(core.NewDBReader(s.db, height), chi.URLParam(r, "view"), chi.URLParam(r, "arg"))
	switch {
	case errors.Is(err, core.ErrUnknownView):
		s.fail(w, err)
		return
	case errors.Is(err, core.ErrInternal):
		s.fail(w, err)
		return
	case err != nil:
		s.fail(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	s.respond(w, http.StatusOK, rst)
}
