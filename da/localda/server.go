package localda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/da"
	"github.com/shardnet/go-shard/da/celestia"
)

const maxRequestSize = 8 << 20

type handlerFunc func(ctx context.Context, params []json.RawMessage) (any, *celestia.RPCError)

// Server serves the celestia-node JSON-RPC subset on top of DA.
type Server struct {
	logger  *zap.Logger
	da      *DA
	token   string
	methods map[string]handlerFunc
	srv     *http.Server
	lis     net.Listener
}

// NewServer creates a server for the DA. Requests must carry token as bearer
// authorization if it is not empty.
func NewServer(d *DA, listen, token string, logger *zap.Logger) *Server {
	s := &Server{
		logger: logger,
		da:     d,
		token:  token,
	}
	s.methods = map[string]handlerFunc{
		celestia.MethodBlobSubmit:        s.submit,
		celestia.MethodBlobGetAll:        s.getAll,
		celestia.MethodNetworkHead:       s.networkHead,
		celestia.MethodHeaderGetByHeight: s.getByHeight,
	}
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Post("/", s.serveRPC)
	s.srv = &http.Server{
		Addr:              listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
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
		return fmt.Errorf("listen local da on %s: %w", s.srv.Addr, err)
	}
	s.lis = lis
	s.logger.Info("local da server started", zap.Stringer("address", lis.Addr()))
	go func() {
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("local da server stopped", zap.Error(err))
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

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var (
		req      celestia.Request
		response = celestia.Response{JSONRPC: "2.0"}
	)
	if err := json.Unmarshal(body, &req); err != nil {
		response.Error = &celestia.RPCError{Code: celestia.CodeParseError, Message: err.Error()}
	} else {
		response.ID = req.ID
		response.Result, response.Error = s.dispatch(r.Context(), &req)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) dispatch(ctx context.Context, req *celestia.Request) (json.RawMessage, *celestia.RPCError) {
	handler, exist := s.methods[req.Method]
	if !exist {
		return nil, &celestia.RPCError{
			Code:    celestia.CodeMethodNotFound,
			Message: fmt.Sprintf("method %q not found", req.Method),
		}
	}
	result, rpcErr := handler(ctx, req.Params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, internalError(err)
	}
	return raw, nil
}

func invalidParams(err error) *celestia.RPCError {
	return &celestia.RPCError{Code: celestia.CodeInvalidParams, Message: err.Error()}
}

func internalError(err error) *celestia.RPCError {
	if errors.Is(err, da.ErrNotProduced) {
		return &celestia.RPCError{
			Code:    celestia.CodeInternal,
			Message: fmt.Sprintf("header: %s: %s", celestia.MsgFutureHeight, err),
		}
	}
	return &celestia.RPCError{Code: celestia.CodeInternal, Message: err.Error()}
}

func decodeParams(params []json.RawMessage, min int, into ...any) *celestia.RPCError {
	if len(params) < min {
		return invalidParams(fmt.Errorf("expected %d params, got %d", min, len(params)))
	}
	for i, value := range into {
		if i >= len(params) {
			break
		}
		if err := json.Unmarshal(params[i], value); err != nil {
			return invalidParams(fmt.Errorf("param %d: %w", i, err))
		}
	}
	return nil
}

func (s *Server) submit(ctx context.Context, params []json.RawMessage) (any, *celestia.RPCError) {
	var blobs []celestia.Blob
	if err := decodeParams(params, 1, &blobs); err != nil {
		return nil, err
	}
	if len(blobs) == 0 {
		return nil, invalidParams(errors.New("no blobs"))
	}
	var height types.Height
	for _, blob := range blobs {
		var ns types.Namespace
		if len(blob.Namespace) != len(ns) {
			return nil, invalidParams(fmt.Errorf("namespace of %d bytes", len(blob.Namespace)))
		}
		copy(ns[:], blob.Namespace)
		included, err := s.da.Submit(ctx, ns, [][]byte{blob.Data})
		if err != nil {
			return nil, internalError(err)
		}
		height = max(height, included)
	}
	return height.Uint64(), nil
}

func (s *Server) getAll(ctx context.Context, params []json.RawMessage) (any, *celestia.RPCError) {
	var (
		height     uint64
		namespaces [][]byte
	)
	if err := decodeParams(params, 2, &height, &namespaces); err != nil {
		return nil, err
	}
	var rst []celestia.Blob
	for _, raw := range namespaces {
		var ns types.Namespace
		if len(raw) != len(ns) {
			return nil, invalidParams(fmt.Errorf("namespace of %d bytes", len(raw)))
		}
		copy(ns[:], raw)
		blobs, err := s.da.GetBlobs(ctx, ns, types.Height(height))
		if err != nil {
			return nil, internalError(err)
		}
		for _, blob := range blobs {
			rst = append(rst, celestia.Blob{
				Namespace:  ns.Bytes(),
				Data:       blob.Data,
				Commitment: blob.Commitment,
				Index:      blob.Index,
			})
		}
	}
	if len(rst) == 0 {
		return nil, &celestia.RPCError{Code: celestia.CodeInternal, Message: celestia.MsgBlobNotFound}
	}
	return rst, nil
}

func (s *Server) header(ctx context.Context, height types.Height) (any, *celestia.RPCError) {
	head, err := s.da.Head(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	if height > head {
		return nil, internalError(fmt.Errorf("%w: %d > %d", da.ErrNotProduced, height, head))
	}
	var header celestia.Header
	header.Header.Height = celestia.Height(height)
	return header, nil
}

func (s *Server) networkHead(ctx context.Context, _ []json.RawMessage) (any, *celestia.RPCError) {
	head, err := s.da.Head(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return s.header(ctx, head)
}

func (s *Server) getByHeight(ctx context.Context, params []json.RawMessage) (any, *celestia.RPCError) {
	var height uint64
	if err := decodeParams(params, 1, &height); err != nil {
		return nil, err
	}
	return s.header(ctx, types.Height(height))
}
