// Package submit builds, signs and posts transactions to the DA layer.
//
// Submission never touches the local state. The nonce it attaches is a hint read from
// the node, the authoritative check happens when the transaction is ingested.
package submit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/da"
	"github.com/shardnet/go-shard/log"
	"github.com/shardnet/go-shard/signing"
	"github.com/shardnet/go-shard/vm/core"
)

//go:generate mockgen -typed -package=mocks -destination=./mocks/mocks.go -source=./submit.go

var (
	// ErrSchemaMismatch is returned when the transaction name or values don't match the application schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrSignerNotFound is returned when the signer is not in the keystore.
	ErrSignerNotFound = errors.New("signer not found")
	// ErrDAPost is returned when the DA layer did not accept the blob.
	ErrDAPost = errors.New("da post failed")
)

// Kind returns the name of the error kind printed by the CLI.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrSchemaMismatch):
		return "SchemaMismatch"
	case errors.Is(err, ErrSignerNotFound):
		return "SignerNotFound"
	case errors.Is(err, ErrDAPost):
		return "DAPost"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Canceled"
	default:
		return "SubmissionError"
	}
}

// NonceSource provides the locally observed nonce of an account.
type NonceSource interface {
	Nonce(ctx context.Context, id types.AccountID) (uint64, error)
}

// Signers loads signers by name.
type Signers interface {
	Load(name string, opts ...signing.EdSignerOptionFunc) (*signing.EdSigner, error)
}

// Config mirrors the verification flags of the node the transaction is submitted to.
type Config struct {
	Sign  bool `mapstructure:"sign"`
	Nonce bool `mapstructure:"nonce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Sign: true, Nonce: true}
}

// Request describes a transaction to submit.
type Request struct {
	// TxName is the name declared in the application schema.
	TxName string
	// Values are parsed in the order of the schema fields.
	Values []string
	// Signer is the keystore name of the sender key.
	Signer string
	// Nonce overrides the nonce read from NonceSource.
	Nonce *uint64
}

// Opt modifies Submitter.
type Opt func(*Submitter)

// WithLogger sets logger for Submitter.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// WithConfig sets the configuration.
func WithConfig(cfg Config) Opt {
	return func(s *Submitter) {
		s.cfg = cfg
	}
}

// WithNonceSource sets the source of advisory nonces.
func WithNonceSource(nonces NonceSource) Opt {
	return func(s *Submitter) {
		s.nonces = nonces
	}
}

// Submitter posts application transactions to the DA layer.
type Submitter struct {
	logger  *zap.Logger
	cfg     Config
	app     core.Application
	signers Signers
	ns      types.Namespace
	client  da.Client
	nonces  NonceSource
}

// New creates a Submitter for the application namespace.
func New(app core.Application, signers Signers, ns types.Namespace, client da.Client, opts ...Opt) *Submitter {
	s := &Submitter{
		logger:  zap.NewNop(),
		cfg:     DefaultConfig(),
		app:     app,
		signers: signers,
		ns:      ns,
		client:  client,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build encodes the request into a signed envelope without posting it.
func (s *Submitter) Build(ctx context.Context, req Request) (*types.Envelope, error) {
	schema, exist := core.Lookup(s.app.Schema(), req.TxName)
	if !exist {
		return nil, fmt.Errorf("%w: %s has no transaction %q", ErrSchemaMismatch, s.app.Name(), req.TxName)
	}
	payload, err := schema.Encode(req.Values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	if _, err := s.app.Parse(schema.Type, payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSchemaMismatch, req.TxName, err)
	}
	if req.Signer == "" {
		return nil, fmt.Errorf("%w: no signer given", ErrSignerNotFound)
	}
	signer, err := s.signers.Load(req.Signer, signing.WithPrefix(s.ns.Bytes()))
	if err != nil {
		if errors.Is(err, signing.ErrKeyNotFound) || errors.Is(err, signing.ErrInvalidKeyName) {
			return nil, fmt.Errorf("%w: %w", ErrSignerNotFound, err)
		}
		return nil, err
	}

	env := &types.Envelope{
		TxType:  schema.Type,
		Payload: payload,
		Sender:  signer.AccountID(),
	}
	switch {
	case req.Nonce != nil:
		nonce := *req.Nonce
		env.Nonce = &nonce
	case s.cfg.Nonce:
		var nonce uint64
		if s.nonces != nil {
			nonce, err = s.nonces.Nonce(ctx, env.Sender)
			if err != nil {
				return nil, fmt.Errorf("read nonce of %s: %w", env.Sender, err)
			}
		}
		env.Nonce = &nonce
	}
	if s.cfg.Sign {
		signer.SignEnvelope(env)
	} else {
		pk := signer.PublicKey()
		env.PublicKey = &pk
	}
	return env, nil
}

// Submit builds the envelope and posts it as a blob. Failures are returned to the caller
// without retrying.
func (s *Submitter) Submit(ctx context.Context, req Request) (types.BlobRef, error) {
	env, err := s.Build(ctx, req)
	if err != nil {
		return types.BlobRef{}, err
	}
	raw, err := types.EncodeEnvelope(env)
	if err != nil {
		return types.BlobRef{}, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	id := types.CalcTransactionID(raw)
	height, err := s.client.Submit(ctx, s.ns, [][]byte{raw})
	if err != nil {
		if ctx.Err() != nil {
			return types.BlobRef{}, ctx.Err()
		}
		return types.BlobRef{}, fmt.Errorf("%w: %w", ErrDAPost, err)
	}
	ref := types.BlobRef{Height: height, TxID: id}
	s.logger.Info("submitted transaction",
		log.ZContext(ctx),
		zap.String("tx", req.TxName),
		zap.Stringer("sender", env.Sender),
		zap.Uint64("nonce", env.NonceOrZero()),
		zap.Stringer("ref", ref),
	)
	return ref, nil
}

// LocalNonces reads nonces from the registry of a local database.
type LocalNonces struct {
	Registry interface {
		CurrentNonce(types.AccountID) (uint64, error)
	}
}

// Nonce implements NonceSource.
func (l LocalNonces) Nonce(_ context.Context, id types.AccountID) (uint64, error) {
	return l.Registry.CurrentNonce(id)
}
