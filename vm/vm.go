package vm

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/registry"
	"github.com/shardnet/go-shard/signing"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/sql/accounts"
	"github.com/shardnet/go-shard/sql/dropped"
	"github.com/shardnet/go-shard/vm/core"
)

// Config toggles verification steps.
type Config struct {
	// VerifySignatures enables the signature check. Disabling it is insecure
	// and meant only for development.
	VerifySignatures bool `mapstructure:"verify-signatures"`
	// EnforceNonces enables the nonce check and nonce accounting.
	EnforceNonces bool `mapstructure:"enforce-nonces"`
}

// DefaultConfig enables all checks.
func DefaultConfig() Config {
	return Config{
		VerifySignatures: true,
		EnforceNonces:    true,
	}
}

// Opt is for changing VM during initialization.
type Opt func(*VM)

// WithLogger sets logger for VM.
func WithLogger(logger *zap.Logger) Opt {
	return func(vm *VM) {
		vm.logger = logger
	}
}

// WithConfig sets verification config.
func WithConfig(cfg Config) Opt {
	return func(vm *VM) {
		vm.cfg = cfg
	}
}

// New returns VM instance. Signatures are verified with the namespace ns as prefix.
func New(app core.Application, ns types.Namespace, opts ...Opt) (*VM, error) {
	verifier, err := signing.NewEdVerifier(signing.WithVerifierPrefix(ns.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	vm := &VM{
		verifier: verifier,
		logger:   zap.NewNop(),
		cfg:      DefaultConfig(),
		app:      app,
		known:    map[types.TxType]struct{}{},
	}
	for _, opt := range opts {
		opt(vm)
	}
	for _, schema := range app.Schema() {
		vm.known[schema.Type] = struct{}{}
	}
	return vm, nil
}

// VM verifies and applies transactions of a single application.
type VM struct {
	logger   *zap.Logger
	cfg      Config
	app      core.Application
	verifier *signing.EdVerifier
	known    map[types.TxType]struct{}
}

// App returns the application executed by the VM.
func (vm *VM) App() core.Application {
	return vm.app
}

// Config returns verification config.
func (vm *VM) Config() Config {
	return vm.cfg
}

// Decode decodes the raw envelope. Unknown transaction types are malformed.
func (vm *VM) Decode(raw []byte) (*types.Envelope, error) {
	return types.DecodeEnvelope(raw, func(tt types.TxType) bool {
		_, exist := vm.known[tt]
		return exist
	})
}

// Decoded is a blob after decoding. Err is set if the blob is malformed.
type Decoded struct {
	Index    int
	ID       types.TransactionID
	Envelope *types.Envelope
	Err      error
}

// DecodeBlobs orders blobs by the index reported by the DA layer and decodes them.
func (vm *VM) DecodeBlobs(blobs []types.Blob) []Decoded {
	ordered := make([]types.Blob, len(blobs))
	copy(ordered, blobs)
	types.SortBlobs(ordered)
	rst := make([]Decoded, 0, len(ordered))
	for _, blob := range ordered {
		env, err := vm.Decode(blob.Data)
		rst = append(rst, Decoded{
			Index:    blob.Index,
			ID:       types.CalcTransactionID(blob.Data),
			Envelope: env,
			Err:      err,
		})
	}
	return rst
}

// Accounts is the registry view used by verification.
type Accounts interface {
	Lookup(types.AccountID) (types.PublicKey, bool, error)
	CurrentNonce(types.AccountID) (uint64, error)
}

// Snapshot is the state a transaction is verified against.
type Snapshot struct {
	Height   types.Height
	State    core.Reader
	Accounts Accounts
}

// NewSnapshot creates a snapshot of the committed database at height.
func NewSnapshot(db sql.Executor, height types.Height) Snapshot {
	return Snapshot{
		Height:   height,
		State:    core.NewDBReader(db, height),
		Accounts: atHeight{reg: registry.New(db), height: height},
	}
}

type atHeight struct {
	reg    *registry.Registry
	height types.Height
}

func (a atHeight) Lookup(id types.AccountID) (types.PublicKey, bool, error) {
	return a.reg.LookupAt(id, a.height)
}

func (a atHeight) CurrentNonce(id types.AccountID) (uint64, error) {
	return a.reg.NonceAt(id, a.height)
}

// Verify runs the signature, nonce and application checks. Nothing is modified.
func (vm *VM) Verify(env *types.Envelope, snap Snapshot) error {
	_, err := vm.verify(vm.context(env, snap.Height, types.TransactionID{}, 0), env, snap)
	return err
}

func (vm *VM) context(env *types.Envelope, height types.Height, id types.TransactionID, index int) *core.Context {
	return &core.Context{
		Sender: env.Sender,
		Height: height,
		TxID:   id,
		Index:  index,
		Logger: vm.logger,
	}
}

func (vm *VM) verify(ctx *core.Context, env *types.Envelope, snap Snapshot) (core.Tx, error) {
	tx, err := vm.app.Parse(env.TxType, env.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: parse payload: %w", types.ErrMalformed, err)
	}
	if vm.cfg.VerifySignatures {
		if err := vm.verifySignature(env, snap.Accounts); err != nil {
			return nil, err
		}
	}
	if vm.cfg.EnforceNonces {
		if err := verifyNonce(env, snap.Accounts); err != nil {
			return nil, err
		}
	}
	if err := vm.app.Verify(ctx, snap.State, tx); err != nil {
		if errors.Is(err, core.ErrInternal) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", core.ErrApplicationRejected, err.Error())
	}
	return tx, nil
}

func (vm *VM) verifySignature(env *types.Envelope, accounts Accounts) error {
	pk, found, err := accounts.Lookup(env.Sender)
	if err != nil {
		return fmt.Errorf("%w: lookup %s: %w", core.ErrInternal, env.Sender, err)
	}
	if found {
		if env.PublicKey != nil && *env.PublicKey != pk {
			return fmt.Errorf("%w: public key doesn't match registered key", core.ErrInvalidSignature)
		}
	} else {
		if env.PublicKey == nil {
			return fmt.Errorf("%w: unknown sender %s without public key", core.ErrInvalidSignature, env.Sender)
		}
		if types.DeriveAccountID(*env.PublicKey) != env.Sender {
			return fmt.Errorf("%w: public key doesn't match sender", core.ErrInvalidSignature)
		}
		pk = *env.PublicKey
	}
	if env.Signature == nil {
		return fmt.Errorf("%w: missing signature", core.ErrInvalidSignature)
	}
	if !vm.verifier.VerifyEnvelope(pk, env) {
		return fmt.Errorf("%w: signature verification failed", core.ErrInvalidSignature)
	}
	return nil
}

func verifyNonce(env *types.Envelope, accounts Accounts) error {
	if env.Nonce == nil {
		return fmt.Errorf("%w: missing nonce", core.ErrNonceMismatch)
	}
	current, err := accounts.CurrentNonce(env.Sender)
	if err != nil {
		return fmt.Errorf("%w: nonce of %s: %w", core.ErrInternal, env.Sender, err)
	}
	switch {
	case *env.Nonce < current:
		return fmt.Errorf("%w: too low %d < %d", core.ErrNonceMismatch, *env.Nonce, current)
	case *env.Nonce > current:
		return fmt.Errorf("%w: too high %d > %d", core.ErrNonceMismatch, *env.Nonce, current)
	}
	return nil
}

// Scope is the mutable state of the height being applied.
// It exists only inside a single database transaction.
type Scope struct {
	db       sql.Executor
	height   types.Height
	state    *core.StagedState
	registry *registry.Registry
	touched  map[types.AccountID]struct{}
}

// NewScope creates a scope for height within db transaction.
func NewScope(db sql.Executor, height types.Height) *Scope {
	return &Scope{
		db:       db,
		height:   height,
		state:    core.NewStagedState(core.NewDBReader(db, height)),
		registry: registry.New(db),
		touched:  map[types.AccountID]struct{}{},
	}
}

// Height of the scope.
func (s *Scope) Height() types.Height { return s.height }

// State returns staged writes of the height.
func (s *Scope) State() *core.StagedState { return s.state }

// Snapshot returns the view of the scope used by verification.
// It includes effects of transactions applied earlier in the height.
func (s *Scope) Snapshot() Snapshot {
	return Snapshot{Height: s.height, State: s.state, Accounts: s.registry}
}

func (s *Scope) touchedAccounts() ([]accounts.Account, error) {
	ids := make([]types.AccountID, 0, len(s.touched))
	for id := range s.touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i][:]) < string(ids[j][:])
	})
	rst := make([]accounts.Account, 0, len(ids))
	for _, id := range ids {
		account, err := accounts.Latest(s.db, id)
		if err != nil {
			return nil, err
		}
		rst = append(rst, account)
	}
	return rst, nil
}

// ApplyTx verifies env and applies it to the scope.
//
// An error from the application is returned wrapped with core.ErrApplication and the
// transaction has no effect. Errors wrapping core.ErrInternal must abort the height.
func (vm *VM) ApplyTx(scope *Scope, index int, id types.TransactionID, env *types.Envelope) error {
	ctx := vm.context(env, scope.height, id, index)
	tx, err := vm.verify(ctx, env, scope.Snapshot())
	if err != nil {
		return err
	}
	staged := core.NewStagedState(scope.state)
	if err := vm.app.Process(ctx, staged, tx); err != nil {
		staged.Discard()
		if errors.Is(err, core.ErrInternal) {
			return err
		}
		return fmt.Errorf("%w: %s", core.ErrApplication, err.Error())
	}
	if err := staged.Commit(); err != nil {
		return err
	}
	if env.PublicKey != nil && types.DeriveAccountID(*env.PublicKey) == env.Sender {
		err := scope.registry.Register(env.Sender, *env.PublicKey, scope.height)
		switch {
		case errors.Is(err, registry.ErrKeyConflict):
			vm.logger.Warn("public key not registered",
				zap.Stringer("account", env.Sender),
				zap.Error(err),
			)
		case err != nil:
			return fmt.Errorf("%w: register %s: %w", core.ErrInternal, env.Sender, err)
		default:
			scope.touched[env.Sender] = struct{}{}
		}
	}
	if vm.cfg.EnforceNonces {
		if err := scope.registry.AdvanceNonce(env.Sender, scope.height); err != nil {
			return fmt.Errorf("%w: advance nonce %s: %w", core.ErrInternal, env.Sender, err)
		}
		scope.touched[env.Sender] = struct{}{}
	}
	return nil
}

// Result of applying a height.
type Result struct {
	Height  types.Height
	Root    types.Hash32
	Applied []types.TransactionID
	Dropped []dropped.Record
}

// Apply folds decoded transactions of the height in order. State, registry and audit rows
// are written to db, which must be the transaction of the height.
func (vm *VM) Apply(db sql.Executor, height types.Height, prev types.Hash32, txs []Decoded) (*Result, error) {
	var (
		start  = time.Now()
		scope  = NewScope(db, height)
		result = &Result{Height: height}
	)
	for _, tx := range txs {
		err := tx.Err
		if err == nil {
			err = vm.ApplyTx(scope, tx.Index, tx.ID, tx.Envelope)
		}
		if err == nil {
			result.Applied = append(result.Applied, tx.ID)
			continue
		}
		if errors.Is(err, core.ErrInternal) {
			return nil, fmt.Errorf("apply %s at %v: %w", tx.ID, height, err)
		}
		rec := dropped.Record{
			Height:  height,
			Index:   tx.Index,
			TxID:    tx.ID,
			Reason:  core.Reason(err),
			Message: err.Error(),
		}
		if tx.Envelope != nil {
			sender := tx.Envelope.Sender
			rec.Sender = &sender
		}
		vm.logger.Warn("skipping transaction",
			zap.Uint64("height", height.Uint64()),
			zap.Int("index", tx.Index),
			zap.Stringer("tx_id", tx.ID),
			zap.String("reason", rec.Reason),
			zap.String("message", rec.Message),
		)
		if err := dropped.Add(db, rec); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInternal, err)
		}
		result.Dropped = append(result.Dropped, rec)
	}
	changes := scope.state.Changes()
	if err := scope.state.Flush(db, height); err != nil {
		return nil, err
	}
	touched, err := scope.touchedAccounts()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInternal, err)
	}
	result.Root = computeRoot(prev, height, result.Applied, changes, touched)
	vm.logger.Debug("applied transactions",
		zap.Uint64("height", height.Uint64()),
		zap.Int("count", len(result.Applied)),
		zap.Int("dropped", len(result.Dropped)),
		zap.Int("writes", len(changes)),
		zap.Stringer("root", result.Root),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// ApplyGenesis writes the initial state of the application at height and returns the genesis root.
func (vm *VM) ApplyGenesis(db sql.Executor, height types.Height, balances map[types.AccountID]uint64) (types.Hash32, error) {
	staged := core.NewStagedState(core.NewDBReader(db, height))
	if err := vm.app.Genesis(staged, balances); err != nil {
		return types.Hash32{}, fmt.Errorf("genesis of %s: %w", vm.app.Name(), err)
	}
	changes := staged.Changes()
	if err := staged.Flush(db, height); err != nil {
		return types.Hash32{}, err
	}
	root := computeRoot(types.Hash32{}, height, nil, changes, nil)
	vm.logger.Info("applied genesis",
		zap.String("app", vm.app.Name()),
		zap.Uint64("height", height.Uint64()),
		zap.Int("accounts", len(balances)),
		zap.Stringer("root", root),
	)
	return root, nil
}
