// Package ingest drives the rollup state from the DA layer.
//
// The loop fetches blocks strictly in height order, applies the rollup blobs of
// each block and commits state, state root and checkpoint in one database transaction.
// It is the only writer of the rollup state.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/da"
	"github.com/shardnet/go-shard/log"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/sql/checkpoint"
	"github.com/shardnet/go-shard/vm"
	"github.com/shardnet/go-shard/vm/core"
)

// ErrStorageCorruption is returned when the local database can't be trusted anymore.
// The loop halts and the node must be resynced.
var ErrStorageCorruption = errors.New("storage corruption")

// Config of the ingestion loop.
type Config struct {
	// Prefetch is the number of heights fetched concurrently ahead of the applied height.
	Prefetch int `mapstructure:"prefetch"`
	// CacheSize bounds the number of fetched heights kept in memory.
	CacheSize int `mapstructure:"cache-size"`
	// BackoffMin is the delay after the first failure.
	BackoffMin time.Duration `mapstructure:"backoff-min"`
	// BackoffMax bounds the delay between retries.
	BackoffMax time.Duration `mapstructure:"backoff-max"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Prefetch:   4,
		CacheSize:  64,
		BackoffMin: 500 * time.Millisecond,
		BackoffMax: 30 * time.Second,
	}
}

// Opt modifies Loop.
type Opt func(*Loop)

// WithLogger sets logger for Loop.
func WithLogger(logger *zap.Logger) Opt {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithConfig sets loop config.
func WithConfig(cfg Config) Opt {
	return func(l *Loop) {
		l.cfg = cfg
	}
}

// WithClock sets the clock used for backoff.
func WithClock(clock clockwork.Clock) Opt {
	return func(l *Loop) {
		l.clock = clock
	}
}

// WithGenesis sets the height and balances applied to an empty database.
func WithGenesis(height types.Height, balances map[types.AccountID]uint64) Opt {
	return func(l *Loop) {
		l.genesis = height
		l.balances = balances
	}
}

// Status is a consistent view of the loop progress.
type Status struct {
	State         State
	LastProcessed types.Height
	Root          types.Hash32
}

// Loop is the DA ingestion loop.
type Loop struct {
	logger   *zap.Logger
	cfg      Config
	clock    clockwork.Clock
	db       *sql.Database
	client   da.Client
	ns       types.Namespace
	applier  Applier
	genesis  types.Height
	balances map[types.AccountID]uint64

	cache    *lru.Cache[types.Height, []types.Blob]
	head     types.Height
	attempts int

	mu     sync.RWMutex
	status Status
	// subscribers are notified after every committed height.
	subscribers map[chan struct{}]struct{}
}

// New creates a loop that ingests blobs of the namespace ns.
func New(db *sql.Database, client da.Client, ns types.Namespace, applier Applier, opts ...Opt) (*Loop, error) {
	l := &Loop{
		logger:      zap.NewNop(),
		cfg:         DefaultConfig(),
		clock:       clockwork.NewRealClock(),
		db:          db,
		client:      client,
		ns:          ns,
		applier:     applier,
		subscribers: map[chan struct{}]struct{}{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cfg.BackoffMin <= 0 || l.cfg.BackoffMax < l.cfg.BackoffMin {
		return nil, fmt.Errorf("invalid backoff [%v, %v]", l.cfg.BackoffMin, l.cfg.BackoffMax)
	}
	size := max(l.cfg.CacheSize, l.cfg.Prefetch, 1)
	cache, err := lru.New[types.Height, []types.Blob](size)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	l.cache = cache
	return l, nil
}

// Status returns the current progress.
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Subscribe returns a channel that receives a value after a height is committed.
// Notifications are dropped while the channel is full.
func (l *Loop) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()
	return ch, func() {
		l.mu.Lock()
		delete(l.subscribers, ch)
		l.mu.Unlock()
	}
}

func (l *Loop) setState(state State) {
	l.mu.Lock()
	l.status.State = state
	l.mu.Unlock()
	reportState(state)
}

func (l *Loop) commit(height types.Height, root types.Hash32) {
	l.mu.Lock()
	l.status = Status{State: Idle, LastProcessed: height, Root: root}
	for ch := range l.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	l.mu.Unlock()
	reportState(Idle)
	heightGauge.Set(float64(height))
}

func corruption(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStorageCorruption, fmt.Sprintf(format, args...))
}

// Initialize reads the checkpoint or applies genesis to an empty database.
// It is called by Run and is exposed for commands that need state without ingesting.
func (l *Loop) Initialize(ctx context.Context) error {
	height, err := checkpoint.Get(l.db)
	switch {
	case errors.Is(err, sql.ErrNotFound):
		return l.applyGenesis(ctx)
	case sql.IsCorruption(err):
		return fmt.Errorf("%w: %w", ErrStorageCorruption, err)
	case err != nil:
		return err
	}
	if height < l.genesis {
		return corruption("checkpoint %d is below genesis %d", height, l.genesis)
	}
	info, err := checkpoint.GetHeight(l.db, height)
	switch {
	case errors.Is(err, sql.ErrNotFound):
		return corruption("checkpoint %d without state root", height)
	case sql.IsCorruption(err):
		return fmt.Errorf("%w: %w", ErrStorageCorruption, err)
	case err != nil:
		return err
	}
	l.commit(height, info.Root)
	l.logger.Info("loaded checkpoint",
		zap.Uint64("height", height.Uint64()),
		zap.Stringer("root", info.Root),
	)
	return nil
}

func (l *Loop) applyGenesis(ctx context.Context) error {
	var root types.Hash32
	if err := l.db.WithTx(context.WithoutCancel(ctx), func(tx *sql.Tx) error {
		var err error
		root, err = l.applier.ApplyGenesis(tx, l.genesis, l.balances)
		if err != nil {
			return err
		}
		if err := checkpoint.AddHeight(tx, checkpoint.Info{Height: l.genesis, Root: root}); err != nil {
			return err
		}
		return checkpoint.Set(tx, l.genesis)
	}); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	l.commit(l.genesis, root)
	l.logger.Info("initialized state from genesis",
		zap.Uint64("height", l.genesis.Uint64()),
		zap.Stringer("root", root),
	)
	return nil
}

// Run ingests heights until ctx is canceled. It returns nil on cancellation and
// an error wrapping ErrStorageCorruption if the loop halted.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Initialize(ctx); err != nil {
		return l.halt(err)
	}
	l.logger.Info("ingestion started",
		zap.Stringer("namespace", l.ns),
		zap.Uint64("from", l.Status().LastProcessed.Uint64()+1),
		zap.Int("prefetch", l.cfg.Prefetch),
	)
	for {
		if ctx.Err() != nil {
			l.setState(Idle)
			l.logger.Info("ingestion stopped", zap.Uint64("last", l.Status().LastProcessed.Uint64()))
			return nil
		}
		err := l.step(ctx)
		switch {
		case err == nil:
			l.attempts = 0
		case errors.Is(err, ErrStorageCorruption):
			return l.halt(err)
		case ctx.Err() != nil:
		default:
			reason := retryReason(err)
			fetchRetries.WithLabelValues(reason).Inc()
			delay := l.backoff()
			level := zap.DebugLevel
			if reason != da.StatusNotProduced {
				level = zap.WarnLevel
			}
			l.logger.Log(level, "height will be retried",
				zap.Uint64("height", l.Status().LastProcessed.Uint64()+1),
				zap.String("reason", reason),
				zap.Duration("backoff", delay),
				zap.Error(err),
			)
			l.setState(Idle)
			select {
			case <-ctx.Done():
			case <-l.clock.After(delay):
			}
		}
	}
}

func (l *Loop) halt(err error) error {
	if errors.Is(err, ErrStorageCorruption) {
		l.setState(Halted)
		l.logger.Error("ingestion halted, resync from a snapshot is required", zap.Error(err))
	}
	return err
}

func retryReason(err error) string {
	switch {
	case da.IsTransient(err):
		return da.Status(err)
	case errors.Is(err, core.ErrInternal):
		return "internal"
	default:
		return "error"
	}
}

func (l *Loop) backoff() time.Duration {
	delay := l.cfg.BackoffMin
	for i := 0; i < l.attempts && delay < l.cfg.BackoffMax; i++ {
		delay *= 2
	}
	delay = min(delay, l.cfg.BackoffMax)
	l.attempts++
	if half := delay / 2; half > 0 {
		delay = half + rand.N(half+1)
	}
	return max(delay, l.cfg.BackoffMin)
}

func (l *Loop) step(ctx context.Context) error {
	prev := l.Status()
	height := prev.LastProcessed + 1
	ctx = log.WithNewSessionID(ctx, zap.Uint64("height", height.Uint64()))

	l.setState(Fetching)
	blobs, err := l.fetch(ctx, height)
	if err != nil {
		return err
	}

	l.setState(Decoding)
	txs := l.applier.DecodeBlobs(blobs)

	l.setState(Applying)
	start := l.clock.Now()
	var result *vm.Result
	err = l.db.WithTx(context.WithoutCancel(ctx), func(tx *sql.Tx) error {
		var err error
		result, err = l.applier.Apply(tx, height, prev.Root, txs)
		if err != nil {
			return err
		}
		l.setState(Checkpointing)
		if err := checkpoint.AddHeight(tx, checkpoint.Info{
			Height:  height,
			Root:    result.Root,
			Applied: len(result.Applied),
			Dropped: len(result.Dropped),
		}); err != nil {
			return err
		}
		return checkpoint.Set(tx, height)
	})
	switch {
	case sql.IsCorruption(err):
		return fmt.Errorf("%w: height %d: %w", ErrStorageCorruption, height, err)
	case err != nil:
		return fmt.Errorf("apply height %d: %w", height, err)
	}
	l.cache.Remove(height)
	l.commit(height, result.Root)

	applyDuration.Observe(l.clock.Since(start).Seconds())
	appliedTxs.Add(float64(len(result.Applied)))
	droppedTxs.Add(float64(len(result.Dropped)))
	for _, rec := range result.Dropped {
		droppedTotal.WithLabelValues(rec.Reason).Inc()
	}
	l.logger.Debug("applied height",
		log.ZContext(ctx),
		zap.Int("blobs", len(blobs)),
		zap.Int("applied", len(result.Applied)),
		zap.Int("dropped", len(result.Dropped)),
		zap.Stringer("root", result.Root),
	)
	return nil
}

// fetch returns blobs of height. Up to Prefetch heights, bounded by the DA head,
// are requested concurrently and kept in the cache.
func (l *Loop) fetch(ctx context.Context, height types.Height) ([]types.Blob, error) {
	if blobs, ok := l.cache.Get(height); ok {
		return blobs, nil
	}
	last := l.prefetchBound(ctx, height)
	var (
		target   []types.Blob
		eg, ectx = errgroup.WithContext(ctx)
	)
	eg.SetLimit(max(l.cfg.Prefetch, 1))
	for h := height; h <= last; h++ {
		if h != height && l.cache.Contains(h) {
			continue
		}
		eg.Go(func() error {
			blobs, err := l.client.GetBlobs(ectx, l.ns, h)
			if h == height {
				if err != nil {
					return fmt.Errorf("get blobs %d: %w", h, err)
				}
				target = blobs
				return nil
			}
			if err != nil {
				l.logger.Debug("prefetch failed", zap.Uint64("height", h.Uint64()), zap.Error(err))
				return nil
			}
			l.cache.Add(h, blobs)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return target, nil
}

func (l *Loop) prefetchBound(ctx context.Context, height types.Height) types.Height {
	if l.cfg.Prefetch <= 1 {
		return height
	}
	want := height.Add(uint64(l.cfg.Prefetch - 1))
	if l.head < want {
		head, err := l.client.Head(ctx)
		if err != nil {
			l.logger.Debug("failed to read da head", zap.Error(err))
		} else if head > l.head {
			l.head = head
		}
	}
	return max(height, min(want, l.head))
}
