// Package localda implements a single process DA layer for development networks.
//
// Submitted blobs are queued and sealed into a block every BlockTime, empty blocks
// included. Sealed blocks are stored in goleveldb and never change.
package localda

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/da"
)

const (
	methodGetBlobs = "localda.GetBlobs"
	methodSubmit   = "localda.Submit"
	methodHead     = "localda.Head"
)

var (
	headKey     = []byte("h")
	blockPrefix = []byte("b/")

	errClosed = errors.New("localda: closed")
)

// Config of the local DA.
type Config struct {
	// BlockTime is the interval between sealed blocks.
	BlockTime time.Duration `mapstructure:"block-time"`
	// Listen is the address of the JSON-RPC server. Empty disables the server.
	Listen string `mapstructure:"listen"`
	// MaxBlobsPerBlock bounds the size of a block. Blobs over the limit stay queued.
	MaxBlobsPerBlock int `mapstructure:"max-blobs-per-block"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BlockTime:        2 * time.Second,
		Listen:           "127.0.0.1:26658",
		MaxBlobsPerBlock: 1000,
	}
}

// Opt modifies DA.
type Opt func(*DA)

// WithLogger sets logger for DA.
func WithLogger(logger *zap.Logger) Opt {
	return func(d *DA) {
		d.logger = logger
	}
}

// WithClock sets the clock of the block producer.
func WithClock(clock clockwork.Clock) Opt {
	return func(d *DA) {
		d.clock = clock
	}
}

type pendingBlob struct {
	ns   types.Namespace
	data []byte
}

// DA is a local data availability layer.
type DA struct {
	logger *zap.Logger
	clock  clockwork.Clock
	cfg    Config
	db     *leveldb.DB

	mu      sync.Mutex
	head    types.Height
	pending []pendingBlob
	closed  bool
}

var _ da.Client = (*DA)(nil)

// Open opens the block store at path. An empty path keeps blocks in memory.
func Open(path string, cfg Config, opts ...Opt) (*DA, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open block store %q: %w", path, err)
	}
	d := &DA{
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
		cfg:    cfg,
		db:     db,
	}
	for _, opt := range opts {
		opt(d)
	}
	head, err := db.Get(headKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("read head: %w", err)
	case len(head) != 8:
		db.Close()
		return nil, fmt.Errorf("invalid head record of %d bytes", len(head))
	default:
		d.head = types.Height(binary.BigEndian.Uint64(head))
	}
	d.logger.Info("opened local da",
		zap.String("path", path),
		zap.Uint64("head", d.head.Uint64()),
		zap.Duration("block time", cfg.BlockTime),
	)
	return d, nil
}

// Close closes the block store.
func (d *DA) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// Run seals a block every BlockTime until ctx is canceled.
func (d *DA) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.cfg.BlockTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if _, err := d.Seal(); err != nil {
				return err
			}
		}
	}
}

func heightPrefix(height types.Height) []byte {
	key := make([]byte, 0, len(blockPrefix)+8)
	key = append(key, blockPrefix...)
	return binary.BigEndian.AppendUint64(key, height.Uint64())
}

func namespacePrefix(height types.Height, ns types.Namespace) []byte {
	return append(heightPrefix(height), ns.Bytes()...)
}

func blobKey(height types.Height, ns types.Namespace, index int) []byte {
	return binary.BigEndian.AppendUint32(namespacePrefix(height, ns), uint32(index))
}

// Seal stores queued blobs as the next block and returns its height.
func (d *DA) Seal() (types.Height, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, errClosed
	}
	blobs := d.pending
	if limit := d.cfg.MaxBlobsPerBlock; limit > 0 && len(blobs) > limit {
		blobs = blobs[:limit]
	}
	height := d.head + 1
	batch := new(leveldb.Batch)
	for i, blob := range blobs {
		batch.Put(blobKey(height, blob.ns, i), blob.data)
	}
	batch.Put(headKey, binary.BigEndian.AppendUint64(nil, height.Uint64()))
	if err := d.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("write block %d: %w", height, err)
	}
	d.head = height
	d.pending = d.pending[len(blobs):]
	if len(blobs) > 0 {
		d.logger.Debug("sealed block",
			zap.Uint64("height", height.Uint64()),
			zap.Int("blobs", len(blobs)),
			zap.Int("queued", len(d.pending)),
		)
	}
	return height, nil
}

// Submit implements da.Client. Blobs are included in the next sealed block
// unless the queue exceeds the block limit.
func (d *DA) Submit(_ context.Context, ns types.Namespace, blobs [][]byte) (height types.Height, err error) {
	defer func() { da.Observe(methodSubmit, err) }()
	if err := ns.Validate(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, fmt.Errorf("%w: %w", da.ErrUnavailable, errClosed)
	}
	for _, blob := range blobs {
		data := make([]byte, len(blob))
		copy(data, blob)
		d.pending = append(d.pending, pendingBlob{ns: ns, data: data})
	}
	blocks := 1
	if limit := d.cfg.MaxBlobsPerBlock; limit > 0 {
		blocks = (len(d.pending) + limit - 1) / limit
	}
	return d.head.Add(uint64(blocks)), nil
}

// GetBlobs implements da.Client.
func (d *DA) GetBlobs(_ context.Context, ns types.Namespace, height types.Height) (blobs []types.Blob, err error) {
	defer func() { da.Observe(methodGetBlobs, err) }()
	d.mu.Lock()
	head, closed := d.head, d.closed
	d.mu.Unlock()
	switch {
	case closed:
		return nil, fmt.Errorf("%w: %w", da.ErrUnavailable, errClosed)
	case height == 0 || height > head:
		return nil, fmt.Errorf("%w: %d > %d", da.ErrNotProduced, height, head)
	}
	prefix := namespacePrefix(height, ns)
	it := d.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != len(prefix)+4 {
			return nil, fmt.Errorf("%w: invalid blob key %x", da.ErrUnavailable, key)
		}
		data := make([]byte, len(it.Value()))
		copy(data, it.Value())
		blobs = append(blobs, types.Blob{
			Data:       data,
			Commitment: commitment(ns, data),
			Index:      int(binary.BigEndian.Uint32(key[len(prefix):])),
		})
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("%w: iterate block %d: %w", da.ErrUnavailable, height, err)
	}
	return blobs, nil
}

// Head implements da.Client.
func (d *DA) Head(context.Context) (types.Height, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	da.Observe(methodHead, nil)
	return d.head, nil
}

func commitment(ns types.Namespace, data []byte) []byte {
	hash := types.CalcHash32(ns.Bytes(), data)
	return hash.Bytes()
}
