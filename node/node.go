// Package node contains the go-shard node and its commands.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shardnet/go-shard/api"
	"github.com/shardnet/go-shard/apps"
	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/config"
	"github.com/shardnet/go-shard/config/presets"
	"github.com/shardnet/go-shard/da"
	"github.com/shardnet/go-shard/da/celestia"
	"github.com/shardnet/go-shard/da/localda"
	"github.com/shardnet/go-shard/ingest"
	"github.com/shardnet/go-shard/log"
	"github.com/shardnet/go-shard/metrics"
	"github.com/shardnet/go-shard/snapshot"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/vm"
	"github.com/shardnet/go-shard/vm/core"
)

// Logger names.
const (
	AppLogger      = "app"
	IngestLogger   = "ingest"
	VMLogger       = "vm"
	DALogger       = "da"
	LocalDALogger  = "localda"
	APILogger      = "api"
	SubmitLogger   = "submit"
	DatabaseLogger = "db"
	MetricsLogger  = "metrics"
)

const cleanupTimeout = 30 * time.Second

// Option to modify an App instance.
type Option func(app *App)

// WithConfig overwrites default App config.
func WithConfig(conf *config.Config) Option {
	return func(app *App) {
		app.Config = conf
	}
}

// WithLog sets the output of the loggers created by the App.
func WithLog(output io.Writer) Option {
	return func(app *App) {
		app.output = output
	}
}

// WithFs sets the filesystem used for keys and snapshots.
func WithFs(fs afero.Fs) Option {
	return func(app *App) {
		app.fs = fs
	}
}

// New creates an instance of the go-shard app.
func New(opts ...Option) *App {
	defaultConfig := config.DefaultConfig()
	app := &App{
		Config:  &defaultConfig,
		output:  os.Stderr,
		fs:      afero.NewOsFs(),
		loggers: map[string]*zap.AtomicLevel{},
		started: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(app)
	}
	app.log = app.addLogger(AppLogger)
	return app
}

// App is the go-shard node. It owns the local store, the DA client, the ingestion
// loop and the servers around them.
type App struct {
	Config *config.Config

	output  io.Writer
	fs      afero.Fs
	log     *zap.Logger
	loggers map[string]*zap.AtomicLevel

	fileLock *flock.Flock
	db       *sql.Database
	app      core.Application
	vm       *vm.VM
	localDA  *localda.DA
	client   da.Client
	loop     *ingest.Loop

	apiServer     *api.Server
	daServer      *localda.Server
	metricsServer *metrics.Server

	// started is closed once servers are listening.
	started chan struct{}
}

// Lock locks the app for exclusive use. It returns an error if the app is already locked.
func (app *App) Lock() error {
	lockDir := filepath.Dir(app.Config.FileLock)
	if _, err := os.Stat(lockDir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(lockDir, 0o700); err != nil {
			return fmt.Errorf("creating dir %s for lock %s: %w", lockDir, app.Config.FileLock, err)
		}
	}
	fl := flock.New(app.Config.FileLock)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("flock %s: %w", app.Config.FileLock, err)
	} else if !locked {
		return fmt.Errorf("only one go-shard instance should be running (locking file %s)", fl.Path())
	}
	app.fileLock = fl
	return nil
}

// Unlock unlocks the app. It is a no-op if the app is not locked.
func (app *App) Unlock() {
	if app.fileLock == nil {
		return
	}
	if err := app.fileLock.Unlock(); err != nil {
		app.log.Error("failed to unlock file",
			zap.String("path", app.fileLock.Path()),
			zap.Error(err),
		)
	}
}

// Initialize validates the configuration and persists the genesis config on the first start.
// On later starts a changed genesis is rejected.
func (app *App) Initialize() error {
	if err := os.MkdirAll(app.Config.DataDir(), 0o700); err != nil {
		return fmt.Errorf("ensure folders exist: %w", err)
	}
	types.SetAccountHRP(app.Config.AccountHRP)
	if err := app.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	gpath := filepath.Join(app.Config.DataDir(), config.GenesisFileName)
	var existing config.GenesisConfig
	if err := existing.LoadFromFile(gpath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load genesis config at %s: %w", gpath, err)
		}
		if err := app.Config.Genesis.WriteToFile(gpath); err != nil {
			return fmt.Errorf("failed to write genesis config to %s: %w", gpath, err)
		}
	} else {
		diff := existing.Diff(&app.Config.Genesis)
		if len(diff) > 0 {
			app.log.Error("genesis config updated after node initialization, if this update is required delete config",
				zap.String("path", gpath),
				zap.String("diff", diff),
			)
			return errors.New("genesis config updated after node initialization")
		}
	}
	application, err := apps.New(app.Config.App)
	if err != nil {
		return err
	}
	app.app = application
	return nil
}

func (app *App) openDatabase() error {
	if app.db != nil {
		return nil
	}
	db, err := sql.Open("file:"+app.Config.DatabasePath(),
		sql.WithLogger(app.addLogger(DatabaseLogger)),
		sql.WithConnections(app.Config.DatabaseConnections),
		sql.WithLatencyMetering(app.Config.DatabaseLatencyMetering),
	)
	if err != nil {
		return fmt.Errorf("open sqlite db %w", err)
	}
	app.db = db
	return nil
}

func (app *App) newVM() (*vm.VM, error) {
	if !app.Config.VM.VerifySignatures {
		app.log.Warn("signature verification is disabled, the node runs in insecure mode")
	}
	return vm.New(app.app, app.Config.Namespace,
		vm.WithLogger(app.addLogger(VMLogger)),
		vm.WithConfig(app.Config.VM),
	)
}

// newClient creates the client of the configured DA layer. In local mode the DA runs
// inside the node.
func (app *App) newClient() (da.Client, error) {
	switch app.Config.DA.Mode {
	case config.DALocal:
		d, err := localda.Open(app.Config.LocalDADir(), app.Config.LocalDA,
			localda.WithLogger(app.addLogger(LocalDALogger)),
		)
		if err != nil {
			return nil, err
		}
		app.localDA = d
		return d, nil
	case config.DACelestia:
		return celestia.New(app.Config.DA.Celestia, celestia.WithLogger(app.addLogger(DALogger)))
	default:
		return nil, fmt.Errorf("unknown da mode %q", app.Config.DA.Mode)
	}
}

// Recover loads the snapshot file into the empty local store.
func (app *App) Recover(ctx context.Context, file string) error {
	if err := app.openDatabase(); err != nil {
		return err
	}
	height, err := snapshot.Recover(ctx, app.fs, app.db, file, app.meta())
	if err != nil {
		return err
	}
	app.log.Info("recovered from snapshot",
		zap.String("file", file),
		zap.Uint64("height", height.Uint64()),
	)
	return nil
}

func (app *App) meta() snapshot.Meta {
	return snapshot.Meta{Namespace: app.Config.Namespace, App: app.Config.App}
}

func (app *App) initServices() error {
	if err := app.openDatabase(); err != nil {
		return err
	}
	machine, err := app.newVM()
	if err != nil {
		return err
	}
	app.vm = machine
	client, err := app.newClient()
	if err != nil {
		return err
	}
	app.client = client
	balances, err := app.Config.Genesis.Balances()
	if err != nil {
		return err
	}
	loop, err := ingest.New(app.db, app.client, app.Config.Namespace, app.vm,
		ingest.WithLogger(app.addLogger(IngestLogger)),
		ingest.WithConfig(app.Config.Ingest),
		ingest.WithGenesis(app.Config.Genesis.Height, balances),
	)
	if err != nil {
		return err
	}
	app.loop = loop
	return nil
}

func (app *App) startServers() error {
	if app.Config.API.Enable {
		app.apiServer = api.NewServer(app.db, app.loop, app.app, app.Config.Namespace, app.Config.API.Config,
			api.WithLogger(app.addLogger(APILogger)),
		)
		if err := app.apiServer.Start(); err != nil {
			return err
		}
	}
	if app.localDA != nil && app.Config.LocalDA.Listen != "" {
		app.daServer = localda.NewServer(app.localDA, app.Config.LocalDA.Listen,
			app.Config.DA.Celestia.AuthToken, app.addLogger(LocalDALogger))
		if err := app.daServer.Start(); err != nil {
			return err
		}
	}
	if app.Config.CollectMetrics {
		app.metricsServer = metrics.NewServer(
			net.JoinHostPort("0.0.0.0", strconv.Itoa(app.Config.MetricsPort)),
			app.addLogger(MetricsLogger),
		)
		if err := app.metricsServer.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the node services and blocks until ctx is canceled or ingestion halts.
func (app *App) Start(ctx context.Context) error {
	if err := app.initServices(); err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	if err := app.startServers(); err != nil {
		return fmt.Errorf("start servers: %w", err)
	}
	ctx = log.WithNewSessionID(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	if app.Config.MetricsPush.URL != "" {
		metrics.StartPushing(ctx, app.addLogger(MetricsLogger), app.Config.MetricsPush, app.Config.Namespace.String())
	}
	if app.localDA != nil {
		eg.Go(func() error {
			return app.localDA.Run(ctx)
		})
	}
	eg.Go(func() error {
		if err := app.loop.Run(ctx); err != nil {
			return fmt.Errorf("ingestion: %w", err)
		}
		return nil
	})
	close(app.started)
	app.log.Info("node started",
		log.ZContext(ctx),
		zap.String("app", app.Config.App),
		zap.Stringer("namespace", app.Config.Namespace),
		zap.String("da", app.Config.DA.Mode),
	)
	return eg.Wait()
}

// Started is closed after the servers are listening.
func (app *App) Started() <-chan struct{} {
	return app.started
}

// Cleanup stops all app services.
func (app *App) Cleanup(ctx context.Context) {
	app.log.Info("app cleanup starting...")
	if app.apiServer != nil {
		if err := app.apiServer.Stop(ctx); err != nil {
			app.log.Warn("failed to stop api server", zap.Error(err))
		}
	}
	if app.daServer != nil {
		if err := app.daServer.Stop(ctx); err != nil {
			app.log.Warn("failed to stop local da server", zap.Error(err))
		}
	}
	if app.metricsServer != nil {
		if err := app.metricsServer.Stop(ctx); err != nil {
			app.log.Warn("failed to stop metrics server", zap.Error(err))
		}
	}
	if app.localDA != nil {
		if err := app.localDA.Close(); err != nil {
			app.log.Warn("failed to close local da", zap.Error(err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.log.Warn("failed to close database", zap.Error(err))
		}
	}
	app.log.Info("app cleanup completed")
}

// Status returns the ingestion progress, valid after Start.
func (app *App) Status() ingest.Status {
	return app.loop.Status()
}

// APIAddr returns the address of the query api, valid after Started is closed.
func (app *App) APIAddr() net.Addr {
	if app.apiServer == nil {
		return nil
	}
	return app.apiServer.Addr()
}

// DAAddr returns the address of the local da server, valid after Started is closed.
func (app *App) DAAddr() net.Addr {
	if app.daServer == nil {
		return nil
	}
	return app.daServer.Addr()
}

func (app *App) addLogger(name string) *zap.Logger {
	lvl, err := decodeLoggerLevel(app.Config, name)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	if existing, ok := app.loggers[name]; ok {
		lvl = *existing
	} else {
		app.loggers[name] = &lvl
	}
	logger, err := log.NewWithLevel(name, lvl,
		log.WithEncoder(app.Config.LOGGING.Encoder),
		log.WithOutput(app.output),
	)
	if err != nil {
		logger, _ = log.NewWithLevel(name, lvl, log.WithOutput(app.output))
	}
	return logger
}

// SetLogLevel updates the log level of an existing logger.
func (app *App) SetLogLevel(name, loglevel string) error {
	lvl, ok := app.loggers[name]
	if !ok {
		return fmt.Errorf("cannot find logger %v", name)
	}
	if err := lvl.UnmarshalText([]byte(loglevel)); err != nil {
		return fmt.Errorf("unmarshal text: %w", err)
	}
	return nil
}

func decodeLoggerLevel(cfg *config.Config, name string) (zap.AtomicLevel, error) {
	lvl := zap.NewAtomicLevel()
	loggers := map[string]string{}
	if err := mapstructure.Decode(cfg.LOGGING, &loggers); err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("error decoding mapstructure: %w", err)
	}
	level, ok := loggers[name]
	if ok {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return zap.AtomicLevel{}, fmt.Errorf("cannot parse logging for %v: %w", name, err)
		}
	} else {
		lvl.SetLevel(zap.InfoLevel)
	}
	return lvl, nil
}

// loadConfig loads config and preset (if provided) into the provided config.
// It first loads the preset and then overrides it with values from the config file.
func loadConfig(cfg *config.Config, preset, path string) error {
	v := viper.New()
	// read in config from file
	if err := config.LoadConfig(path, v); err != nil {
		return err
	}

	// override default config with preset if provided
	if len(preset) == 0 && v.IsSet("preset") {
		preset = v.GetString("preset")
	}
	if len(preset) > 0 {
		p, err := presets.Get(preset)
		if err != nil {
			return err
		}
		*cfg = p
		cfg.Preset = preset
	}

	// Unmarshall config file into config struct
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)

	opts := []viper.DecoderConfigOption{
		viper.DecodeHook(hook),
		WithZeroFields(),
		WithIgnoreUntagged(),
		WithErrorUnused(),
	}

	// load config if it was loaded to the viper
	if err := v.Unmarshal(cfg, opts...); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func WithZeroFields() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ZeroFields = true
	}
}

func WithIgnoreUntagged() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.IgnoreUntaggedFields = true
	}
}

func WithErrorUnused() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
	}
}
