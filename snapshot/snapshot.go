// Package snapshot exports the applied state at a height and recovers a database from it.
package snapshot

import (
	"context"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/sql/accounts"
	"github.com/shardnet/go-shard/sql/checkpoint"
	"github.com/shardnet/go-shard/sql/state"
)

const (
	SchemaVersion = "https://shardnet.dev/snapshot.schema.json.1.0"

	snapshotDir = "snapshot"
	schemaFile  = "schema.json"
	dirPerm     = 0o700
)

//go:embed schema.json
var Schema string

var (
	// ErrNotProcessed is returned when the requested height is above the last processed one.
	ErrNotProcessed = errors.New("snapshot: height is not processed")
	// ErrNotEmpty is returned when recovering into a database that already has a checkpoint.
	ErrNotEmpty = errors.New("snapshot: database is not empty")
	// ErrMismatch is returned when the snapshot was taken for another rollup.
	ErrMismatch = errors.New("snapshot: rollup mismatch")
)

// Snapshot is the file format.
type Snapshot struct {
	Version string `json:"version"`
	Data    Data   `json:"data"`
}

// Data of the snapshot.
type Data struct {
	ID        string          `json:"id"`
	Height    types.Height    `json:"height"`
	Root      types.Hash32    `json:"root"`
	Namespace types.Namespace `json:"namespace"`
	App       string          `json:"app"`
	Accounts  []Account       `json:"accounts"`
	State     []KV            `json:"state"`
}

// Account is a registry entry.
type Account struct {
	Account   types.AccountID  `json:"account"`
	PublicKey *types.PublicKey `json:"public_key"`
	Nonce     uint64           `json:"nonce"`
}

// KV is an application state entry, hex encoded.
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Meta identifies the rollup the snapshot belongs to.
type Meta struct {
	Namespace types.Namespace
	App       string
}

func collect(db sql.Executor, meta Meta, height types.Height) (*Snapshot, error) {
	last, err := checkpoint.Get(db)
	if err != nil {
		return nil, err
	}
	if height > last {
		return nil, fmt.Errorf("%w: %d > %d", ErrNotProcessed, height, last)
	}
	info, err := checkpoint.GetHeight(db, height)
	if err != nil {
		return nil, fmt.Errorf("root of %d: %w", height, err)
	}
	snapshot := &Snapshot{
		Version: SchemaVersion,
		Data: Data{
			ID:        fmt.Sprintf("snapshot-%d", height),
			Height:    height,
			Root:      info.Root,
			Namespace: meta.Namespace,
			App:       meta.App,
			Accounts:  []Account{},
			State:     []KV{},
		},
	}
	all, err := accounts.Snapshot(db, height)
	if err != nil {
		return nil, err
	}
	for _, account := range all {
		snapshot.Data.Accounts = append(snapshot.Data.Accounts, Account{
			Account:   account.ID,
			PublicKey: account.PublicKey,
			Nonce:     account.Nonce,
		})
	}
	kvs, err := state.All(db, height)
	if err != nil {
		return nil, err
	}
	for _, kv := range kvs {
		snapshot.Data.State = append(snapshot.Data.State, KV{
			Key:   hex.EncodeToString(kv.Key),
			Value: hex.EncodeToString(kv.Value),
		})
	}
	return snapshot, nil
}

// Filename is the path of the snapshot at height in dataDir.
func Filename(dataDir string, height types.Height) string {
	return filepath.Join(dataDir, snapshotDir, fmt.Sprintf("snapshot-%d.json", height))
}

// Generate writes the snapshot at height into dataDir and returns its path.
func Generate(
	ctx context.Context,
	fs afero.Fs,
	db *sql.Database,
	dataDir string,
	meta Meta,
	height types.Height,
) (string, error) {
	var snapshot *Snapshot
	if err := db.WithReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		snapshot, err = collect(tx, meta, height)
		return err
	}); err != nil {
		return "", err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot json: %w", err)
	}
	if err := ValidateSchema(data); err != nil {
		return "", err
	}
	path := Filename(dataDir, height)
	rf, err := newFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("new snapshot file: %w", err)
	}
	if _, err := rf.writer.Write(data); err != nil {
		rf.file.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := rf.save(fs); err != nil {
		return "", err
	}
	return path, nil
}

// Read validates and decodes the snapshot file.
func Read(fs afero.Fs, file string) (*Snapshot, error) {
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file %v: %w", file, err)
	}
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot from %v: %w", file, err)
	}
	if snapshot.Version != SchemaVersion {
		return nil, fmt.Errorf("expected version %v, got %v", SchemaVersion, snapshot.Version)
	}
	return &snapshot, nil
}

// Recover loads the snapshot file into an empty database. The database resumes
// ingestion from the height after the snapshot.
func Recover(ctx context.Context, fs afero.Fs, db *sql.Database, file string, meta Meta) (types.Height, error) {
	snapshot, err := Read(fs, file)
	if err != nil {
		return 0, err
	}
	data := snapshot.Data
	if data.Namespace != meta.Namespace || data.App != meta.App {
		return 0, fmt.Errorf("%w: snapshot of %s/%s, node runs %s/%s",
			ErrMismatch, data.App, data.Namespace, meta.App, meta.Namespace)
	}
	if err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := checkpoint.Get(tx)
		switch {
		case err == nil:
			return ErrNotEmpty
		case !errors.Is(err, sql.ErrNotFound):
			return err
		}
		for _, account := range data.Accounts {
			if err := accounts.Update(tx, accounts.Account{
				ID:        account.Account,
				PublicKey: account.PublicKey,
				Nonce:     account.Nonce,
				Height:    data.Height,
			}); err != nil {
				return err
			}
		}
		for i, kv := range data.State {
			key, err := hex.DecodeString(kv.Key)
			if err != nil {
				return fmt.Errorf("state entry %d key: %w", i, err)
			}
			value, err := hex.DecodeString(kv.Value)
			if err != nil {
				return fmt.Errorf("state entry %d value: %w", i, err)
			}
			if err := state.Put(tx, key, value, data.Height); err != nil {
				return err
			}
		}
		if err := checkpoint.AddHeight(tx, checkpoint.Info{Height: data.Height, Root: data.Root}); err != nil {
			return err
		}
		return checkpoint.Set(tx, data.Height)
	}); err != nil {
		return 0, fmt.Errorf("recover from %s: %w", file, err)
	}
	return data.Height, nil
}
