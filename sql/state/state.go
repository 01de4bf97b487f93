// Package state stores application key/value pairs versioned by DA height.
//
// Every write adds a row stamped with the height that produced it. A read at height H
// returns the newest row with height <= H, and a tombstone row hides older values.
package state

import (
	"fmt"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
)

// KV is a single live key/value pair.
type KV struct {
	Key   []byte
	Value []byte
}

// Get returns the value of key visible at height.
func Get(db sql.Executor, key []byte, height types.Height) ([]byte, error) {
	var (
		value   []byte
		deleted bool
	)
	rows, err := db.Exec(`select value, deleted from state
		where key = ?1 and height <= ?2 order by height desc limit 1;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, key)
			stmt.BindInt64(2, int64(height))
		}, func(stmt *sql.Statement) bool {
			value = sql.ColumnBytes(stmt, 0)
			deleted = stmt.ColumnInt(1) != 0
			return false
		})
	if err != nil {
		return nil, fmt.Errorf("get %x at %v: %w", key, height, err)
	}
	if rows == 0 || deleted {
		return nil, fmt.Errorf("%w: key %x at %v", sql.ErrNotFound, key, height)
	}
	return value, nil
}

// Put writes value for key at height.
func Put(db sql.Executor, key, value []byte, height types.Height) error {
	if _, err := db.Exec(`insert into state (key, height, value, deleted) values (?1, ?2, ?3, 0)
		on conflict (key, height) do update set value = ?3, deleted = 0;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, key)
			stmt.BindInt64(2, int64(height))
			stmt.BindBytes(3, value)
		}, nil); err != nil {
		return fmt.Errorf("put %x at %v: %w", key, height, err)
	}
	return nil
}

// Delete writes a tombstone for key at height.
func Delete(db sql.Executor, key []byte, height types.Height) error {
	if _, err := db.Exec(`insert into state (key, height, value, deleted) values (?1, ?2, null, 1)
		on conflict (key, height) do update set value = null, deleted = 1;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, key)
			stmt.BindInt64(2, int64(height))
		}, nil); err != nil {
		return fmt.Errorf("delete %x at %v: %w", key, height, err)
	}
	return nil
}

// IteratePrefix calls fn for every live key with the prefix visible at height, in key order.
// Iteration stops when fn returns false. fn must not use db.
func IteratePrefix(db sql.Executor, prefix []byte, height types.Height, fn func(key, value []byte) bool) error {
	_, err := db.Exec(`select s.key, s.value from state s
		where (?1 = 0 or substr(s.key, 1, ?1) = ?2) and s.deleted = 0
		and s.height = (select max(height) from state where key = s.key and height <= ?3)
		order by s.key asc;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(len(prefix)))
			stmt.BindBytes(2, prefix)
			stmt.BindInt64(3, int64(height))
		}, func(stmt *sql.Statement) bool {
			return fn(sql.ColumnBytes(stmt, 0), sql.ColumnBytes(stmt, 1))
		})
	if err != nil {
		return fmt.Errorf("iterate %x at %v: %w", prefix, height, err)
	}
	return nil
}

// All returns every live key/value pair at height in key order.
func All(db sql.Executor, height types.Height) ([]KV, error) {
	var rst []KV
	if err := IteratePrefix(db, nil, height, func(key, value []byte) bool {
		rst = append(rst, KV{Key: key, Value: value})
		return true
	}); err != nil {
		return nil, err
	}
	return rst, nil
}

// Snapshot is a read-only view of the state at a fixed height.
// Rows at or below the height are never rewritten, so a snapshot stays valid
// while newer heights are applied.
type Snapshot struct {
	db     sql.Executor
	height types.Height
}

// NewSnapshot creates a view of db at height.
func NewSnapshot(db sql.Executor, height types.Height) Snapshot {
	return Snapshot{db: db, height: height}
}

// Height of the snapshot.
func (s Snapshot) Height() types.Height { return s.height }

// Executor returns the database the snapshot reads from.
func (s Snapshot) Executor() sql.Executor { return s.db }

// Get returns the value for key, or sql.ErrNotFound.
func (s Snapshot) Get(key []byte) ([]byte, error) {
	return Get(s.db, key, s.height)
}

// IteratePrefix visits live keys with the prefix in key order.
func (s Snapshot) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	return IteratePrefix(s.db, prefix, s.height, fn)
}
