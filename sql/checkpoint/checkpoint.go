// Package checkpoint persists the last processed DA height and the per-height state roots.
package checkpoint

import (
	"fmt"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
)

// Info is the summary of an applied height.
type Info struct {
	Height  types.Height
	Root    types.Hash32
	Applied int
	Dropped int
}

// Get returns the last processed height.
func Get(db sql.Executor) (types.Height, error) {
	var height types.Height
	rows, err := db.Exec("select height from checkpoint where id = 1;", nil,
		func(stmt *sql.Statement) bool {
			height = types.Height(stmt.ColumnInt64(0))
			return false
		})
	if err != nil {
		return 0, fmt.Errorf("get checkpoint: %w", err)
	}
	if rows == 0 {
		return 0, fmt.Errorf("%w: checkpoint", sql.ErrNotFound)
	}
	return height, nil
}

// Set updates the last processed height.
func Set(db sql.Executor, height types.Height) error {
	if _, err := db.Exec(`insert into checkpoint (id, height) values (1, ?1)
		on conflict (id) do update set height = ?1;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(height))
		}, nil); err != nil {
		return fmt.Errorf("set checkpoint %v: %w", height, err)
	}
	return nil
}

// AddHeight stores the summary of an applied height.
func AddHeight(db sql.Executor, info Info) error {
	if _, err := db.Exec(`insert into heights (height, root, applied, dropped) values (?1, ?2, ?3, ?4)
		on conflict (height) do update set root = ?2, applied = ?3, dropped = ?4;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(info.Height))
			stmt.BindBytes(2, info.Root[:])
			stmt.BindInt64(3, int64(info.Applied))
			stmt.BindInt64(4, int64(info.Dropped))
		}, nil); err != nil {
		return fmt.Errorf("add height %v: %w", info.Height, err)
	}
	return nil
}

// GetHeight returns the summary of the applied height.
func GetHeight(db sql.Executor, height types.Height) (Info, error) {
	info := Info{Height: height}
	rows, err := db.Exec("select root, applied, dropped from heights where height = ?1;",
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(height))
		}, func(stmt *sql.Statement) bool {
			stmt.ColumnBytes(0, info.Root[:])
			info.Applied = stmt.ColumnInt(1)
			info.Dropped = stmt.ColumnInt(2)
			return false
		})
	if err != nil {
		return Info{}, fmt.Errorf("get height %v: %w", height, err)
	}
	if rows == 0 {
		return Info{}, fmt.Errorf("%w: height %v", sql.ErrNotFound, height)
	}
	return info, nil
}

// Roots returns state roots for heights in [from, to] in ascending order.
func Roots(db sql.Executor, from, to types.Height) ([]Info, error) {
	var rst []Info
	if _, err := db.Exec(`select height, root, applied, dropped from heights
		where height between ?1 and ?2 order by height asc;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(from))
			stmt.BindInt64(2, int64(to))
		}, func(stmt *sql.Statement) bool {
			var info Info
			info.Height = types.Height(stmt.ColumnInt64(0))
			stmt.ColumnBytes(1, info.Root[:])
			info.Applied = stmt.ColumnInt(2)
			info.Dropped = stmt.ColumnInt(3)
			rst = append(rst, info)
			return true
		}); err != nil {
		return nil, fmt.Errorf("roots [%v, %v]: %w", from, to, err)
	}
	return rst, nil
}
