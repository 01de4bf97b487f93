// Package dropped keeps the audit log of transactions excluded from the canonical history.
package dropped

import (
	"fmt"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
)

// Record describes a dropped transaction.
type Record struct {
	Height  types.Height        `json:"height"`
	Index   int                 `json:"index"`
	TxID    types.TransactionID `json:"tx_id"`
	Sender  *types.AccountID    `json:"sender,omitempty"`
	Reason  string              `json:"reason"`
	Message string              `json:"message"`
}

// Add stores the record. A second record for the same height and index is sql.ErrObjectExists.
func Add(db sql.Executor, rec Record) error {
	if _, err := db.Exec(`insert into dropped (height, idx, tx_id, sender, reason, message)
		values (?1, ?2, ?3, ?4, ?5, ?6);`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(rec.Height))
			stmt.BindInt64(2, int64(rec.Index))
			stmt.BindBytes(3, rec.TxID[:])
			if rec.Sender != nil {
				stmt.BindBytes(4, rec.Sender[:])
			} else {
				stmt.BindNull(4)
			}
			stmt.BindText(5, rec.Reason)
			stmt.BindText(6, rec.Message)
		}, nil); err != nil {
		return fmt.Errorf("add dropped %v/%d: %w", rec.Height, rec.Index, err)
	}
	return nil
}

// List returns records of the height ordered by index.
func List(db sql.Executor, height types.Height) ([]Record, error) {
	var rst []Record
	if _, err := db.Exec(`select idx, tx_id, sender, reason, message from dropped
		where height = ?1 order by idx asc;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(height))
		}, func(stmt *sql.Statement) bool {
			rec := Record{Height: height, Index: stmt.ColumnInt(0)}
			stmt.ColumnBytes(1, rec.TxID[:])
			if !sql.IsNull(stmt, 2) {
				rec.Sender = &types.AccountID{}
				stmt.ColumnBytes(2, rec.Sender[:])
			}
			rec.Reason = stmt.ColumnText(3)
			rec.Message = stmt.ColumnText(4)
			rst = append(rst, rec)
			return true
		}); err != nil {
		return nil, fmt.Errorf("list dropped at %v: %w", height, err)
	}
	return rst, nil
}

// CountByReason returns the number of dropped transactions per reason up to height.
func CountByReason(db sql.Executor, height types.Height) (map[string]int, error) {
	rst := map[string]int{}
	if _, err := db.Exec(`select reason, count(*) from dropped where height <= ?1 group by reason;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(height))
		}, func(stmt *sql.Statement) bool {
			rst[stmt.ColumnText(0)] = stmt.ColumnInt(1)
			return true
		}); err != nil {
		return nil, fmt.Errorf("count dropped: %w", err)
	}
	return rst, nil
}
