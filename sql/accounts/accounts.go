package accounts

import (
	"fmt"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
)

// Account is a registry entry at the height it was last updated.
// PublicKey is nil until a transaction binds a key to the account.
type Account struct {
	ID        types.AccountID
	PublicKey *types.PublicKey
	Nonce     uint64
	Height    types.Height
}

func decode(stmt *sql.Statement) Account {
	var account Account
	stmt.ColumnBytes(0, account.ID[:])
	if !sql.IsNull(stmt, 1) {
		account.PublicKey = &types.PublicKey{}
		stmt.ColumnBytes(1, account.PublicKey[:])
	}
	account.Nonce = uint64(stmt.ColumnInt64(2))
	account.Height = types.Height(stmt.ColumnInt64(3))
	return account
}

func load(db sql.Executor, query string, enc sql.Encoder) (Account, int, error) {
	var account Account
	rows, err := db.Exec(query, enc, func(stmt *sql.Statement) bool {
		account = decode(stmt)
		return false
	})
	return account, rows, err
}

// Get returns the account as it was at the height.
func Get(db sql.Executor, id types.AccountID, height types.Height) (Account, error) {
	account, rows, err := load(db,
		`select id, public_key, nonce, height from accounts
		where id = ?1 and height <= ?2 order by height desc limit 1;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, id[:])
			stmt.BindInt64(2, int64(height))
		})
	if err != nil {
		return Account{}, fmt.Errorf("load %s at %v: %w", id, height, err)
	}
	if rows == 0 {
		return Account{}, fmt.Errorf("%w: account %s at %v", sql.ErrNotFound, id, height)
	}
	return account, nil
}

// Latest returns the most recent state of the account.
func Latest(db sql.Executor, id types.AccountID) (Account, error) {
	account, rows, err := load(db,
		`select id, public_key, nonce, height from accounts
		where id = ?1 order by height desc limit 1;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, id[:])
		})
	if err != nil {
		return Account{}, fmt.Errorf("load latest %s: %w", id, err)
	}
	if rows == 0 {
		return Account{}, fmt.Errorf("%w: account %s", sql.ErrNotFound, id)
	}
	return account, nil
}

// Update writes a new version of the account at account.Height.
func Update(db sql.Executor, account Account) error {
	if _, err := db.Exec(`insert into accounts (id, height, public_key, nonce) values (?1, ?2, ?3, ?4)
		on conflict (id, height) do update set public_key = ?3, nonce = ?4;`,
		func(stmt *sql.Statement) {
			stmt.BindBytes(1, account.ID[:])
			stmt.BindInt64(2, int64(account.Height))
			if account.PublicKey != nil {
				stmt.BindBytes(3, account.PublicKey[:])
			} else {
				stmt.BindNull(3)
			}
			stmt.BindInt64(4, int64(account.Nonce))
		}, nil); err != nil {
		return fmt.Errorf("update %s: %w", account.ID, err)
	}
	return nil
}

// Snapshot returns every account as it was at the height, ordered by id.
func Snapshot(db sql.Executor, height types.Height) ([]Account, error) {
	var rst []Account
	if _, err := db.Exec(`select a.id, a.public_key, a.nonce, a.height from accounts a
		where a.height = (select max(height) from accounts where id = a.id and height <= ?1)
		order by a.id asc;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(height))
		}, func(stmt *sql.Statement) bool {
			rst = append(rst, decode(stmt))
			return true
		}); err != nil {
		return nil, fmt.Errorf("accounts snapshot at %v: %w", height, err)
	}
	return rst, nil
}
