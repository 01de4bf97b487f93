// Package registry maps account ids to their public keys and nonces.
//
// Entries are created lazily by the state transition function and never deleted.
// Every change is stored as a new version at the height that produced it.
package registry

import (
	"errors"
	"fmt"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/sql/accounts"
)

// ErrKeyConflict is returned when an account is already bound to a different key.
var ErrKeyConflict = errors.New("registry: key conflict")

// Registry reads and writes account entries through the executor.
// Within a height the executor is the height's transaction.
type Registry struct {
	db sql.Executor
}

// New creates a registry over db.
func New(db sql.Executor) *Registry {
	return &Registry{db: db}
}

func (r *Registry) latest(id types.AccountID) (accounts.Account, bool, error) {
	account, err := accounts.Latest(r.db, id)
	switch {
	case errors.Is(err, sql.ErrNotFound):
		return accounts.Account{ID: id}, false, nil
	case err != nil:
		return accounts.Account{}, false, err
	}
	return account, true, nil
}

// Lookup returns the key bound to the account.
func (r *Registry) Lookup(id types.AccountID) (types.PublicKey, bool, error) {
	account, _, err := r.latest(id)
	if err != nil || account.PublicKey == nil {
		return types.PublicKey{}, false, err
	}
	return *account.PublicKey, true, nil
}

// LookupAt returns the key bound to the account at the height.
func (r *Registry) LookupAt(id types.AccountID, height types.Height) (types.PublicKey, bool, error) {
	account, err := accounts.Get(r.db, id, height)
	switch {
	case errors.Is(err, sql.ErrNotFound):
		return types.PublicKey{}, false, nil
	case err != nil:
		return types.PublicKey{}, false, err
	case account.PublicKey == nil:
		return types.PublicKey{}, false, nil
	}
	return *account.PublicKey, true, nil
}

// Register binds key to the account. Registering the same key again is a no-op.
func (r *Registry) Register(id types.AccountID, key types.PublicKey, height types.Height) error {
	account, _, err := r.latest(id)
	if err != nil {
		return err
	}
	if account.PublicKey != nil {
		if *account.PublicKey != key {
			return fmt.Errorf("%w: account %s is bound to %s", ErrKeyConflict, id, account.PublicKey.ShortString())
		}
		return nil
	}
	account.PublicKey = &key
	account.Height = height
	return accounts.Update(r.db, account)
}

// CurrentNonce returns the nonce expected in the next transaction of the account.
// It is 0 for unseen accounts.
func (r *Registry) CurrentNonce(id types.AccountID) (uint64, error) {
	account, _, err := r.latest(id)
	if err != nil {
		return 0, err
	}
	return account.Nonce, nil
}

// NonceAt returns the nonce of the account at the height.
func (r *Registry) NonceAt(id types.AccountID, height types.Height) (uint64, error) {
	account, err := accounts.Get(r.db, id, height)
	switch {
	case errors.Is(err, sql.ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, err
	}
	return account.Nonce, nil
}

// AdvanceNonce increments the nonce of the account by one.
func (r *Registry) AdvanceNonce(id types.AccountID, height types.Height) error {
	account, _, err := r.latest(id)
	if err != nil {
		return err
	}
	account.Nonce++
	account.Height = height
	return accounts.Update(r.db, account)
}
