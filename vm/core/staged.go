package core

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/sql"
	"github.com/shardnet/go-shard/sql/state"
)

// DBReader reads the committed state at a height. Database errors are reported as ErrInternal.
type DBReader struct {
	Snapshot state.Snapshot
}

// NewDBReader creates a reader of db at height.
func NewDBReader(db sql.Executor, height types.Height) DBReader {
	return DBReader{Snapshot: state.NewSnapshot(db, height)}
}

// Get implements Reader.
func (r DBReader) Get(key []byte) ([]byte, bool, error) {
	value, err := r.Snapshot.Get(key)
	switch {
	case errors.Is(err, sql.ErrNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return value, true, nil
}

// IteratePrefix implements Reader.
func (r DBReader) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	if err := r.Snapshot.IteratePrefix(prefix, fn); err != nil {
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return nil
}

// Change is a single staged write. Value is nil for deletions.
type Change struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

// StagedState buffers writes on top of a parent reader.
// Reads observe the buffered writes. Nothing reaches the parent until Commit.
type StagedState struct {
	parent  Reader
	changed map[string]*Change
}

// NewStagedState creates an empty overlay over parent.
func NewStagedState(parent Reader) *StagedState {
	return &StagedState{parent: parent, changed: map[string]*Change{}}
}

// Get implements Reader.
func (ss *StagedState) Get(key []byte) ([]byte, bool, error) {
	if change, exist := ss.changed[string(key)]; exist {
		if change.Deleted {
			return nil, false, nil
		}
		return bytes.Clone(change.Value), true, nil
	}
	return ss.parent.Get(key)
}

// Set implements Writer.
func (ss *StagedState) Set(key, value []byte) {
	ss.changed[string(key)] = &Change{
		Key:   bytes.Clone(key),
		Value: bytes.Clone(value),
	}
}

// Delete implements Writer.
func (ss *StagedState) Delete(key []byte) {
	ss.changed[string(key)] = &Change{Key: bytes.Clone(key), Deleted: true}
}

// IteratePrefix implements Reader. Buffered writes are merged with the parent in key order.
func (ss *StagedState) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	merged := map[string][]byte{}
	if err := ss.parent.IteratePrefix(prefix, func(key, value []byte) bool {
		merged[string(key)] = value
		return true
	}); err != nil {
		return err
	}
	for key, change := range ss.changed {
		if !bytes.HasPrefix(change.Key, prefix) {
			continue
		}
		if change.Deleted {
			delete(merged, key)
		} else {
			merged[key] = change.Value
		}
	}
	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !fn([]byte(key), bytes.Clone(merged[key])) {
			return nil
		}
	}
	return nil
}

// Changes returns buffered writes ordered by key.
func (ss *StagedState) Changes() []Change {
	rst := make([]Change, 0, len(ss.changed))
	for _, change := range ss.changed {
		rst = append(rst, *change)
	}
	sort.Slice(rst, func(i, j int) bool {
		return bytes.Compare(rst[i].Key, rst[j].Key) < 0
	})
	return rst
}

// Commit moves buffered writes into the parent. The parent must be a Writer.
func (ss *StagedState) Commit() error {
	parent, ok := ss.parent.(Writer)
	if !ok {
		return fmt.Errorf("%w: parent %T is read only", ErrInternal, ss.parent)
	}
	for _, change := range ss.Changes() {
		if change.Deleted {
			parent.Delete(change.Key)
		} else {
			parent.Set(change.Key, change.Value)
		}
	}
	ss.Discard()
	return nil
}

// Discard drops buffered writes.
func (ss *StagedState) Discard() {
	clear(ss.changed)
}

// Flush writes buffered changes to the database at height.
func (ss *StagedState) Flush(db sql.Executor, height types.Height) error {
	for _, change := range ss.Changes() {
		var err error
		if change.Deleted {
			err = state.Delete(db, change.Key, height)
		} else {
			err = state.Put(db, change.Key, change.Value, height)
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInternal, err)
		}
	}
	return nil
}
