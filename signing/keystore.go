package signing

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/shardnet/go-shard/common/types"
)

const keyFileExt = ".key"

var (
	// ErrKeyExists is returned when a key with the same name is already stored.
	ErrKeyExists = errors.New("signing: key already exists")
	// ErrKeyNotFound is returned when there is no key with the requested name.
	ErrKeyNotFound = errors.New("signing: key not found")
	// ErrInvalidKeyName is returned for names that can't be used as file names.
	ErrInvalidKeyName = errors.New("signing: invalid key name")

	keyNameRx = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// KeyInfo describes a stored key.
type KeyInfo struct {
	Name      string          `json:"name" yaml:"name"`
	PublicKey types.PublicKey `json:"public_key" yaml:"public_key"`
	AccountID types.AccountID `json:"account" yaml:"account"`
}

// Keystore keeps named ed25519 keys as hex encoded files in a directory.
type Keystore struct {
	fs  afero.Fs
	dir string
}

// NewKeystore creates a keystore in dir.
func NewKeystore(fs afero.Fs, dir string) *Keystore {
	return &Keystore{fs: fs, dir: dir}
}

func (k *Keystore) path(name string) string {
	return filepath.Join(k.dir, name+keyFileExt)
}

func validateName(name string) error {
	if !keyNameRx.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidKeyName, name)
	}
	return nil
}

// Create generates a new key and stores it under name. A name collision is an error.
func (k *Keystore) Create(name string, opts ...EdSignerOptionFunc) (*EdSigner, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := k.fs.MkdirAll(k.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create keystore dir %s: %w", k.dir, err)
	}
	path := k.path(name)
	exists, err := afero.Exists(k.fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat key %s: %w", name, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, name)
	}
	signer, err := NewEdSigner(append(opts, WithName(name))...)
	if err != nil {
		return nil, err
	}
	if err := k.write(path, signer.PrivateKey()); err != nil {
		return nil, err
	}
	return signer, nil
}

func (k *Keystore) write(path string, priv PrivateKey) error {
	tmp, err := afero.TempFile(k.fs, k.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp key file: %w", err)
	}
	defer k.fs.Remove(tmp.Name())
	dst := make([]byte, hex.EncodedLen(len(priv)))
	hex.Encode(dst, priv)
	if _, err := tmp.Write(dst); err != nil {
		tmp.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close key file: %w", err)
	}
	if err := k.fs.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod key file: %w", err)
	}
	if err := k.fs.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename key file: %w", err)
	}
	return nil
}

// Load reads the key stored under name.
func (k *Keystore) Load(name string, opts ...EdSignerOptionFunc) (*EdSigner, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(k.fs, k.path(name))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	case err != nil:
		return nil, fmt.Errorf("read key %s: %w", name, err)
	}
	signer, err := NewEdSigner(append(opts, WithHexPrivateKey(data), WithName(name))...)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", name, err)
	}
	return signer, nil
}

// List returns all stored keys ordered by name.
func (k *Keystore) List() ([]KeyInfo, error) {
	entries, err := afero.ReadDir(k.fs, k.dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read keystore dir %s: %w", k.dir, err)
	}
	var keys []KeyInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), keyFileExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), keyFileExt)
		if validateName(name) != nil {
			continue
		}
		signer, err := k.Load(name)
		if err != nil {
			return nil, err
		}
		keys = append(keys, KeyInfo{
			Name:      name,
			PublicKey: signer.PublicKey(),
			AccountID: signer.AccountID(),
		})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys, nil
}
