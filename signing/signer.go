package signing

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"

	"github.com/shardnet/go-shard/common/types"
)

// Domain separates signatures produced for different purposes by the same key.
type Domain byte

const (
	// TX domain is used to sign transaction envelopes.
	TX Domain = 0
)

// String returns the string representation of a domain.
func (d Domain) String() string {
	switch d {
	case TX:
		return "TX"
	default:
		return "UNKNOWN"
	}
}

// PrivateKey is an alias to ed25519.PrivateKey.
type PrivateKey = ed25519.PrivateKey

// PrivateKeySize size of the private key in bytes.
const PrivateKeySize = ed25519.PrivateKeySize

type edSignerOption struct {
	priv   PrivateKey
	name   string
	prefix []byte
}

// EdSignerOptionFunc modifies EdSigner.
type EdSignerOptionFunc func(*edSignerOption) error

// WithPrefix sets the prefix used by EdSigner. This is the rollup namespace.
func WithPrefix(prefix []byte) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		opt.prefix = prefix
		return nil
	}
}

// WithName sets a human readable name of the signer.
func WithName(name string) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		opt.name = name
		return nil
	}
}

// WithPrivateKey sets the private key used by EdSigner.
func WithPrivateKey(priv PrivateKey) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		if opt.priv != nil {
			return errors.New("invalid option WithPrivateKey: private key already set")
		}
		if len(priv) != ed25519.PrivateKeySize {
			return fmt.Errorf("could not create EdSigner: invalid key length %d", len(priv))
		}
		keyPair := ed25519.NewKeyFromSeed(priv[:32])
		if !bytes.Equal(keyPair[32:], priv.Public().(ed25519.PublicKey)) {
			return errors.New("private and public do not match")
		}
		opt.priv = priv
		return nil
	}
}

// WithHexPrivateKey sets the private key from its hex encoding.
func WithHexPrivateKey(data []byte) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		data = bytes.TrimSpace(data)
		if n := hex.DecodedLen(len(data)); n != PrivateKeySize {
			return fmt.Errorf("invalid key size %d/%d", n, PrivateKeySize)
		}
		dst := make([]byte, PrivateKeySize)
		if _, err := hex.Decode(dst, data); err != nil {
			return fmt.Errorf("decoding private key: %w", err)
		}
		return WithPrivateKey(dst)(opt)
	}
}

// WithKeyFromRand sets the private key used by EdSigner using predictable randomness source.
func WithKeyFromRand(rand io.Reader) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		_, priv, err := ed25519.GenerateKey(rand)
		if err != nil {
			return fmt.Errorf("could not generate key pair: %w", err)
		}
		opt.priv = priv
		return nil
	}
}

// EdSigner represents an ED25519 signer.
type EdSigner struct {
	priv   PrivateKey
	name   string
	prefix []byte
}

// NewEdSigner returns an ed signer. Without a key option a new key is generated.
func NewEdSigner(opts ...EdSignerOptionFunc) (*EdSigner, error) {
	cfg := &edSignerOption{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.priv == nil {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, fmt.Errorf("could not generate key pair: %w", err)
		}
		cfg.priv = priv
	}
	return &EdSigner{
		priv:   cfg.priv,
		name:   cfg.name,
		prefix: cfg.prefix,
	}, nil
}

// Sign signs the provided message.
func (es *EdSigner) Sign(d Domain, m []byte) types.EdSignature {
	msg := make([]byte, 0, len(es.prefix)+1+len(m))
	msg = append(msg, es.prefix...)
	msg = append(msg, byte(d))
	msg = append(msg, m...)
	return *(*[types.EdSignatureSize]byte)(ed25519.Sign(es.priv, msg))
}

// SignEnvelope fills the sender, public key and signature of the envelope.
// The public key is always attached so a fresh account can be registered.
func (es *EdSigner) SignEnvelope(env *types.Envelope) {
	pk := es.PublicKey()
	env.Sender = es.AccountID()
	env.PublicKey = &pk
	digest := env.SigningDigest()
	sig := es.Sign(TX, digest[:])
	env.Signature = &sig
}

// PublicKey returns the public key of the signer.
func (es *EdSigner) PublicKey() types.PublicKey {
	return types.BytesToPublicKey(es.priv.Public().(ed25519.PublicKey))
}

// AccountID returns the account id derived from the public key.
func (es *EdSigner) AccountID() types.AccountID {
	return types.DeriveAccountID(es.PublicKey())
}

// PrivateKey returns private key.
func (es *EdSigner) PrivateKey() PrivateKey {
	return es.priv
}

// Name returns the name of the signer. This is the name it is stored under in the keystore.
func (es *EdSigner) Name() string {
	return es.name
}

// Prefix returns the signing prefix.
func (es *EdSigner) Prefix() []byte {
	return es.prefix
}

// Matches implements the gomock.Matcher interface for testing.
func (es *EdSigner) Matches(x any) bool {
	if other, ok := x.(*EdSigner); ok {
		return bytes.Equal(es.priv, other.priv)
	}
	return false
}

func (es *EdSigner) String() string {
	return es.AccountID().ShortString()
}
