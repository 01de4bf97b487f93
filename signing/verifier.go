package signing

import (
	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"

	"github.com/shardnet/go-shard/common/types"
)

type edVerifierOption struct {
	prefix []byte
}

// VerifierOptionFunc to modify verifier.
type VerifierOptionFunc func(*edVerifierOption) error

// WithVerifierPrefix sets the prefix used by EdVerifier. This is the rollup namespace.
func WithVerifierPrefix(prefix []byte) VerifierOptionFunc {
	return func(opts *edVerifierOption) error {
		opts.prefix = prefix
		return nil
	}
}

// EdVerifier verifies ed25519 signatures produced by EdSigner.
type EdVerifier struct {
	prefix []byte
}

// NewEdVerifier creates a verifier.
func NewEdVerifier(opts ...VerifierOptionFunc) (*EdVerifier, error) {
	cfg := &edVerifierOption{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &EdVerifier{prefix: cfg.prefix}, nil
}

// Verify verifies that a signature matches public key and message.
func (es *EdVerifier) Verify(d Domain, pk types.PublicKey, m []byte, sig types.EdSignature) bool {
	msg := make([]byte, 0, len(es.prefix)+1+len(m))
	msg = append(msg, es.prefix...)
	msg = append(msg, byte(d))
	msg = append(msg, m...)
	return ed25519.Verify(pk[:], msg, sig[:])
}

// VerifyEnvelope verifies the envelope signature with the given key.
func (es *EdVerifier) VerifyEnvelope(pk types.PublicKey, env *types.Envelope) bool {
	if env.Signature == nil {
		return false
	}
	digest := env.SigningDigest()
	return es.Verify(TX, pk, digest[:], *env.Signature)
}
