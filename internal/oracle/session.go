package oracle

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"blockbreak/internal/modes"
)

type Mode int

const (
	ECB Mode = iota
	CBC
)

func (m Mode) String() string {
	switch m {
	case ECB:
		return "ECB"
	case CBC:
		return "CBC"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Session encrypts prefix || input || suffix under a key, iv and prefix
// fixed at construction. A Session is immutable and safe for concurrent use.
type Session struct {
	mode   Mode
	block  cipher.Block
	iv     []byte
	prefix []byte
	suffix []byte
}

type sessionConfig struct {
	mode         Mode
	randomMode   bool
	prefix       []byte
	randomPrefix bool
	rand         io.Reader
	newCipher    func(key []byte) (cipher.Block, error)
	keySize      int
}

type Option func(*sessionConfig)

// WithCBC switches the session from ECB to CBC under a random secret iv.
func WithCBC() Option {
	return func(c *sessionConfig) { c.mode = CBC }
}

// WithRandomMode picks ECB or CBC with equal probability.
func WithRandomMode() Option {
	return func(c *sessionConfig) { c.randomMode = true }
}

// WithPrefix prepends a fixed hidden prefix to every query.
func WithPrefix(prefix []byte) Option {
	return func(c *sessionConfig) {
		c.prefix = append([]byte(nil), prefix...)
		c.randomPrefix = false
	}
}

// WithRandomPrefix prepends 0 to 255 random bytes, chosen once per session.
func WithRandomPrefix() Option {
	return func(c *sessionConfig) {
		c.prefix = nil
		c.randomPrefix = true
	}
}

// WithRand replaces crypto/rand as the source of session secrets.
func WithRand(r io.Reader) Option {
	return func(c *sessionConfig) { c.rand = r }
}

// WithBlockCipher replaces AES-128 as the block primitive.
func WithBlockCipher(newCipher func(key []byte) (cipher.Block, error), keySize int) Option {
	return func(c *sessionConfig) {
		c.newCipher = newCipher
		c.keySize = keySize
	}
}

// NewSession creates a session hiding suffix behind an ECB oracle, unless
// options say otherwise.
func NewSession(suffix []byte, opts ...Option) (*Session, error) {
	cfg := sessionConfig{
		mode:      ECB,
		rand:      rand.Reader,
		newCipher: aes.NewCipher,
		keySize:   16,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	key, err := randomBytes(cfg.rand, cfg.keySize)
	if err != nil {
		return nil, err
	}

	block, err := cfg.newCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create block cipher: %w", err)
	}

	s := &Session{
		mode:   cfg.mode,
		block:  block,
		prefix: cfg.prefix,
		suffix: append([]byte(nil), suffix...),
	}

	if cfg.randomMode {
		coin, err := randomBytes(cfg.rand, 1)
		if err != nil {
			return nil, err
		}
		s.mode = Mode(coin[0] & 1)
	}

	if s.mode == CBC {
		if s.iv, err = randomBytes(cfg.rand, block.BlockSize()); err != nil {
			return nil, err
		}
	}

	if cfg.randomPrefix {
		n, err := randomBytes(cfg.rand, 1)
		if err != nil {
			return nil, err
		}
		if s.prefix, err = randomBytes(cfg.rand, int(n[0])); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Mode reports the cipher mode the session settled on.
func (s *Session) Mode() Mode {
	return s.mode
}

func (s *Session) Encrypt(input []byte) ([]byte, error) {
	plaintext := make([]byte, 0, len(s.prefix)+len(input)+len(s.suffix))
	plaintext = append(plaintext, s.prefix...)
	plaintext = append(plaintext, input...)
	plaintext = append(plaintext, s.suffix...)

	if s.mode == CBC {
		return modes.EncryptCBC(s.block, plaintext, s.iv)
	}

	return modes.EncryptECB(s.block, plaintext), nil
}
