package oracle

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"net/url"
	"strings"

	"blockbreak/internal/modes"
)

func newKeyedBlock(opts []Option) (cipher.Block, sessionConfig, error) {
	cfg := sessionConfig{
		rand:      rand.Reader,
		newCipher: aes.NewCipher,
		keySize:   16,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	key, err := randomBytes(cfg.rand, cfg.keySize)
	if err != nil {
		return nil, cfg, err
	}

	block, err := cfg.newCipher(key)
	if err != nil {
		return nil, cfg, fmt.Errorf("could not create block cipher: %w", err)
	}

	return block, cfg, nil
}

// Profiles encrypts user profiles of the form
// email=<email>&uid=10&role=user under a fixed ECB key.
type Profiles struct {
	block cipher.Block
}

// NewProfiles creates a profile service. Only WithRand and WithBlockCipher
// are honoured.
func NewProfiles(opts ...Option) (*Profiles, error) {
	block, _, err := newKeyedBlock(opts)
	if err != nil {
		return nil, err
	}

	return &Profiles{block: block}, nil
}

// ProfileFor encodes a profile, dropping any '&' and '=' from email.
func ProfileFor(email []byte) []byte {
	profile := []byte("email=")
	for _, b := range email {
		if b != '&' && b != '=' {
			profile = append(profile, b)
		}
	}

	return append(profile, "&uid=10&role=user"...)
}

// Encrypt returns the ciphertext of the profile for email.
func (p *Profiles) Encrypt(email []byte) ([]byte, error) {
	return modes.EncryptECB(p.block, ProfileFor(email)), nil
}

// Decrypt decrypts and parses a profile.
func (p *Profiles) Decrypt(ciphertext []byte) (url.Values, error) {
	plaintext, err := modes.DecryptECB(p.block, ciphertext)
	if err != nil {
		return nil, err
	}

	return parseProfile(string(plaintext))
}

// parseProfile splits a record on '&' and each field on its first '='.
// Values are taken literally, nothing is unescaped.
func parseProfile(record string) (url.Values, error) {
	values := make(url.Values)
	for _, field := range strings.Split(record, "&") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("malformed profile: field %q has no '='", field)
		}
		values.Add(key, value)
	}

	return values, nil
}

// Role returns the role field of an encrypted profile.
func (p *Profiles) Role(ciphertext []byte) (string, error) {
	parsed, err := p.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}

	return parsed.Get("role"), nil
}

const (
	commentPrefix = "comment1=cooking%20MCs;userdata="
	commentSuffix = ";comment2=%20like%20a%20pound%20of%20bacon"
	adminMarker   = ";admin=true;"
)

var quoter = strings.NewReplacer(";", "%3B", "=", "%3D", " ", "%20")

// Comments encrypts user data inside a cookie-like string under CBC with a
// fixed key and iv.
type Comments struct {
	block cipher.Block
	iv    []byte
}

// NewComments creates a comment service. Only WithRand and WithBlockCipher
// are honoured.
func NewComments(opts ...Option) (*Comments, error) {
	block, cfg, err := newKeyedBlock(opts)
	if err != nil {
		return nil, err
	}

	iv, err := randomBytes(cfg.rand, block.BlockSize())
	if err != nil {
		return nil, err
	}

	return &Comments{block: block, iv: iv}, nil
}

// Encrypt quotes ';', '=' and spaces out of userdata and encrypts the result.
func (c *Comments) Encrypt(userdata []byte) ([]byte, error) {
	plaintext := commentPrefix + quoter.Replace(string(userdata)) + commentSuffix

	return modes.EncryptCBC(c.block, []byte(plaintext), c.iv)
}

// IsAdmin decrypts ciphertext and looks for ";admin=true;".
func (c *Comments) IsAdmin(ciphertext []byte) (bool, error) {
	plaintext, err := modes.DecryptCBC(c.block, ciphertext, c.iv)
	if err != nil {
		return false, err
	}

	return bytes.Contains(plaintext, []byte(adminMarker)), nil
}
