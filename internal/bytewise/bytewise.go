// Package bytewise recovers a secret that an ECB oracle appends to attacker
// input, one byte at a time.
//
// For byte i the input is sized so that byte i is the last byte of a block
// whose other bytes are already known. Encrypting all 256 completions of
// that block gives a table from ciphertext block to byte, and the real block
// is looked up in it.
package bytewise

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"

	"blockbreak/internal/oracle"
	"blockbreak/internal/probe"
)

// ErrLookupMiss means the real ciphertext block was not in the table. It
// only happens when the oracle is not deterministic or the inferred
// parameters are wrong.
var ErrLookupMiss = errors.New("ciphertext block not in lookup table")

const filler = 0

// Recover measures o and then recovers its hidden suffix. A nil logger
// discards progress output.
func Recover(o oracle.Oracle, logger *log.Logger) ([]byte, error) {
	params, err := probe.Analyze(o)
	if err != nil {
		return nil, err
	}

	return RecoverWith(o, params, logger)
}

// RecoverWith recovers the hidden suffix with already measured params.
func RecoverWith(o oracle.Oracle, params probe.Params, logger *log.Logger) ([]byte, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if !params.ECB {
		return nil, probe.ErrNotECB
	}

	blocksize := params.BlockSize
	secretLength := params.SecretLength()
	if secretLength < 0 {
		return nil, fmt.Errorf("inconsistent parameters: secret length %d", secretLength)
	}

	// pad the prefix out to a whole block so the attack can ignore it
	align := (blocksize - params.PrefixLength%blocksize) % blocksize
	firstBlock := (params.PrefixLength + align) / blocksize

	logger.Printf("block size %d, prefix %d bytes, secret %d bytes", blocksize, params.PrefixLength, secretLength)

	secret := newSecretBuffer(blocksize-1, filler, secretLength)

	for i := 0; i < secretLength; i++ {
		table, err := buildTable(o, bytes.Repeat([]byte{filler}, align), secret.Window(), firstBlock, blocksize)
		if err != nil {
			return nil, fmt.Errorf("byte %d: %w", i, err)
		}

		ct, err := o.Encrypt(bytes.Repeat([]byte{filler}, align+blocksize-1-i%blocksize))
		if err != nil {
			return nil, err
		}

		target := (firstBlock + i/blocksize) * blocksize
		if len(ct) < target+blocksize {
			return nil, fmt.Errorf("byte %d: ciphertext of %d bytes ends before block %d: %w", i, len(ct), target/blocksize, ErrLookupMiss)
		}

		b, ok := table[string(ct[target:target+blocksize])]
		if !ok {
			return nil, fmt.Errorf("byte %d: %w", i, ErrLookupMiss)
		}

		secret.Append(b)

		if (i+1)%blocksize == 0 {
			logger.Printf("recovered %d/%d bytes", secret.Len(), secretLength)
		}
	}

	return secret.Recovered(), nil
}

// buildTable maps the ciphertext of align || window || c, taken at block,
// to c for every byte c.
func buildTable(o oracle.Oracle, align, window []byte, block, blocksize int) (map[string]byte, error) {
	table := make(map[string]byte, 256)

	input := make([]byte, 0, len(align)+len(window)+1)
	input = append(input, align...)
	input = append(input, window...)
	input = append(input, 0)
	last := len(input) - 1

	start := block * blocksize

	for c := 0; c < 256; c++ {
		input[last] = byte(c)

		ct, err := o.Encrypt(input)
		if err != nil {
			return nil, err
		}

		if len(ct) < start+blocksize {
			return nil, fmt.Errorf("ciphertext of %d bytes ends before block %d: %w", len(ct), block, ErrLookupMiss)
		}

		key := string(ct[start : start+blocksize])
		if _, dup := table[key]; dup {
			return nil, fmt.Errorf("candidates %d and %d share a ciphertext block: %w", table[key], c, ErrLookupMiss)
		}
		table[key] = byte(c)
	}

	return table, nil
}
