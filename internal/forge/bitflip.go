package forge

import (
	"bytes"
	"fmt"
	"log"

	"blockbreak/internal/oracle"
	"blockbreak/internal/probe"
)

const placeholder = 'A'

// BitFlip forges a CBC ciphertext whose plaintext contains want, even
// though the oracle would have quoted it.
//
// The input is a filler that closes the prefix block, one sacrificial
// block and one placeholder block. CBC decryption XORs every block with the
// previous ciphertext block, so XORing placeholder^want into the sacrificial
// ciphertext block turns the placeholder into want and scrambles the
// sacrificial block.
func BitFlip(o oracle.Oracle, want []byte, logger *log.Logger) ([]byte, error) {
	logger = discard(logger)

	blocksize, _, err := probe.BlockSize(o)
	if err != nil {
		return nil, err
	}

	if len(want) > blocksize {
		return nil, fmt.Errorf("want (%d) must fit in one block (%d)", len(want), blocksize)
	}

	prefix, err := probe.PrefixLength(o, blocksize)
	if err != nil {
		return nil, err
	}

	align := (blocksize - prefix%blocksize) % blocksize
	sacrificial := (prefix + align) / blocksize

	logger.Printf("prefix %d bytes, flipping block %d", prefix, sacrificial)

	ct, err := o.Encrypt(bytes.Repeat([]byte{placeholder}, align+2*blocksize))
	if err != nil {
		return nil, err
	}
	if len(ct) < (sacrificial+2)*blocksize {
		return nil, fmt.Errorf("ciphertext of %d bytes ends before block %d", len(ct), sacrificial+1)
	}

	forged := append([]byte(nil), ct...)
	for i, b := range want {
		forged[sacrificial*blocksize+i] ^= placeholder ^ b
	}

	return forged, nil
}
