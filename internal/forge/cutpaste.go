// Package forge builds ciphertexts the legitimate key holder will accept,
// without ever learning the key.
package forge

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"blockbreak/internal/oracle"
	"blockbreak/internal/probe"
)

func discard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return logger
}

// CutAndPaste forges a record that ends in paste where the oracle's records
// end in cut. The oracle has to embed its input somewhere in a record that
// ends with cut, and has to encrypt it in ECB mode.
//
// It encrypts paste as if it were a final padded block, lines it up on a
// block boundary and lifts the ciphertext block out. A second query pushes
// cut into a block of its own, and that block is swapped for the lifted one.
func CutAndPaste(o oracle.Oracle, cut, paste []byte, logger *log.Logger) ([]byte, error) {
	logger = discard(logger)

	blocksize, fill, err := probe.BlockSize(o)
	if err != nil {
		return nil, err
	}

	ecb, err := probe.IsECB(o, blocksize)
	if err != nil {
		return nil, err
	}
	if !ecb {
		return nil, probe.ErrNotECB
	}

	if len(paste) >= blocksize || len(cut) >= blocksize {
		return nil, fmt.Errorf("cut (%d) and paste (%d) must be shorter than a block (%d)", len(cut), len(paste), blocksize)
	}

	padding := blocksize - len(paste)
	pasteBlock := append(append([]byte(nil), paste...), bytes.Repeat([]byte{byte(padding)}, padding)...)

	lifted, err := liftBlock(o, pasteBlock, blocksize)
	if err != nil {
		return nil, err
	}

	// push the record length to a boundary, then len(cut) further so the
	// last block holds exactly cut and its padding
	ct, err := o.Encrypt(make([]byte, fill+len(cut)))
	if err != nil {
		return nil, err
	}
	if len(ct) < blocksize || len(ct)%blocksize != 0 {
		return nil, fmt.Errorf("unexpected ciphertext length %d", len(ct))
	}

	logger.Printf("replacing block %d of %d", len(ct)/blocksize-1, len(ct)/blocksize)

	forged := make([]byte, 0, len(ct))
	forged = append(forged, ct[:len(ct)-blocksize]...)
	return append(forged, lifted...), nil
}

// liftBlock returns the ciphertext of block once it sits on a block
// boundary. Two copies are sent, and alignment shows as two equal adjacent
// ciphertext blocks. Blocks the oracle produces without the copies, such as
// a repetitive prefix, are never taken for the lifted block.
func liftBlock(o oracle.Oracle, block []byte, blocksize int) ([]byte, error) {
	for offset := 0; offset < blocksize; offset++ {
		baseline, err := o.Encrypt(make([]byte, offset))
		if err != nil {
			return nil, err
		}

		seen := make(map[string]bool)
		for i := 0; i+blocksize <= len(baseline); i += blocksize {
			seen[string(baseline[i:i+blocksize])] = true
		}

		input := make([]byte, offset, offset+2*blocksize)
		input = append(input, block...)
		input = append(input, block...)

		ct, err := o.Encrypt(input)
		if err != nil {
			return nil, err
		}

		for i := blocksize; i+blocksize <= len(ct); i += blocksize {
			candidate := ct[i : i+blocksize]
			if bytes.Equal(ct[i-blocksize:i], candidate) && !seen[string(candidate)] {
				return candidate, nil
			}
		}
	}

	return nil, fmt.Errorf("no offset aligned the pasted block within %d bytes", blocksize)
}
