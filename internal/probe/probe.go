// Package probe infers the structure of an oracle from ciphertext alone:
// block size, whether it runs in ECB mode and how many hidden bytes sit in
// front of the attacker controlled input.
package probe

import (
	"bytes"
	"errors"

	"blockbreak/internal/modes"
	"blockbreak/internal/oracle"
)

var (
	// ErrBlockSize is returned when the ciphertext length never grows.
	ErrBlockSize = errors.New("could not determine block size")

	// ErrNotECB is returned by ECB specific attacks when the oracle does
	// not repeat ciphertext blocks.
	ErrNotECB = errors.New("oracle does not encrypt in ECB mode")

	// ErrPrefix is returned when no filler length aligns the prefix.
	ErrPrefix = errors.New("could not determine prefix length")
)

const (
	// PKCS#7 cannot express padding for blocks larger than this.
	maxBlockSize = 255

	ecbProbeBlocks = 100
	ecbThreshold   = 90
)

// Params are the inferred facts about one oracle. They are only valid for
// the oracle they were measured on.
type Params struct {
	BlockSize int
	// Fill is the smallest input length that grows the ciphertext by a block.
	Fill int
	// BaseLength is the ciphertext length for an empty input.
	BaseLength   int
	ECB          bool
	PrefixLength int
}

// SecretLength is the number of hidden bytes following the attacker input.
func (p Params) SecretLength() int {
	return p.BaseLength - p.Fill - p.PrefixLength
}

// BlockSize grows the input one byte at a time until the ciphertext grows.
// The growth is the block size, whatever the prefix length is.
func BlockSize(o oracle.Oracle) (size, fill int, err error) {
	empty, err := o.Encrypt(nil)
	if err != nil {
		return 0, 0, err
	}

	for n := 1; n <= maxBlockSize+1; n++ {
		ct, err := o.Encrypt(make([]byte, n))
		if err != nil {
			return 0, 0, err
		}
		if grown := len(ct) - len(empty); grown > 0 {
			return grown, n, nil
		}
	}

	return 0, 0, ErrBlockSize
}

// MaxRepeatedBlock returns how often the most frequent block occurs in
// ciphertext.
func MaxRepeatedBlock(ciphertext []byte, blocksize int) (int, error) {
	if blocksize < 1 || len(ciphertext)%blocksize != 0 {
		return 0, &modes.LengthError{Length: len(ciphertext), BlockSize: blocksize}
	}

	counts := make(map[string]int)
	most := 0

	for i := 0; i < len(ciphertext); i += blocksize {
		block := string(ciphertext[i : i+blocksize])
		counts[block]++
		if counts[block] > most {
			most = counts[block]
		}
	}

	return most, nil
}

// MostRepetitive returns the index of the ciphertext with the most repeated
// blocks, or -1 if none repeats a block.
func MostRepetitive(ciphertexts [][]byte, blocksize int) int {
	best, bestCount := -1, 1

	for i, ct := range ciphertexts {
		count, err := MaxRepeatedBlock(ct, blocksize)
		if err != nil {
			continue
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}

	return best
}

// IsECB submits many identical blocks and checks that they come back as
// identical ciphertext blocks.
func IsECB(o oracle.Oracle, blocksize int) (bool, error) {
	ct, err := o.Encrypt(make([]byte, blocksize*ecbProbeBlocks))
	if err != nil {
		return false, err
	}

	count, err := MaxRepeatedBlock(ct, blocksize)
	if err != nil {
		return false, err
	}

	return count >= ecbThreshold, nil
}

// PrefixLength measures the number of hidden bytes in front of the input.
//
// Two single byte inputs first differ in the block holding the first input
// byte, which gives the number of full prefix blocks. Then the filler is
// grown until that block stops changing: at that point the filler has
// closed the block. Suffix or padding bytes equal to the filler can make it
// stop early, so two different filler values are tried and the later one
// wins. Only blocks up to the first input block are compared, so the probe
// works for CBC as well.
func PrefixLength(o oracle.Oracle, blocksize int) (int, error) {
	a, err := o.Encrypt([]byte{0})
	if err != nil {
		return 0, err
	}
	b, err := o.Encrypt([]byte{1})
	if err != nil {
		return 0, err
	}

	if len(a) != len(b) || len(a)%blocksize != 0 {
		return 0, &modes.LengthError{Length: len(a), BlockSize: blocksize}
	}

	first := -1
	for i := 0; i < len(a); i += blocksize {
		if !bytes.Equal(a[i:i+blocksize], b[i:i+blocksize]) {
			first = i
			break
		}
	}
	if first < 0 {
		return 0, ErrPrefix
	}

	// a coincidence can only stop a filler early, and never both of them
	within := 0
	for _, filler := range []byte{0, 1} {
		n, err := fillToBoundary(o, blocksize, first, filler)
		if err != nil {
			return 0, err
		}
		if n > within {
			within = n
		}
	}

	return first + (blocksize-within)%blocksize, nil
}

// fillToBoundary returns the smallest filler count that completes the block
// at offset.
func fillToBoundary(o oracle.Oracle, blocksize, offset int, filler byte) (int, error) {
	block := func(n int) ([]byte, error) {
		ct, err := o.Encrypt(bytes.Repeat([]byte{filler}, n))
		if err != nil {
			return nil, err
		}
		if len(ct) < offset+blocksize {
			return nil, &modes.LengthError{Length: len(ct), BlockSize: blocksize}
		}
		return ct[offset : offset+blocksize], nil
	}

	prev, err := block(0)
	if err != nil {
		return 0, err
	}

	for n := 0; n <= blocksize; n++ {
		next, err := block(n + 1)
		if err != nil {
			return 0, err
		}
		if bytes.Equal(prev, next) {
			return n, nil
		}
		prev = next
	}

	return 0, ErrPrefix
}

// Analyze runs every probe against o.
func Analyze(o oracle.Oracle) (Params, error) {
	var p Params

	empty, err := o.Encrypt(nil)
	if err != nil {
		return p, err
	}
	p.BaseLength = len(empty)

	if p.BlockSize, p.Fill, err = BlockSize(o); err != nil {
		return p, err
	}

	if p.ECB, err = IsECB(o, p.BlockSize); err != nil {
		return p, err
	}

	if p.PrefixLength, err = PrefixLength(o, p.BlockSize); err != nil {
		return p, err
	}

	return p, nil
}
