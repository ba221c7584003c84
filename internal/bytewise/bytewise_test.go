package bytewise_test

import (
	"bytes"
	"crypto/des"
	"encoding/base64"
	"log"
	"testing"

	"blockbreak/internal/bytewise"
	"blockbreak/internal/oracle"
	"blockbreak/internal/probe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unknownString = "Um9sbGluJyBpbiBteSA1LjAKV2l0aCBteSByYWctdG9wIGRvd24gc28gbXkg" +
	"aGFpciBjYW4gYmxvdwpUaGUgZ2lybGllcyBvbiBzdGFuZGJ5IHdhdmluZyBq" +
	"dXN0IHRvIHNheSBoaQpEaWQgeW91IHN0b3A/IE5vLCBJIGp1c3QgZHJvdmUg" +
	"YnkK"

func decodedSecret(t *testing.T) []byte {
	t.Helper()

	secret, err := base64.StdEncoding.DecodeString(unknownString)
	require.NoError(t, err)

	return secret
}

type countingOracle struct {
	oracle.Oracle
	queries int
}

func (c *countingOracle) Encrypt(plaintext []byte) ([]byte, error) {
	c.queries++
	return c.Oracle.Encrypt(plaintext)
}

func TestRecoverSimple(t *testing.T) {
	secret := decodedSecret(t)

	s, err := oracle.NewSession(secret)
	require.NoError(t, err)

	counter := &countingOracle{Oracle: s}

	var logs bytes.Buffer
	result, err := bytewise.Recover(counter, log.New(&logs, "", 0))
	require.NoError(t, err)

	assert.Equal(t, string(secret), string(result))
	assert.Contains(t, logs.String(), "recovered")
	assert.LessOrEqual(t, counter.queries, len(secret)*257+3*16+110)
}

func TestRecoverRandomPrefix(t *testing.T) {
	secret := decodedSecret(t)

	for run := 0; run < 10; run++ {
		s, err := oracle.NewSession(secret, oracle.WithRandomPrefix())
		require.NoError(t, err)

		result, err := bytewise.Recover(s, nil)
		require.NoError(t, err, "run %d", run)
		require.Equal(t, string(secret), string(result), "run %d", run)
	}
}

func TestRecoverPrefixAtBlockBoundaries(t *testing.T) {
	secret := []byte("YELLOW SUBMARINE and then some more")

	for _, prefixlen := range []int{0, 1, 15, 16, 17, 32, 255} {
		s, err := oracle.NewSession(secret, oracle.WithPrefix(bytes.Repeat([]byte{0}, prefixlen)))
		require.NoError(t, err)

		result, err := bytewise.Recover(s, nil)
		require.NoError(t, err, "prefix length %d", prefixlen)
		assert.Equal(t, secret, result, "prefix length %d", prefixlen)
	}
}

func TestRecoverAlignedSecret(t *testing.T) {
	for _, secret := range [][]byte{
		nil,
		[]byte("A"),
		[]byte("YELLOW SUBMARINE"),
		bytes.Repeat([]byte{0}, 32),
		bytes.Repeat([]byte{16}, 17),
	} {
		s, err := oracle.NewSession(secret, oracle.WithRandomPrefix())
		require.NoError(t, err)

		result, err := bytewise.Recover(s, nil)
		require.NoError(t, err)
		assert.Equal(t, len(secret), len(result))
		assert.True(t, bytes.Equal(secret, result), "%q != %q", secret, result)
	}
}

func TestRecoverOtherBlockSize(t *testing.T) {
	secret := []byte("Did you stop? No, I just drove by")

	s, err := oracle.NewSession(secret, oracle.WithBlockCipher(des.NewCipher, 8), oracle.WithRandomPrefix())
	require.NoError(t, err)

	result, err := bytewise.Recover(s, nil)
	require.NoError(t, err)
	assert.Equal(t, secret, result)
}

func TestRecoverRefusesCBC(t *testing.T) {
	s, err := oracle.NewSession(decodedSecret(t), oracle.WithCBC())
	require.NoError(t, err)

	counter := &countingOracle{Oracle: s}

	result, err := bytewise.Recover(counter, nil)
	assert.ErrorIs(t, err, probe.ErrNotECB)
	assert.Nil(t, result)

	// only the probes ran
	assert.Less(t, counter.queries, 256)
}

func TestRecoverNonDeterministicOracle(t *testing.T) {
	secret := decodedSecret(t)

	reference, err := oracle.NewSession(secret)
	require.NoError(t, err)
	params, err := probe.Analyze(reference)
	require.NoError(t, err)

	// a fresh key on every query
	rekeying := oracle.Func(func(plaintext []byte) ([]byte, error) {
		s, err := oracle.NewSession(secret)
		if err != nil {
			return nil, err
		}
		return s.Encrypt(plaintext)
	})

	result, err := bytewise.RecoverWith(rekeying, params, nil)
	assert.ErrorIs(t, err, bytewise.ErrLookupMiss)
	assert.Nil(t, result)
}
