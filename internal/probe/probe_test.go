package probe_test

import (
	"bytes"
	"crypto/des"
	"crypto/rand"
	"testing"

	"blockbreak/internal/modes"
	"blockbreak/internal/oracle"
	"blockbreak/internal/probe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("Rollin' in my 5.0\nWith my rag-top down so my hair can blow\n")

func randomPrefix(t *testing.T, n int) []byte {
	t.Helper()

	prefix := make([]byte, n)
	_, err := rand.Read(prefix)
	require.NoError(t, err)

	return prefix
}

func TestBlockSizeIndependentOfPrefix(t *testing.T) {
	for prefixlen := 0; prefixlen < 64; prefixlen++ {
		s, err := oracle.NewSession(secret, oracle.WithPrefix(randomPrefix(t, prefixlen)))
		require.NoError(t, err)

		size, fill, err := probe.BlockSize(s)
		require.NoError(t, err)
		assert.Equal(t, 16, size, "prefix length %d", prefixlen)
		assert.Equal(t, 16-(prefixlen+len(secret))%16, fill, "prefix length %d", prefixlen)
	}
}

func TestBlockSizeNotHardCoded(t *testing.T) {
	s, err := oracle.NewSession(secret, oracle.WithBlockCipher(des.NewCipher, 8), oracle.WithPrefix([]byte("abc")))
	require.NoError(t, err)

	size, _, err := probe.BlockSize(s)
	require.NoError(t, err)
	assert.Equal(t, 8, size)
}

func TestBlockSizeNeverGrows(t *testing.T) {
	constant := oracle.Func(func([]byte) ([]byte, error) { return make([]byte, 16), nil })

	_, _, err := probe.BlockSize(constant)
	assert.ErrorIs(t, err, probe.ErrBlockSize)
}

func TestIsECB(t *testing.T) {
	ecb, err := oracle.NewSession(secret, oracle.WithRandomPrefix())
	require.NoError(t, err)
	cbc, err := oracle.NewSession(secret, oracle.WithRandomPrefix(), oracle.WithCBC())
	require.NoError(t, err)

	got, err := probe.IsECB(ecb, 16)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = probe.IsECB(cbc, 16)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestIsECBRandomMode(t *testing.T) {
	for i := 0; i < 100; i++ {
		s, err := oracle.NewSession(secret, oracle.WithRandomMode(), oracle.WithRandomPrefix())
		require.NoError(t, err)

		got, err := probe.IsECB(s, 16)
		require.NoError(t, err)
		assert.Equal(t, s.Mode() == oracle.ECB, got, "iteration %d", i)
	}
}

func TestMaxRepeatedBlock(t *testing.T) {
	ct := bytes.Join([][]byte{
		[]byte("AAAAAAAAAAAAAAAA"),
		[]byte("BBBBBBBBBBBBBBBB"),
		[]byte("AAAAAAAAAAAAAAAA"),
		[]byte("AAAAAAAAAAAAAAAA"),
	}, nil)

	count, err := probe.MaxRepeatedBlock(ct, 16)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = probe.MaxRepeatedBlock(ct[:17], 16)
	var lerr *modes.LengthError
	assert.ErrorAs(t, err, &lerr)
}

func TestMostRepetitive(t *testing.T) {
	key := []byte("YELLOW SUBMARINE")
	var cts [][]byte

	for i := 0; i < 10; i++ {
		ct, err := modes.CBCEncrypt(make([]byte, 64), key, randomPrefix(t, 16))
		require.NoError(t, err)
		cts = append(cts, ct)
	}

	ecb, err := modes.ECBEncrypt(make([]byte, 64), key)
	require.NoError(t, err)
	cts = append(cts[:4], append([][]byte{ecb}, cts[4:]...)...)

	assert.Equal(t, 4, probe.MostRepetitive(cts, 16))
	assert.Equal(t, -1, probe.MostRepetitive(cts[:4], 16))
}

func TestPrefixLength(t *testing.T) {
	for _, opts := range [][]oracle.Option{nil, {oracle.WithCBC()}} {
		for prefixlen := 0; prefixlen < 100; prefixlen++ {
			prefix := randomPrefix(t, prefixlen)
			s, err := oracle.NewSession(secret, append(opts, oracle.WithPrefix(prefix))...)
			require.NoError(t, err)

			got, err := probe.PrefixLength(s, 16)
			require.NoError(t, err)
			require.Equal(t, prefixlen, got, "prefix length %d, mode %s", prefixlen, s.Mode())
		}
	}
}

func TestPrefixLengthAtBlockBoundaries(t *testing.T) {
	for _, prefixlen := range []int{0, 15, 16, 17, 31, 32, 33, 48, 64, 240} {
		s, err := oracle.NewSession(secret, oracle.WithPrefix(randomPrefix(t, prefixlen)))
		require.NoError(t, err)

		got, err := probe.PrefixLength(s, 16)
		require.NoError(t, err)
		assert.Equal(t, prefixlen, got)
	}
}

func TestPrefixLengthResistsFillerLookalikes(t *testing.T) {
	tests := []struct {
		name           string
		prefix, suffix []byte
	}{
		{name: "prefix ends in zeros", prefix: append(randomPrefix(t, 20), 0, 0, 0), suffix: secret},
		{name: "prefix ends in ones", prefix: append(randomPrefix(t, 7), 1, 1), suffix: secret},
		{name: "suffix starts with zeros", prefix: randomPrefix(t, 5), suffix: append(make([]byte, 20), secret...)},
		{name: "suffix starts with ones", prefix: randomPrefix(t, 16), suffix: append(bytes.Repeat([]byte{1}, 20), secret...)},
		{name: "single padding byte", prefix: randomPrefix(t, 15), suffix: nil},
		{name: "empty everything", prefix: nil, suffix: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := oracle.NewSession(tt.suffix, oracle.WithPrefix(tt.prefix))
			require.NoError(t, err)

			got, err := probe.PrefixLength(s, 16)
			require.NoError(t, err)
			assert.Equal(t, len(tt.prefix), got)
		})
	}
}

func TestPrefixLengthOtherBlockSize(t *testing.T) {
	for prefixlen := 0; prefixlen < 20; prefixlen++ {
		s, err := oracle.NewSession(secret, oracle.WithBlockCipher(des.NewCipher, 8), oracle.WithPrefix(randomPrefix(t, prefixlen)))
		require.NoError(t, err)

		got, err := probe.PrefixLength(s, 8)
		require.NoError(t, err)
		assert.Equal(t, prefixlen, got)
	}
}

func TestAnalyze(t *testing.T) {
	prefix := randomPrefix(t, 37)
	s, err := oracle.NewSession(secret, oracle.WithPrefix(prefix))
	require.NoError(t, err)

	params, err := probe.Analyze(s)
	require.NoError(t, err)

	assert.Equal(t, 16, params.BlockSize)
	assert.True(t, params.ECB)
	assert.Equal(t, 37, params.PrefixLength)
	assert.Equal(t, len(secret), params.SecretLength())
}
