package modes

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// XOR returns a ^ b over the shorter of the two lengths.
func XOR(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	output := make([]byte, n)
	for i := range output {
		output[i] = a[i] ^ b[i]
	}

	return output
}

// EncryptCBC pads plaintext and chains each block through the previous
// ciphertext block, starting from iv. The iv is not prepended.
func EncryptCBC(c cipher.Block, plaintext, iv []byte) ([]byte, error) {
	blocksize := c.BlockSize()

	if len(iv) != blocksize {
		return nil, fmt.Errorf("iv length %d does not match block size %d", len(iv), blocksize)
	}

	padded := PKCS7Padding(plaintext, blocksize)
	ciphertext := make([]byte, len(padded))
	prev := iv

	for processed := 0; processed < len(padded); processed += blocksize {
		block := ciphertext[processed : processed+blocksize]
		c.Encrypt(block, XOR(prev, padded[processed:processed+blocksize]))
		prev = block
	}

	return ciphertext, nil
}

// DecryptCBC reverses EncryptCBC. Each block only needs the previous
// ciphertext block, so tampering with block i-1 flips the same bits of
// plaintext block i.
func DecryptCBC(c cipher.Block, ciphertext, iv []byte) ([]byte, error) {
	blocksize := c.BlockSize()

	if len(iv) != blocksize {
		return nil, fmt.Errorf("iv length %d does not match block size %d", len(iv), blocksize)
	}

	if len(ciphertext) == 0 || len(ciphertext)%blocksize != 0 {
		return nil, &LengthError{Length: len(ciphertext), BlockSize: blocksize}
	}

	plaintext := make([]byte, len(ciphertext))

	for processed := 0; processed < len(ciphertext); processed += blocksize {
		previous := iv
		if processed > 0 {
			previous = ciphertext[processed-blocksize : processed]
		}

		block := plaintext[processed : processed+blocksize]
		c.Decrypt(block, ciphertext[processed:processed+blocksize])
		copy(block, XOR(previous, block))
	}

	return PKCS7Unpad(plaintext, blocksize)
}

// CBCEncrypt is EncryptCBC over AES with the given key.
func CBCEncrypt(plaintext, key, iv []byte) ([]byte, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher with key length %d: %w", len(key), err)
	}

	return EncryptCBC(c, plaintext, iv)
}

// CBCDecrypt is DecryptCBC over AES with the given key.
func CBCDecrypt(ciphertext, key, iv []byte) ([]byte, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher with key length %d: %w", len(key), err)
	}

	return DecryptCBC(c, ciphertext, iv)
}
