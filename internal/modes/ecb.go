package modes

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// EncryptECB pads plaintext and encrypts every block independently with c.
func EncryptECB(c cipher.Block, plaintext []byte) []byte {
	blocksize := c.BlockSize()
	ciphertext := PKCS7Padding(plaintext, blocksize)

	for i := 0; i < len(ciphertext); i += blocksize {
		c.Encrypt(ciphertext[i:i+blocksize], ciphertext[i:i+blocksize])
	}

	return ciphertext
}

// DecryptECB decrypts every block with c and strips the padding.
func DecryptECB(c cipher.Block, ciphertext []byte) ([]byte, error) {
	blocksize := c.BlockSize()

	if len(ciphertext) == 0 || len(ciphertext)%blocksize != 0 {
		return nil, &LengthError{Length: len(ciphertext), BlockSize: blocksize}
	}

	plaintext := make([]byte, len(ciphertext))

	for i := 0; i < len(ciphertext); i += blocksize {
		c.Decrypt(plaintext[i:i+blocksize], ciphertext[i:i+blocksize])
	}

	return PKCS7Unpad(plaintext, blocksize)
}

// ECBEncrypt is EncryptECB over AES with the given key.
func ECBEncrypt(plaintext, key []byte) ([]byte, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher with key length %d: %w", len(key), err)
	}

	return EncryptECB(c, plaintext), nil
}

// ECBDecrypt is DecryptECB over AES with the given key.
func ECBDecrypt(ciphertext, key []byte) ([]byte, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher with key length %d: %w", len(key), err)
	}

	return DecryptECB(c, ciphertext)
}
