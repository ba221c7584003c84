package modes

import (
	"bytes"
	"fmt"
)

// PKCS7Padding returns a copy of input padded to a multiple of blocklength.
// A full block of padding is added when input is already aligned.
func PKCS7Padding(input []byte, blocklength int) []byte {
	if blocklength < 1 || blocklength > 255 {
		panic(fmt.Sprintf("block length %d cannot be expressed in PKCS#7", blocklength))
	}

	pad := blocklength - len(input)%blocklength
	padded := make([]byte, len(input), len(input)+pad)
	copy(padded, input)

	return append(padded, bytes.Repeat([]byte{byte(pad)}, pad)...)
}

// PKCS7Unpad validates and strips the padding of input. The returned slice
// aliases input.
func PKCS7Unpad(input []byte, blocklength int) ([]byte, error) {
	if len(input) == 0 || len(input)%blocklength != 0 {
		return nil, &LengthError{Length: len(input), BlockSize: blocklength}
	}

	pad := int(input[len(input)-1])

	if pad == 0 || pad > blocklength {
		return nil, &PaddingError{Reason: fmt.Sprintf("padding length %d out of range", pad)}
	}

	if !bytes.HasSuffix(input, bytes.Repeat([]byte{byte(pad)}, pad)) {
		return nil, &PaddingError{Reason: "does not end with padding string"}
	}

	return input[:len(input)-pad], nil
}
