package modes

import "fmt"

// PaddingError is returned on decrypt when the final block does not carry
// valid PKCS#7 padding. The message must be rejected, never repaired.
type PaddingError struct {
	Reason string
}

func (e *PaddingError) Error() string {
	return "invalid PKCS#7 padding: " + e.Reason
}

// LengthError is returned when a ciphertext is not a whole number of blocks.
type LengthError struct {
	Length, BlockSize int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("input size of %d not a multiple of %d", e.Length, e.BlockSize)
}
