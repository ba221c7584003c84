// Package oracle holds the black boxes the attacks run against.
//
// Every oracle keeps its key, iv and any hidden prefix or suffix to itself;
// the only thing it hands out is ciphertext for attacker chosen input.
package oracle

// Oracle encrypts attacker controlled plaintext inside some hidden context.
// Encrypt must be deterministic for the lifetime of the oracle and must not
// retain plaintext after returning.
type Oracle interface {
	Encrypt(plaintext []byte) ([]byte, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(plaintext []byte) ([]byte, error)

func (f Func) Encrypt(plaintext []byte) ([]byte, error) {
	return f(plaintext)
}
