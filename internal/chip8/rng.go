package chip8

import "math/rand"

// defaultRNG backs CXNN outside of tests.
func defaultRNG() byte {
	return byte(rand.Intn(256))
}
