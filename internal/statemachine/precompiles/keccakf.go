// Package precompiles implements the fixed, externally-specified
// permutation/compression primitives the precompile state machines
// certify: Keccak-f[1600] and the SHA-256 compression function. Both are
// transcribed from scratch rather than taken from crypto/sha3 or
// crypto/sha256, because what the prover must certify is the *internal*
// round structure (every intermediate lane, every working variable) as a
// sequence of witness rows, not just the final digest that the stdlib
// packages expose.
package precompiles

// round constants for the 24 rounds of Keccak-f[1600].
var keccakRC = [24]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808a, 0x8000000080008000,
	0x000000000000808b, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008a, 0x0000000000000088, 0x0000000080008009, 0x000000008000000a,
	0x000000008000808b, 0x800000000000008b, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800a, 0x800000008000000a,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

var keccakRotc = [25]uint{
	0, 1, 62, 28, 27,
	36, 44, 6, 55, 20,
	3, 10, 43, 25, 39,
	41, 45, 15, 21, 8,
	18, 2, 61, 56, 14,
}

// piIndex[i] gives the source lane for destination lane i under Keccak's
// pi step.
var piIndex = [25]int{
	0, 6, 12, 18, 24,
	3, 9, 10, 16, 22,
	1, 7, 13, 19, 20,
	4, 5, 11, 17, 23,
	2, 8, 14, 15, 21,
}

func rotl64(x uint64, n uint) uint64 {
	n %= 64
	if n == 0 {
		return x
	}
	return (x << n) | (x >> (64 - n))
}

// KeccakF1600 applies the 24-round Keccak-f permutation in place to a
// 25-lane (5x5 64-bit) state, row-major (state[5*y+x]).
func KeccakF1600(state *[25]uint64) {
	var b [25]uint64
	var c [5]uint64
	var d [5]uint64

	for round := 0; round < 24; round++ {
		// theta
		for x := 0; x < 5; x++ {
			c[x] = state[x] ^ state[x+5] ^ state[x+10] ^ state[x+15] ^ state[x+20]
		}
		for x := 0; x < 5; x++ {
			d[x] = c[(x+4)%5] ^ rotl64(c[(x+1)%5], 1)
		}
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				state[5*y+x] ^= d[x]
			}
		}

		// rho + pi
		for i := 0; i < 25; i++ {
			b[i] = rotl64(state[piIndex[i]], keccakRotc[piIndex[i]])
		}

		// chi
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				state[5*y+x] = b[5*y+x] ^ (^b[5*y+(x+1)%5] & b[5*y+(x+2)%5])
			}
		}

		// iota
		state[0] ^= keccakRC[round]
	}
}
