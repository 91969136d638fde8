package precompiles_test

import (
	"testing"

	"github.com/0xPolygonHermez/zisk-sub004/internal/statemachine/precompiles"
)

func TestKeccakF1600ChangesState(t *testing.T) {
	var state [25]uint64
	before := state
	precompiles.KeccakF1600(&state)
	if state == before {
		t.Fatal("KeccakF1600 on the zero state should not be a fixed point")
	}
	// Deterministic: running it again from the same input reproduces the
	// same output.
	again := before
	precompiles.KeccakF1600(&again)
	if again != state {
		t.Fatal("KeccakF1600 is not deterministic across identical inputs")
	}
}

func TestSHA256FMatchesKnownVector(t *testing.T) {
	state := precompiles.SHA256InitialState
	var block [64]byte
	block[0] = 0x80 // "" padded: single 1-bit then zero length
	precompiles.SHA256F(&state, &block)

	want := [8]uint32{
		0xe3b0c442, 0x98fc1c14, 0x9afbf4c8, 0x996fb924,
		0x27ae41e4, 0x649b934c, 0xa495991b, 0x7852b855,
	}
	if state != want {
		t.Fatalf("SHA256F(empty-message block) = %08x, want %08x", state, want)
	}
}

func TestPrecompileCounter(t *testing.T) {
	c := precompiles.NewCounter()
	c.Add(precompiles.Call{Variant: precompiles.VariantSecp256k1Add})
	c.Add(precompiles.Call{Variant: precompiles.VariantSecp256k1Add})
	c.Add(precompiles.Call{Variant: precompiles.VariantArith256})

	if c.Totals()[precompiles.VariantSecp256k1Add] != 2 {
		t.Fatalf("want 2 secp256k1_add calls, got %d", c.Totals()[precompiles.VariantSecp256k1Add])
	}
	if c.RowCost() != 3 {
		t.Fatalf("want row cost 3, got %d", c.RowCost())
	}
}
