package precompiles

// Variant names the Arith-Eq, Arith-Eq-384 and Add-256 precompile families.
// Their field/bigint arithmetic is treated as an external concern (the
// planner and input collectors only need a call's operand pointers and row
// cost, not a from-scratch bignum/curve library); the witness generator
// that actually evaluates secp256k1/BN254/BLS12-381 point operations lives
// in the STARK backend this module ships work to, per §6's external
// interfaces contract.
type Variant string

const (
	VariantSecp256k1Add Variant = "secp256k1_add"
	VariantSecp256k1Dbl Variant = "secp256k1_dbl"
	VariantBN254Add     Variant = "bn254_add"
	VariantBN254Dbl     Variant = "bn254_dbl"
	VariantBN254ComplexAdd Variant = "bn254_complex_add"
	VariantBN254ComplexSub Variant = "bn254_complex_sub"
	VariantBN254ComplexMul Variant = "bn254_complex_mul"
	VariantArith256     Variant = "arith256"
	VariantArith256Mod  Variant = "arith256_mod"

	VariantBLS12381Add     Variant = "bls12381_add"
	VariantBLS12381Dbl     Variant = "bls12381_dbl"
	VariantBLS12381Complex Variant = "bls12381_complex"
	VariantArith384Mod     Variant = "arith384_mod"

	VariantAdd256 Variant = "add256"
)

// Call is one precompile invocation: which variant, and the memory
// addresses of its operand(s) and result, exactly as the syscall ABI passes
// them (the values themselves are read out of RAM by the witness generator,
// not carried here).
type Call struct {
	Variant  Variant
	Step     uint64
	PC       uint64
	ArgsAddr uint64
}

// RowCost gives each variant's fixed row cost in its air, mirroring the
// opcode catalog's per-opcode Steps field for the ordinary ZisK opcodes.
var RowCost = map[Variant]uint64{
	VariantSecp256k1Add:    1,
	VariantSecp256k1Dbl:    1,
	VariantBN254Add:        1,
	VariantBN254Dbl:        1,
	VariantBN254ComplexAdd: 1,
	VariantBN254ComplexSub: 1,
	VariantBN254ComplexMul: 1,
	VariantArith256:        1,
	VariantArith256Mod:     1,
	VariantBLS12381Add:     1,
	VariantBLS12381Dbl:     1,
	VariantBLS12381Complex: 1,
	VariantArith384Mod:     1,
	VariantAdd256:          1,
}

// Counter tallies precompile calls by variant for one chunk.
type Counter struct {
	totals map[Variant]uint64
}

func NewCounter() *Counter { return &Counter{totals: map[Variant]uint64{}} }

func (c *Counter) Add(call Call) { c.totals[call.Variant]++ }

func (c *Counter) Totals() map[Variant]uint64 { return c.totals }

func (c *Counter) RowCost() uint64 {
	var sum uint64
	for v, n := range c.totals {
		sum += n * RowCost[v]
	}
	return sum
}
