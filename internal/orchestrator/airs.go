package orchestrator

// Air group/air ids for every state machine the orchestrator plans
// instances for. NUM_ROWS per air is fixed at build time by the PIL/backend
// layer per spec §9's "parameterized, specific numbers live in the
// PIL/backend layer" note; RowBudget below is this module's build-time
// choice, not a derived value.
const (
	AirGroupMain = iota
	AirGroupBinary
	AirGroupBinaryExtended
	AirGroupArith
	AirGroupArith32
	AirGroupArithAm32
	AirGroupKeccak
	AirGroupMemFull
	AirGroupMemReadByte
	AirGroupMemWriteByte
	AirGroupMemByte
)

// RowBudget is the per-instance row capacity used for every secondary-SM
// air in this build. A real deployment would read these from the PIL
// layout; absent that layer here, one conservative power-of-two stands in
// for all of them (documented in DESIGN.md as an Open Question decision).
const RowBudget = 1 << 16

// MaxInstances caps how many instances any single air may open in one run.
// 0 means unlimited, matching SimplePlanner/MemAlignPlanner's convention.
const MaxInstances = 0
