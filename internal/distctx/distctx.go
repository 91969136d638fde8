// Package distctx assigns every air instance in a run to exactly one
// process, in deterministic round-robin order, and distributes the few
// small collective values that cross process boundaries: each owner's
// Merkle roots and multiplicity-column corrections.
//
// The reference (distribution_ctx.rs) layers this over MPI (Allgatherv,
// point-to-point send/receive). No MPI binding exists anywhere in this
// pack, so collectives here go through a small Transport interface instead:
// InProcessTransport (used whenever n_processes == 1, which every test and
// every single-machine run exercises) and the test-only loopback
// rankTransport in distctx_test.go, used to
// exercise the >1-process code paths without a real cluster. A real
// multi-host build would plug in its own Transport (e.g. over the
// coordinator's TCP connections) without touching the ownership/packing
// logic below.
package distctx

// Transport carries the two collective operations DistributionCtx needs
// across more than one process.
type Transport interface {
	// AllGatherRoots exchanges each process's owned roots (4 uint64 each)
	// and returns the full n_instances*4 buffer, laid out by owner order.
	AllGatherRoots(rank, nProcesses int, counts, displs []int32, myRoots []uint64) []uint64

	// SendMultiplicity ships a non-owner's sparse multiplicity deltas to
	// owner; ReceiveMultiplicity drains one sender's deltas into dst.
	SendMultiplicity(owner int, packed []uint32)
	ReceiveMultiplicity(from int) []uint32
}

// InProcessTransport is used whenever NProcesses == 1: every collective is
// a no-op or an identity, matching the reference's #[cfg(not(distributed))]
// branch.
type InProcessTransport struct{}

func (InProcessTransport) AllGatherRoots(_, _ int, _, _ []int32, myRoots []uint64) []uint64 {
	return myRoots
}
func (InProcessTransport) SendMultiplicity(int, []uint32)      {}
func (InProcessTransport) ReceiveMultiplicity(int) []uint32 { return nil }

// Ctx owns per-process instance ownership and the bookkeeping needed to
// distribute roots/multiplicities once every instance has been registered.
type Ctx struct {
	Rank        int
	NProcesses  int
	Transport   Transport

	NInstances    int
	MyInstances   []int
	Instances     []Instance
	InstanceOwner []Owner

	OwnersCount  []int32
	OwnersWeight []uint64

	rootsGatherCount []int32
	rootsGatherDispl []int32

	MyGroups    [][]int
	MyAirGroups [][]int
}

// Instance identifies one air instance by its group and air id.
type Instance struct {
	GroupID int
	AirID   int
}

// Owner identifies which process owns an instance, and that instance's
// index within the owner's own local instance list.
type Owner struct {
	Rank          int
	OwnerLocalIdx int
}

// New builds a single-process context. Use NewDistributed for rank >= 0
// runs with more than one process.
func New() *Ctx {
	return NewDistributed(0, 1, InProcessTransport{})
}

func NewDistributed(rank, nProcesses int, transport Transport) *Ctx {
	return &Ctx{
		Rank:         rank,
		NProcesses:   nProcesses,
		Transport:    transport,
		OwnersCount:  make([]int32, nProcesses),
		OwnersWeight: make([]uint64, nProcesses),
	}
}

func (c *Ctx) IsDistributed() bool { return c.NProcesses > 1 }

func (c *Ctx) Owner(instanceIdx int) int { return c.InstanceOwner[instanceIdx].Rank }

func (c *Ctx) IsMyInstance(instanceIdx int) bool { return c.Owner(instanceIdx) == c.Rank }

// AddInstance registers one air instance, assigning it round-robin to
// owner = n_instances mod n_processes. Returns whether the calling process
// owns it and its global index.
func (c *Ctx) AddInstance(groupID, airID int, weight uint64) (isMine bool, globalIdx int) {
	owner := c.NInstances % c.NProcesses
	c.Instances = append(c.Instances, Instance{GroupID: groupID, AirID: airID})
	c.InstanceOwner = append(c.InstanceOwner, Owner{Rank: owner, OwnerLocalIdx: int(c.OwnersCount[owner])})
	c.OwnersCount[owner]++
	c.OwnersWeight[owner] += weight

	if owner == c.Rank {
		c.MyInstances = append(c.MyInstances, c.NInstances)
		isMine = true
	}
	globalIdx = c.NInstances
	c.NInstances++
	return isMine, globalIdx
}

// Close computes the gatherv layout, my_groups (gather-buffer positions
// grouped by air group, in group-id order) and my_air_groups (local indices
// grouped by (group, air) pair), exactly mirroring distribution_ctx.rs's
// close().
func (c *Ctx) Close() {
	c.rootsGatherDispl = make([]int32, c.NProcesses)
	c.rootsGatherCount = make([]int32, c.NProcesses)
	var total int32
	for i := 0; i < c.NProcesses; i++ {
		c.rootsGatherDispl[i] = total
		c.rootsGatherCount[i] = c.OwnersCount[i] * 4
		total += c.rootsGatherCount[i]
	}

	groupOrder := []int{}
	groupIndices := map[int][]int{}
	for idx, inst := range c.Instances {
		posBuffer := int(c.rootsGatherDispl[c.InstanceOwner[idx].Rank]) + c.InstanceOwner[idx].OwnerLocalIdx*4
		if _, ok := groupIndices[inst.GroupID]; !ok {
			groupOrder = append(groupOrder, inst.GroupID)
		}
		groupIndices[inst.GroupID] = append(groupIndices[inst.GroupID], posBuffer)
	}
	sortInts(groupOrder)
	for _, g := range groupOrder {
		c.MyGroups = append(c.MyGroups, groupIndices[g])
	}

	type airKey struct{ group, air int }
	airOrder := []airKey{}
	airIndices := map[airKey][]int{}
	for locIdx, globIdx := range c.MyInstances {
		inst := c.Instances[globIdx]
		k := airKey{inst.GroupID, inst.AirID}
		if _, ok := airIndices[k]; !ok {
			airOrder = append(airOrder, k)
		}
		airIndices[k] = append(airIndices[k], locIdx)
	}
	for _, k := range airOrder {
		c.MyAirGroups = append(c.MyAirGroups, airIndices[k])
	}
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// DistributeRoots all-gathers every process's owned roots into one
// n_instances*4 buffer laid out by owner order; a no-op identity when
// NProcesses == 1.
func (c *Ctx) DistributeRoots(myRoots []uint64) []uint64 {
	if !c.IsDistributed() {
		return myRoots
	}
	return c.Transport.AllGatherRoots(c.Rank, c.NProcesses, c.rootsGatherCount, c.rootsGatherDispl, myRoots)
}

// DistributeMultiplicity sends non-owners' non-zero multiplicity entries to
// owner, which sums them into its copy in place. No-op when NProcesses == 1.
func (c *Ctx) DistributeMultiplicity(multiplicity []uint64, owner int) {
	if !c.IsDistributed() {
		return
	}
	if owner != c.Rank {
		packed := packMultiplicity(multiplicity)
		c.Transport.SendMultiplicity(owner, packed)
		return
	}
	for i := 0; i < c.NProcesses; i++ {
		if i == owner {
			continue
		}
		packed := c.Transport.ReceiveMultiplicity(i)
		unpackMultiplicityInto(multiplicity, packed)
	}
}

func packMultiplicity(m []uint64) []uint32 {
	packed := []uint32{0}
	for idx, v := range m {
		if v == 0 {
			continue
		}
		packed = append(packed, uint32(idx), uint32(v))
		packed[0] += 2
	}
	return packed
}

func unpackMultiplicityInto(dst []uint64, packed []uint32) {
	if len(packed) == 0 {
		return
	}
	for j := 1; j < int(packed[0])+1; j += 2 {
		idx := packed[j]
		v := packed[j+1]
		dst[idx] += uint64(v)
	}
}

// DistributeMultiplicities is the multi-column form of
// DistributeMultiplicity: one leading counter per column precedes that
// column's flat (idx, value) pairs in the wire format.
func (c *Ctx) DistributeMultiplicities(multiplicities [][]uint64, owner int) {
	if !c.IsDistributed() {
		return
	}
	nCols := len(multiplicities)
	if owner != c.Rank {
		counters := make([]uint32, nCols)
		var pairs []uint32
		for col, m := range multiplicities {
			for idx, v := range m {
				if v == 0 {
					continue
				}
				counters[col]++
				pairs = append(pairs, uint32(idx), uint32(v))
			}
		}
		packed := append(counters, pairs...)
		c.Transport.SendMultiplicity(owner, packed)
		return
	}
	for i := 0; i < c.NProcesses; i++ {
		if i == owner {
			continue
		}
		packed := c.Transport.ReceiveMultiplicity(i)
		if len(packed) < nCols {
			continue
		}
		counters := packed[:nCols]
		idx := nCols
		for col := 0; col < nCols; col++ {
			for k := 0; k < int(counters[col]); k++ {
				rowIdx := packed[idx]
				v := packed[idx+1]
				multiplicities[col][rowIdx] += uint64(v)
				idx += 2
			}
		}
	}
}
