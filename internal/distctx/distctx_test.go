package distctx_test

import (
	"testing"

	"github.com/0xPolygonHermez/zisk-sub004/internal/distctx"
)

// TestOwnershipBijection is scenario F: 7 instances distributed round-robin
// across 2 processes. Every instance must be owned by exactly one rank, and
// the union of each rank's MyInstances must equal the full instance set.
func TestOwnershipBijection(t *testing.T) {
	const nInstances = 7
	const nProcesses = 2

	ctxs := make([]*distctx.Ctx, nProcesses)
	for r := range ctxs {
		ctxs[r] = distctx.NewDistributed(r, nProcesses, distctx.InProcessTransport{})
	}

	for i := 0; i < nInstances; i++ {
		for _, c := range ctxs {
			c.AddInstance(i%3, i%2, 1)
		}
	}
	for _, c := range ctxs {
		c.Close()
	}

	seen := map[int]int{}
	for r, c := range ctxs {
		for _, g := range c.MyInstances {
			seen[g]++
			if c.Owner(g) != r {
				t.Fatalf("rank %d claims instance %d but Owner() says %d", r, g, c.Owner(g))
			}
		}
	}
	if len(seen) != nInstances {
		t.Fatalf("want %d owned instances total, got %d", nInstances, len(seen))
	}
	for g, n := range seen {
		if n != 1 {
			t.Fatalf("instance %d claimed by %d ranks, want exactly 1", g, n)
		}
	}
}

func TestAddInstanceRoundRobin(t *testing.T) {
	c := distctx.NewDistributed(0, 3, distctx.InProcessTransport{})
	wantOwners := []int{0, 1, 2, 0, 1, 2, 0}
	for i, want := range wantOwners {
		isMine, idx := c.AddInstance(0, 0, 1)
		if idx != i {
			t.Fatalf("instance %d got global idx %d", i, idx)
		}
		if (want == 0) != isMine {
			t.Fatalf("instance %d: isMine=%v, want owner %d on rank 0", i, isMine, want)
		}
	}
}

func TestSingleProcessCollectivesAreIdentity(t *testing.T) {
	c := distctx.New()
	c.AddInstance(0, 0, 1)
	c.Close()
	roots := []uint64{1, 2, 3, 4}
	got := c.DistributeRoots(roots)
	if len(got) != 4 || got[0] != 1 {
		t.Fatalf("single-process DistributeRoots should be identity, got %v", got)
	}
	m := []uint64{5, 0, 7}
	c.DistributeMultiplicity(m, 0) // no-op: n_processes == 1
	if m[0] != 5 || m[2] != 7 {
		t.Fatal("single-process DistributeMultiplicity mutated input unexpectedly")
	}
}

// mailbox is a loopback Transport used only to exercise the >1-process wire
// format without a real network; every rank gets its own view sharing the
// same underlying inbox.
type mailbox struct {
	inbox map[int]map[int][]uint32
}

func newMailbox(n int) *mailbox {
	mb := &mailbox{inbox: map[int]map[int][]uint32{}}
	for i := 0; i < n; i++ {
		mb.inbox[i] = map[int][]uint32{}
	}
	return mb
}

type rankTransport struct {
	rank int
	mb   *mailbox
}

func (t *rankTransport) AllGatherRoots(_, _ int, _, _ []int32, myRoots []uint64) []uint64 {
	return myRoots
}
func (t *rankTransport) SendMultiplicity(owner int, packed []uint32) {
	t.mb.inbox[owner][t.rank] = packed
}
func (t *rankTransport) ReceiveMultiplicity(from int) []uint32 {
	return t.mb.inbox[t.rank][from]
}

func TestDistributeMultiplicitySumsNonOwnerContributions(t *testing.T) {
	mb := newMailbox(3)
	owner := distctx.NewDistributed(0, 3, &rankTransport{rank: 0, mb: mb})
	sender1 := distctx.NewDistributed(1, 3, &rankTransport{rank: 1, mb: mb})
	sender2 := distctx.NewDistributed(2, 3, &rankTransport{rank: 2, mb: mb})

	ownerCopy := []uint64{10, 0, 0, 0}
	m1 := []uint64{0, 5, 0, 0}
	m2 := []uint64{0, 0, 0, 3}

	sender1.DistributeMultiplicity(m1, 0)
	sender2.DistributeMultiplicity(m2, 0)
	owner.DistributeMultiplicity(ownerCopy, 0)

	want := []uint64{10, 5, 0, 3}
	for i := range want {
		if ownerCopy[i] != want[i] {
			t.Fatalf("ownerCopy = %v, want %v", ownerCopy, want)
		}
	}
}

func TestDistributeMultiplicitiesMultiColumn(t *testing.T) {
	mb := newMailbox(2)
	owner := distctx.NewDistributed(0, 2, &rankTransport{rank: 0, mb: mb})
	sender := distctx.NewDistributed(1, 2, &rankTransport{rank: 1, mb: mb})

	ownerCols := [][]uint64{{1, 0}, {0, 0}}
	senderCols := [][]uint64{{0, 4}, {2, 0}}

	sender.DistributeMultiplicities(senderCols, 0)
	owner.DistributeMultiplicities(ownerCols, 0)

	if ownerCols[0][0] != 1 || ownerCols[0][1] != 4 {
		t.Fatalf("col0 = %v, want [1 4]", ownerCols[0])
	}
	if ownerCols[1][0] != 2 || ownerCols[1][1] != 0 {
		t.Fatalf("col1 = %v, want [2 0]", ownerCols[1])
	}
}

func TestCloseGroupsSortedByGroupID(t *testing.T) {
	c := distctx.New()
	c.AddInstance(2, 0, 1) // global idx 0, buffer pos 0
	c.AddInstance(0, 0, 1) // global idx 1, buffer pos 4
	c.AddInstance(1, 0, 1) // global idx 2, buffer pos 8
	c.Close()
	if len(c.MyGroups) != 3 {
		t.Fatalf("want 3 groups, got %d", len(c.MyGroups))
	}
	// MyGroups is ordered by ascending group id (0, 1, 2), regardless of the
	// order instances were registered in.
	want := [][]int{{4}, {8}, {0}}
	for i, g := range c.MyGroups {
		if len(g) != 1 || g[0] != want[i][0] {
			t.Fatalf("MyGroups[%d] = %v, want %v", i, g, want[i])
		}
	}
}
