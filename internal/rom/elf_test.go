package rom

import "testing"

func sec(addr uint64, data ...byte) DataSection { return DataSection{Addr: addr, Data: data} }

func TestMergeAdjacentEmpty(t *testing.T) {
	if got := MergeAdjacent(nil); got != nil {
		t.Errorf("MergeAdjacent(nil) = %v, want nil", got)
	}
}

func TestMergeAdjacentSingle(t *testing.T) {
	in := []DataSection{sec(0x1000, 1, 2, 3, 4)}
	out := MergeAdjacent(in)
	if len(out) != 1 || out[0].Addr != 0x1000 || len(out[0].Data) != 4 {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestMergeAdjacentTwoAdjacent(t *testing.T) {
	in := []DataSection{sec(0x1000, 1, 2, 3, 4), sec(0x1004, 5, 6, 7, 8)}
	out := MergeAdjacent(in)
	if len(out) != 1 {
		t.Fatalf("want 1 merged section, got %d", len(out))
	}
	if out[0].Addr != 0x1000 || len(out[0].Data) != 8 {
		t.Errorf("unexpected merge: %+v", out[0])
	}
	for i, want := range []byte{1, 2, 3, 4, 5, 6, 7, 8} {
		if out[0].Data[i] != want {
			t.Errorf("byte %d = %d, want %d", i, out[0].Data[i], want)
		}
	}
}

func TestMergeAdjacentTwoNonAdjacent(t *testing.T) {
	in := []DataSection{sec(0x1000, 1, 2, 3, 4), sec(0x2000, 5, 6, 7, 8)}
	out := MergeAdjacent(in)
	if len(out) != 2 {
		t.Fatalf("want 2 sections, got %d", len(out))
	}
}

func TestMergeAdjacentThreeAdjacent(t *testing.T) {
	in := []DataSection{sec(0x1000, 1, 2), sec(0x1002, 3, 4), sec(0x1004, 5, 6)}
	out := MergeAdjacent(in)
	if len(out) != 1 || len(out[0].Data) != 6 {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestMergeAdjacentOutOfOrder(t *testing.T) {
	in := []DataSection{sec(0x1004, 5, 6, 7, 8), sec(0x1000, 1, 2, 3, 4)}
	out := MergeAdjacent(in)
	if len(out) != 1 || out[0].Addr != 0x1000 {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestMergeAdjacentMixedGaps(t *testing.T) {
	in := []DataSection{
		sec(0x1000, 1, 2), sec(0x1002, 3, 4),
		sec(0x2000, 5, 6), sec(0x2002, 7, 8),
		sec(0x3000, 9, 10),
	}
	out := MergeAdjacent(in)
	if len(out) != 3 {
		t.Fatalf("want 3 groups, got %d: %+v", len(out), out)
	}
	if out[0].Addr != 0x1000 || out[1].Addr != 0x2000 || out[2].Addr != 0x3000 {
		t.Errorf("unexpected group addresses: %+v", out)
	}
}

func TestMergeAdjacentOneByteGapNoMerge(t *testing.T) {
	in := []DataSection{sec(0x1000, 1, 2, 3, 4), sec(0x1005, 5, 6, 7, 8)}
	out := MergeAdjacent(in)
	if len(out) != 2 {
		t.Fatalf("want 2 sections (no merge across gap), got %d", len(out))
	}
}

func TestMergeAdjacentOverlapNoMerge(t *testing.T) {
	// Documents behavior for a case that should not occur in well-formed ELFs.
	in := []DataSection{sec(0x1000, 1, 2, 3, 4), sec(0x1003, 5, 6, 7, 8)}
	out := MergeAdjacent(in)
	if len(out) != 2 {
		t.Fatalf("want 2 sections (overlap is not a merge), got %d", len(out))
	}
}
