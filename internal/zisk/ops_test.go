package zisk

import "testing"

func TestCatalogBijection(t *testing.T) {
	for _, op := range All() {
		got, err := ByCode(op.Code)
		if err != nil {
			t.Fatalf("ByCode(%#x) error: %v", op.Code, err)
		}
		if got.Code != op.Code {
			t.Errorf("ByCode(%#x).Code = %#x, want %#x", op.Code, got.Code, op.Code)
		}
		byn, err := ByName(op.Name)
		if err != nil {
			t.Fatalf("ByName(%q) error: %v", op.Name, err)
		}
		if byn.Code != op.Code {
			t.Errorf("ByName(%q).Code = %#x, want %#x", op.Name, byn.Code, op.Code)
		}
	}
}

func TestUnknownCode(t *testing.T) {
	if _, err := ByCode(0xfe); err == nil {
		t.Fatal("expected error for unknown code")
	}
}

func TestDivuByZero(t *testing.T) {
	c, flag, err := Execute(CodeDivu, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c != 0xFFFFFFFFFFFFFFFF || !flag {
		t.Errorf("divu(10,0) = (%#x,%v), want (MAX,true)", c, flag)
	}
}

func TestAdd(t *testing.T) {
	c, flag, err := Execute(CodeAdd, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if c != 5 || flag {
		t.Errorf("add(2,3) = (%d,%v), want (5,false)", c, flag)
	}
}

func TestLtu(t *testing.T) {
	c, flag, err := Execute(CodeLtu, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if c != 1 || !flag {
		t.Errorf("ltu(1,2) = (%d,%v), want (1,true)", c, flag)
	}
}

func TestSignExtendB(t *testing.T) {
	c, _, err := Execute(CodeSignExtendB, 0, 0xff)
	if err != nil {
		t.Fatal(err)
	}
	if c != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("signextend_b(0xff) = %#x, want all-ones", c)
	}
}

func TestCatalogSize(t *testing.T) {
	if len(All()) < 50 {
		t.Errorf("catalog has %d entries, want >= 50", len(All()))
	}
}
