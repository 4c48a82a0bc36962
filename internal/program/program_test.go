package program

import "testing"

func put(p *Program, num uint16) {
	p.Put(num, []byte{0x90, 0})
}

func nums(p *Program) []uint16 {
	var out []uint16
	for _, l := range p.All() {
		out = append(out, l.Num)
	}
	return out
}

func TestPutKeepsOrder(t *testing.T) {
	p := New()
	for _, n := range []uint16{30, 10, 20, 25, 5} {
		put(p, n)
	}
	want := []uint16{5, 10, 20, 25, 30}
	got := nums(p)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPutReplacesSameNumber(t *testing.T) {
	p := New()
	p.Put(10, []byte{0x90, 0})
	p.Put(10, []byte{0x80, 0})
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
	l, _, ok := p.Find(10)
	if !ok || l.Tokens[0] != 0x80 {
		t.Errorf("replacement not stored: %v %v", l, ok)
	}
}

func TestDeleteRange(t *testing.T) {
	p := New()
	for _, n := range []uint16{10, 20, 30, 40, 50} {
		put(p, n)
	}
	p.DeleteRange(20, 40)
	got := nums(p)
	if len(got) != 2 || got[0] != 10 || got[1] != 50 {
		t.Errorf("after DeleteRange: %v", got)
	}
	p.Delete(10)
	if _, _, ok := p.Find(10); ok {
		t.Error("line 10 still present after Delete")
	}
}

func TestFindAndIteration(t *testing.T) {
	p := New()
	put(p, 10)
	put(p, 30)
	if _, _, ok := p.Find(20); ok {
		t.Error("found nonexistent line 20")
	}
	_, idx, ok := p.Find(10)
	if !ok {
		t.Fatal("line 10 missing")
	}
	next, ok := p.At(idx + 1)
	if !ok || next.Num != 30 {
		t.Errorf("At(%d+1) = %v, %v", idx, next, ok)
	}
	first, _ := p.First()
	last, _ := p.Last()
	if first.Num != 10 || last.Num != 30 {
		t.Errorf("First/Last = %d/%d", first.Num, last.Num)
	}
	if got := p.IndexOrAfter(20); got != 1 {
		t.Errorf("IndexOrAfter(20) = %d, want 1", got)
	}
	if got := p.IndexOrAfter(10); got != 0 {
		t.Errorf("IndexOrAfter(10) = %d, want 0", got)
	}
}
