package value

import (
	"math"
	"testing"

	"gwbasic/internal/gwerror"
)

func TestIntArithmeticTrapsOverflow(t *testing.T) {
	tests := []struct {
		name string
		op   func() (int16, error)
		want int16
		trap bool
	}{
		{"add", func() (int16, error) { return IntAdd(32767, 1) }, 0, true},
		{"add ok", func() (int16, error) { return IntAdd(32766, 1) }, 32767, false},
		{"sub", func() (int16, error) { return IntSub(-32768, 1) }, 0, true},
		{"mul", func() (int16, error) { return IntMul(256, 128) }, 0, true},
		{"mul ok", func() (int16, error) { return IntMul(181, 181) }, 32761, false},
		{"neg", func() (int16, error) { return IntNeg(-32768) }, 0, true},
		{"mod", func() (int16, error) { return IntMod(10, 3) }, 1, false},
	}
	for _, tt := range tests {
		got, err := tt.op()
		if tt.trap {
			ge, ok := gwerror.As(err)
			if !ok || ge.Code != gwerror.Overflow {
				t.Errorf("%s: want Overflow, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestIntDivByZero(t *testing.T) {
	_, err := IntMod(1, 0)
	ge, ok := gwerror.As(err)
	if !ok || ge.Code != gwerror.DivisionByZero {
		t.Fatalf("want Division by zero, got %v", err)
	}
}

func TestCIntBankersRounding(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0.5, 0},
		{1.5, 2},
		{2.5, 2},
		{3.5, 4},
		{-0.5, 0},
		{-1.5, -2},
		{2.4, 2},
		{2.6, 3},
	}
	for _, tt := range tests {
		got, err := CInt(tt.in)
		if err != nil {
			t.Fatalf("CInt(%v): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("CInt(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if _, err := CInt(32767.6); err == nil {
		t.Error("CInt(32767.6): want Overflow")
	}
	if _, err := CInt(-32768.6); err == nil {
		t.Error("CInt(-32768.6): want Overflow")
	}
}

func TestPromote(t *testing.T) {
	a, b, err := Promote(IntVal(1), DblVal(2))
	if err != nil {
		t.Fatal(err)
	}
	if a.Typ != Dbl || b.Typ != Dbl {
		t.Errorf("Promote(int, dbl) types = %v, %v", a.Typ, b.Typ)
	}
	if _, _, err := Promote(IntVal(1), StrValString("x")); err == nil {
		t.Error("Promote(int, str): want Type mismatch")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{IntVal(1), " 1"},
		{IntVal(-1), "-1"},
		{IntVal(32767), " 32767"},
		{SngVal(0), " 0"},
		{SngVal(3.333333), " 3.333333"},
		{SngVal(-2.5), "-2.5"},
		{DblVal(0.25), " .25"},
		{SngVal(1e10), " 1E+10"},
		{StrValString("hi"), "hi"},
	}
	for _, tt := range tests {
		if got := Format(tt.v); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestCloneCopiesStringBytes(t *testing.T) {
	orig := StrValString("abc")
	cl := orig.Clone()
	cl.Str[0] = 'x'
	if string(orig.Str) != "abc" {
		t.Error("Clone aliased the source buffer")
	}
}

func TestStringTooLong(t *testing.T) {
	_, err := StrVal(make([]byte, 256))
	ge, ok := gwerror.As(err)
	if !ok || ge.Code != gwerror.StringTooLong {
		t.Fatalf("want String too long, got %v", err)
	}
}

func TestMBFSingleRoundTrip(t *testing.T) {
	for _, f := range []float32{0, 1, -1, 0.5, 3.14159, 100, -12345.5} {
		got := MBFSingleToIEEE(IEEESingleToMBF(f))
		if got != f {
			t.Errorf("MBF single round trip %v -> %v", f, got)
		}
	}
}

func TestMBFDoubleRoundTrip(t *testing.T) {
	for _, d := range []float64{0, 1, -1, 0.5, math.Pi, 1e10, -2.25} {
		got := MBFDoubleToIEEE(IEEEDoubleToMBF(d))
		if math.Abs(got-d) > math.Abs(d)*1e-15 {
			t.Errorf("MBF double round trip %v -> %v", d, got)
		}
	}
}

func TestFPowDomain(t *testing.T) {
	if _, err := FPow(0, -1); err == nil {
		t.Error("0^-1: want Division by zero")
	}
	if _, err := FPow(-2, 0.5); err == nil {
		t.Error("-2^0.5: want Illegal function call")
	}
	got, err := FPow(-2, 3)
	if err != nil || got != -8 {
		t.Errorf("-2^3 = %v, %v", got, err)
	}
}
