package token

import "testing"

func TestLookupRoundTrip(t *testing.T) {
	for _, kw := range Keywords {
		got, ok := Lookup(kw.Name)
		if !ok || got.Op != kw.Op || got.Prefix != kw.Prefix {
			t.Errorf("Lookup(%q) = %+v, %v", kw.Name, got, ok)
		}
		if Name(kw.Prefix, kw.Op) != kw.Name {
			t.Errorf("Name(%#x, %#x) = %q, want %q", kw.Prefix, kw.Op, Name(kw.Prefix, kw.Op), kw.Name)
		}
	}
}

func TestDisjointOpcodeSpaces(t *testing.T) {
	// The LEN function and the CLEAR statement share the byte 0x91 but
	// live in different tables.
	if Name(0, Clear) != "CLEAR" {
		t.Errorf("bare 0x91 = %q", Name(0, Clear))
	}
	if Name(PrefixFunc, FuncLen) != "LEN" {
		t.Errorf("0xFF 0x91 = %q", Name(PrefixFunc, FuncLen))
	}
}

func TestLiteralDigits(t *testing.T) {
	for d := 0; d <= 9; d++ {
		got, ok := IsLiteralDigit(LiteralDigitOpcode(d))
		if !ok || got != d {
			t.Errorf("digit %d round trip = %d, %v", d, got, ok)
		}
	}
	if _, ok := IsLiteralDigit(0x1B); ok {
		t.Error("0x1B is not a literal digit")
	}
}

func TestIsStatement(t *testing.T) {
	if !IsStatement(Print) || !IsStatement(Locate) {
		t.Error("statement opcodes not recognized")
	}
	if IsStatement(To) || IsStatement(Plus) {
		t.Error("non-statement opcodes misclassified")
	}
}
