package lexer

import (
	"testing"

	"gwbasic/internal/gwerror"
	"gwbasic/internal/token"
)

func TestCrunchEmbeddedConstantWidths(t *testing.T) {
	tests := []struct {
		src  string
		want []byte
	}{
		{"0", []byte{0x11, 0}},
		{"9", []byte{0x1A, 0}},
		{"10", []byte{0x0F, 10, 0}},
		{"255", []byte{0x0F, 255, 0}},
		{"256", []byte{0x0E, 0x00, 0x01, 0}},
		{"32767", []byte{0x0E, 0xFF, 0x7F, 0}},
	}
	for _, tt := range tests {
		got, err := Crunch(tt.src)
		if err != nil {
			t.Fatalf("Crunch(%q): %v", tt.src, err)
		}
		if string(got) != string(tt.want) {
			t.Errorf("Crunch(%q) = % X, want % X", tt.src, got, tt.want)
		}
	}
}

func TestCrunchNegativeLiteral(t *testing.T) {
	// A sign in operand position folds into a three-byte constant.
	got, err := Crunch("-1")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x0E, 0xFF, 0xFF, 0}
	if string(got) != string(want) {
		t.Errorf("Crunch(-1) = % X, want % X", got, want)
	}

	// After an operand the same character is the subtraction operator.
	got, err = Crunch("A-1")
	if err != nil {
		t.Fatal(err)
	}
	want = []byte{'A', byte(token.Minus), 0x12, 0}
	if string(got) != string(want) {
		t.Errorf("Crunch(A-1) = % X, want % X", got, want)
	}

	// Before ^ the sign stays an operator: -2^2 is -(2^2).
	got, err = Crunch("-2^2")
	if err != nil {
		t.Fatal(err)
	}
	want = []byte{byte(token.Minus), 0x13, byte(token.Pow), 0x13, 0}
	if string(got) != string(want) {
		t.Errorf("Crunch(-2^2) = % X, want % X", got, want)
	}
}

func TestCrunchLineNumberOperands(t *testing.T) {
	// Line-number operands are unsigned two-byte constants even past
	// the int16 range.
	got, err := Crunch("GOTO 40000")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{byte(token.Goto), ' ', 0x0E, 0x40, 0x9C, 0}
	if string(got) != string(want) {
		t.Errorf("Crunch(GOTO 40000) = % X, want % X", got, want)
	}
	if listed := List(got); listed != "GOTO 40000" {
		t.Errorf("List = %q, want %q", listed, "GOTO 40000")
	}
}

func TestCrunchKeywords(t *testing.T) {
	tests := []struct {
		src  string
		want []byte
	}{
		{"PRINT", []byte{byte(token.Print), 0}},
		{"print", []byte{byte(token.Print), 0}},
		{"?", []byte{byte(token.Print), 0}},
		{"END", []byte{byte(token.End), 0}},
		{"LEN", []byte{byte(token.PrefixFunc), byte(token.FuncLen), 0}},
		{"FIELD", []byte{byte(token.PrefixExtStmt), byte(token.XStmtField), 0}},
		{"CVI", []byte{byte(token.PrefixExtFunc), byte(token.XFuncCvi), 0}},
	}
	for _, tt := range tests {
		got, err := Crunch(tt.src)
		if err != nil {
			t.Fatalf("Crunch(%q): %v", tt.src, err)
		}
		if string(got) != string(tt.want) {
			t.Errorf("Crunch(%q) = % X, want % X", tt.src, got, tt.want)
		}
	}
}

func TestCrunchKeywordBoundary(t *testing.T) {
	// An alphanumeric run that extends past a keyword is a variable
	// name, not keyword + tail.
	got, err := Crunch("FORI")
	if err != nil {
		t.Fatal(err)
	}
	want := "FORI\x00"
	if string(got) != want {
		t.Errorf("Crunch(FORI) = %q, want %q", got, want)
	}
}

func TestCrunchRadixConstants(t *testing.T) {
	tests := []struct {
		src  string
		want int16
	}{
		{"&HFF", 255},
		{"&H7FFF", 32767},
		{"&HFFFF", -1},
		{"&O777", 511},
	}
	for _, tt := range tests {
		got, err := Crunch(tt.src)
		if err != nil {
			t.Fatalf("Crunch(%q): %v", tt.src, err)
		}
		var n int16
		switch token.Opcode(got[0]) {
		case token.ConstInt1:
			n = int16(got[1])
		case token.ConstInt2:
			n = int16(uint16(got[1]) | uint16(got[2])<<8)
		default:
			if d, ok := token.IsLiteralDigit(token.Opcode(got[0])); ok {
				n = int16(d)
			} else {
				t.Fatalf("Crunch(%q) = % X: not an int constant", tt.src, got)
			}
		}
		if n != tt.want {
			t.Errorf("Crunch(%q) = %d, want %d", tt.src, n, tt.want)
		}
	}
}

func TestCrunchRemAndDataLiteral(t *testing.T) {
	got, err := Crunch("REM PRINT 123")
	if err != nil {
		t.Fatal(err)
	}
	want := string([]byte{byte(token.Rem)}) + " PRINT 123\x00"
	if string(got) != want {
		t.Errorf("REM body was tokenized: % X", got)
	}

	got, err = Crunch("DATA 1,hi:PRINT")
	if err != nil {
		t.Fatal(err)
	}
	want = string([]byte{byte(token.Data)}) + " 1,hi" +
		string([]byte{byte(token.Colon), byte(token.Print)}) + "\x00"
	if string(got) != want {
		t.Errorf("DATA tail wrong: % X", got)
	}
}

func TestCrunchLineBufferOverflow(t *testing.T) {
	long := make([]byte, MaxLineLen+1)
	for i := range long {
		long[i] = 'A'
	}
	_, err := Crunch(string(long))
	ge, ok := gwerror.As(err)
	if !ok || ge.Code != gwerror.LineBufferOverflow {
		t.Fatalf("want Line buffer overflow, got %v", err)
	}
}

func TestListKeywordSpacing(t *testing.T) {
	// A keyword preceded by an alphanumeric gains a leading space, and
	// an alphabetic keyword gains a trailing one.
	toks := []byte{0x12, byte(token.Print), 0x13, 0}
	if got := List(toks); got != "1 PRINT 2" {
		t.Errorf("List = %q, want %q", got, "1 PRINT 2")
	}
}

func TestCrunchListRoundTrip(t *testing.T) {
	lines := []string{
		`PRINT "HELLO"`,
		"FOR I=1 TO 10 STEP 2:PRINT I:NEXT I",
		"IF X>3.5 THEN GOTO 100 ELSE GOSUB 200",
		"A$=LEFT$(B$,3)+MID$(C$,2,1)",
		"DATA 1,2,three",
		"X#=1.5D+10:Y!=2.5:Z%=7",
		"WHILE A<>0:WEND",
		"ON ERROR GOTO 500",
	}
	for _, src := range lines {
		toks, err := Crunch(src)
		if err != nil {
			t.Fatalf("Crunch(%q): %v", src, err)
		}
		listed := List(toks)
		toks2, err := Crunch(listed)
		if err != nil {
			t.Fatalf("Crunch(List(%q)) = %q: %v", src, listed, err)
		}
		if List(toks2) != listed {
			t.Errorf("round trip unstable for %q:\n first %q\nsecond %q", src, listed, List(toks2))
		}
	}
}
