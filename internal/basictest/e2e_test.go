package basictest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForNextLoop(t *testing.T) {
	out := Run(
		"10 FOR I=1 TO 3",
		"20 PRINT I;",
		"30 NEXT",
		"RUN",
	)
	assert.Equal(t, " 1  2  3 ", out)
}

func TestOverflowDirect(t *testing.T) {
	out := Run("PRINT 32767+1")
	assert.Equal(t, "Overflow\n", out)
}

func TestIntegerDivideModAndDivide(t *testing.T) {
	out := Run(
		"10 A=10: B=3: PRINT A\\B, A MOD B, A/B",
		"RUN",
	)
	assert.Equal(t, " 3             1             3.333333 \n", out)
}

func TestOnErrorResumeNext(t *testing.T) {
	out := Run(
		"10 ON ERROR GOTO 100",
		"20 PRINT 1/0",
		"30 END",
		`100 PRINT "GOT";ERR: RESUME NEXT`,
		"RUN",
	)
	assert.Equal(t, "GOT 11 \n", out)
}

func TestReadData(t *testing.T) {
	out := Run(
		`10 DATA 1,"hi",3`,
		"20 READ A,B$,C: PRINT A;B$;C",
		"RUN",
	)
	assert.Equal(t, " 1 hi 3 \n", out)
}

func TestIfElse(t *testing.T) {
	out := Run(
		`10 IF 0 THEN PRINT "Y" ELSE PRINT "N"`,
		"RUN",
	)
	assert.Equal(t, "N\n", out)
}

func TestDefFn(t *testing.T) {
	out := Run(
		"10 DEF FN F(X) = X*X+1",
		"20 PRINT FN F(4)",
		"RUN",
	)
	assert.Equal(t, " 17 \n", out)
}

func TestForNextZeroTrip(t *testing.T) {
	out := Run(
		"10 FOR I=1 TO 0",
		`20 PRINT "X";`,
		"30 NEXT",
		"RUN",
	)
	assert.Equal(t, "", out, "default step must not enter the body")

	out = Run(
		"10 FOR I=1 TO 0 STEP -1",
		"20 PRINT I;",
		"30 NEXT",
		"RUN",
	)
	assert.Equal(t, " 1  0 ", out, "negative step runs I=1 and I=0")
}

func TestTypeSuffixCoexistence(t *testing.T) {
	out := Run(
		"10 A%=1: A!=2.5",
		"20 PRINT A%;A!",
		"RUN",
	)
	assert.Equal(t, " 1  2.5 \n", out)
}

func TestResumeRetriesFailingStatement(t *testing.T) {
	out := Run(
		"10 ON ERROR GOTO 100",
		"20 PRINT 1\\N",
		"30 END",
		"100 N=2: RESUME",
		"RUN",
	)
	// First pass divides by unset N (0) and traps; the handler sets N
	// and RESUME re-executes line 20 exactly.
	assert.Equal(t, " 0 \n", out)
}

func TestResumeLine(t *testing.T) {
	out := Run(
		"10 ON ERROR GOTO 100",
		"20 ERROR 5",
		`30 PRINT "AFTER": END`,
		"100 RESUME 30",
		"RUN",
	)
	assert.Equal(t, "AFTER\n", out)
}

func TestErrAndErl(t *testing.T) {
	out := Run(
		"10 ON ERROR GOTO 100",
		"20 ERROR 11",
		"30 END",
		"100 PRINT ERR;ERL: RESUME NEXT",
		"RUN",
	)
	assert.Equal(t, " 11  20 \n", out)
}

func TestResumeWithoutError(t *testing.T) {
	out := Run("RESUME")
	assert.Equal(t, "RESUME without error\n", out)
}

func TestDataRestore(t *testing.T) {
	out := Run(
		"10 DATA 1,2",
		"20 DATA 3",
		"30 READ A,B,C: PRINT A;B;C",
		"40 RESTORE 20: READ D: PRINT D",
		"RUN",
	)
	assert.Equal(t, " 1  2  3 \n 3 \n", out)
}

func TestOutOfData(t *testing.T) {
	out := Run(
		"10 DATA 1",
		"20 READ A,B",
		"RUN",
	)
	assert.Equal(t, "Out of DATA in 20\n", out)
}

func TestWhileWend(t *testing.T) {
	out := Run(
		"10 I=0",
		"20 WHILE I<3",
		"30 I=I+1: PRINT I;",
		"40 WEND",
		"RUN",
	)
	assert.Equal(t, " 1  2  3 ", out)
}

func TestWhileFalseSkipsBody(t *testing.T) {
	out := Run(
		"10 WHILE 0",
		`20 PRINT "X"`,
		"30 WEND",
		`40 PRINT "DONE"`,
		"RUN",
	)
	assert.Equal(t, "DONE\n", out)
}

func TestGosubReturn(t *testing.T) {
	out := Run(
		"10 GOSUB 100",
		`20 PRINT "BACK": END`,
		`100 PRINT "SUB": RETURN`,
		"RUN",
	)
	assert.Equal(t, "SUB\nBACK\n", out)
}

func TestOnGotoComputed(t *testing.T) {
	out := Run(
		"10 N=2",
		"20 ON N GOTO 100,200,300",
		`30 PRINT "FELL": END`,
		`100 PRINT "ONE": END`,
		`200 PRINT "TWO": END`,
		`300 PRINT "THREE": END`,
		"RUN",
	)
	assert.Equal(t, "TWO\n", out)
}

func TestOnGotoOutOfRangeFallsThrough(t *testing.T) {
	out := Run(
		"10 ON 0 GOTO 100",
		`20 PRINT "FELL": END`,
		`100 PRINT "NO": END`,
		"RUN",
	)
	assert.Equal(t, "FELL\n", out)
}

func TestStringOps(t *testing.T) {
	out := Run(
		`10 A$="HELLO"`,
		`20 PRINT LEFT$(A$,2);MID$(A$,2,3);RIGHT$(A$,2);LEN(A$)`,
		"RUN",
	)
	assert.Equal(t, "HEELLLO 5 \n", out)
}

func TestMidAssignment(t *testing.T) {
	out := Run(
		`10 A$="ABCDEF"`,
		`20 MID$(A$,3,2)="xy"`,
		"30 PRINT A$",
		"RUN",
	)
	assert.Equal(t, "ABxyEF\n", out)
}

func TestStringRelationalCompare(t *testing.T) {
	out := Run(`PRINT ("A"<"B");("A"="A");("B"<"A")`)
	assert.Equal(t, "-1 -1  0 \n", out)
}

func TestTypeMismatch(t *testing.T) {
	out := Run(`PRINT "A"+1`)
	assert.Equal(t, "Type mismatch\n", out)
}

func TestDimAndSubscript(t *testing.T) {
	out := Run(
		"10 DIM A(3)",
		"20 A(3)=7: PRINT A(3)",
		"30 A(4)=1",
		"RUN",
	)
	assert.Equal(t, " 7 \nSubscript out of range in 30\n", out)
}

func TestImplicitArrayAndOptionBase(t *testing.T) {
	out := Run(
		"10 B(10)=5: PRINT B(10)",
		"RUN",
	)
	assert.Equal(t, " 5 \n", out)

	out = Run(
		"10 OPTION BASE 1",
		"20 DIM A(2)",
		"30 A(0)=1",
		"RUN",
	)
	assert.Equal(t, "Subscript out of range in 30\n", out)
}

func TestDuplicateDefinition(t *testing.T) {
	out := Run(
		"10 DIM A(3)",
		"20 DIM A(3)",
		"RUN",
	)
	assert.Equal(t, "Duplicate Definition in 20\n", out)
}

func TestEraseAllowsRedim(t *testing.T) {
	out := Run(
		"10 DIM A(3)",
		"20 ERASE A",
		"30 DIM A(5): A(5)=2: PRINT A(5)",
		"RUN",
	)
	assert.Equal(t, " 2 \n", out)
}

func TestGotoUndefinedLine(t *testing.T) {
	out := Run("10 GOTO 999", "RUN")
	assert.Equal(t, "Undefined line number in 10\n", out)
}

func TestNextWithoutFor(t *testing.T) {
	out := Run("NEXT")
	assert.Equal(t, "NEXT without FOR\n", out)
}

func TestReturnWithoutGosub(t *testing.T) {
	out := Run("RETURN")
	assert.Equal(t, "RETURN without GOSUB\n", out)
}

func TestNestedForLoops(t *testing.T) {
	out := Run(
		"10 FOR I=1 TO 2: FOR J=1 TO 2",
		"20 PRINT I*10+J;",
		"30 NEXT J,I",
		"RUN",
	)
	assert.Equal(t, " 11  12  21  22 ", out)
}

func TestForReuseSameVariablePopsOldFrame(t *testing.T) {
	out := Run(
		"10 FOR I=1 TO 100",
		"20 FOR I=1 TO 2: PRINT I;: NEXT",
		`30 PRINT "END"`,
		"RUN",
	)
	assert.Equal(t, " 1  2 END\n", out)
}

func TestStopAndCont(t *testing.T) {
	h := New()
	h.Feed(
		"10 A=5: STOP",
		"20 PRINT A",
		"RUN",
	)
	require.Equal(t, "Break in 10\n", h.Output())
	h.Feed("CONT")
	assert.Equal(t, "Break in 10\n 5 \n", h.Output())
}

func TestCantContinue(t *testing.T) {
	out := Run("CONT")
	assert.Equal(t, "Can't continue\n", out)
}

func TestContInvalidatedByEdit(t *testing.T) {
	h := New()
	h.Feed("10 STOP", "20 PRINT 1", "RUN")
	h.Feed("15 REM edit", "CONT")
	assert.Equal(t, "Break in 10\nCan't continue\n", h.Output())
}

func TestNewClearsEverything(t *testing.T) {
	h := New()
	h.Feed("10 A=1", "RUN", "NEW", "PRINT A", "LIST")
	assert.Equal(t, " 0 \n", h.Output(), "NEW must clear variables and program")
}

func TestClearKeepsProgram(t *testing.T) {
	h := New()
	h.Feed("10 PRINT A", "RUN", "A=9", "CLEAR", "RUN")
	assert.Equal(t, " 0 \n 0 \n", h.Output())
}

func TestListRange(t *testing.T) {
	h := New()
	h.Feed("10 PRINT 1", "20 PRINT 2", "30 PRINT 3", "LIST 20-30")
	assert.Equal(t, "20 PRINT 2\n30 PRINT 3\n", h.Output())
}

func TestDeleteStatement(t *testing.T) {
	h := New()
	h.Feed("10 PRINT 1", "20 PRINT 2", "DELETE 10", "LIST")
	assert.Equal(t, "20 PRINT 2\n", h.Output())
}

func TestLineEditReplaceAndDelete(t *testing.T) {
	h := New()
	h.Feed("10 PRINT 1", "10 PRINT 9", "20 PRINT 2", "20", "LIST")
	assert.Equal(t, "10 PRINT 9\n", h.Output())
}

func TestPrintZones(t *testing.T) {
	out := Run("PRINT 1,2")
	assert.Equal(t, " 1             2 \n", out)
}

func TestPrintTabAndSpc(t *testing.T) {
	out := Run(`PRINT TAB(4);"Y"`)
	assert.Equal(t, "   Y\n", out)

	out = Run(`PRINT "A";SPC(3);"B"`)
	assert.Equal(t, "A   B\n", out)

	// TAB measures from the terminal's running column, so a preceding
	// newline-suppressed PRINT counts toward it.
	out = Run(`PRINT "AB";:PRINT TAB(5);"X"`)
	assert.Equal(t, "AB  X\n", out)
}

func TestPrintUsing(t *testing.T) {
	out := Run(`PRINT USING "##.## "; 3.456; 12.3`)
	assert.Equal(t, " 3.46 12.30 \n", out)
}

func TestSwap(t *testing.T) {
	out := Run(
		"10 A=1: B=2: SWAP A,B",
		"20 PRINT A;B",
		"RUN",
	)
	assert.Equal(t, " 2  1 \n", out)
}

func TestDefIntChangesDefaultType(t *testing.T) {
	out := Run(
		"10 DEFINT I-K",
		"20 I=2.7: PRINT I",
		"RUN",
	)
	assert.Equal(t, " 3 \n", out)
}

func TestInputConsole(t *testing.T) {
	h := New("42")
	h.Feed("10 INPUT A", "20 PRINT A*2", "RUN")
	assert.Equal(t, "?  84 \n", h.Output())
}

func TestIfBareLineNumberIsGoto(t *testing.T) {
	out := Run(
		"10 IF 1 THEN 100",
		`20 PRINT "NO": END`,
		`100 PRINT "YES"`,
		"RUN",
	)
	assert.Equal(t, "YES\n", out)
}

func TestMultiStatementLineWithColon(t *testing.T) {
	out := Run(`PRINT 1;: PRINT 2`)
	assert.Equal(t, " 1  2 \n", out)
}

func TestExpressionPrecedence(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2+3*4", " 14 \n"},
		{"2^3^2", " 64 \n"},
		{"-2^2", "-4 \n"},
		{"NOT 1+1", "-3 \n"},
		{"7\\2;7 MOD 2", " 3  1 \n"},
		{"1>0 AND 2>1", "-1 \n"},
		{"5 XOR 3;5 EQV 3;5 IMP 3", " 6 -7 -5 \n"},
		{"(1+2)*3", " 9 \n"},
		{"1<=2;2>=3;1<>2", "-1  0 -1 \n"},
	}
	for _, tt := range tests {
		out := Run("PRINT " + tt.expr)
		assert.Equal(t, tt.want, out, "PRINT %s", tt.expr)
	}
}

func TestBuiltinFunctions(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"ABS(-3);SGN(-9);SGN(0)", " 3 -1  0 \n"},
		{"INT(2.7);INT(-2.7);FIX(-2.7)", " 2 -3 -2 \n"},
		{"SQR(16)", " 4 \n"},
		{"CHR$(65);ASC(\"A\")", "A 65 \n"},
		{"STR$(5);VAL(\"12AB\")", " 5 12 \n"},
		{"HEX$(255);OCT$(8)", "FF10\n"},
		{"INSTR(\"HELLO\",\"LL\")", " 3 \n"},
		{"STRING$(3,42)", "***\n"},
		{"SPACE$(2);\"X\"", "  X\n"},
		{"CINT(2.5);CINT(3.5)", " 2  4 \n"},
	}
	for _, tt := range tests {
		out := Run("PRINT " + tt.expr)
		assert.Equal(t, tt.want, out, "PRINT %s", tt.expr)
	}
}

func TestChainPreservesCommonVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part2.bas")
	require.NoError(t, os.WriteFile(path, []byte("10 PRINT A;B\n"), 0o644))
	out := Run(
		"10 COMMON A",
		"20 A=7: B=9",
		`30 CHAIN "`+path+`"`,
		"RUN",
	)
	assert.Equal(t, " 7  0 \n", out)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.bas")
	h := New()
	h.Feed("10 PRINT 1+2", `SAVE "`+path+`"`)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "10 PRINT 1+2\n", string(data))

	h2 := New()
	h2.Feed(`LOAD "`+path+`"`, "RUN")
	assert.Equal(t, " 3 \n", h2.Output())
}
