package eval

import (
	"math"
	"math/rand"
	"strconv"
	"strings"

	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/token"
	"gwbasic/internal/value"
)

// dispatchFunc evaluates one of the built-in functions behind the
// PrefixFunc (0xFF) table.
func dispatchFunc(s *interp.State, cur *interp.Cursor, fn token.Opcode) (value.Value, error) {
	switch fn {
	case token.FuncLeft:
		return strFunc2(s, cur, func(str string, n int16) (value.Value, error) {
			if n < 0 {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			if int(n) > len(str) {
				n = int16(len(str))
			}
			return value.StrValString(str[:n]), nil
		})
	case token.FuncRight:
		return strFunc2(s, cur, func(str string, n int16) (value.Value, error) {
			if n < 0 {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			if int(n) > len(str) {
				n = int16(len(str))
			}
			return value.StrValString(str[len(str)-int(n):]), nil
		})
	case token.FuncMid:
		return midFunc(s, cur)
	case token.FuncSgn:
		return numFunc1(s, cur, func(d float64) (value.Value, error) {
			switch {
			case d > 0:
				return value.IntVal(1), nil
			case d < 0:
				return value.IntVal(-1), nil
			default:
				return value.IntVal(0), nil
			}
		})
	case token.FuncInt:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.DblVal(math.Floor(d)), nil })
	case token.FuncFix:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.DblVal(math.Trunc(d)), nil })
	case token.FuncAbs:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.DblVal(math.Abs(d)), nil })
	case token.FuncSqr:
		return numFunc1(s, cur, func(d float64) (value.Value, error) {
			if d < 0 {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			return value.DblVal(math.Sqrt(d)), nil
		})
	case token.FuncSin:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.DblVal(math.Sin(d)), nil })
	case token.FuncCos:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.DblVal(math.Cos(d)), nil })
	case token.FuncTan:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.DblVal(math.Tan(d)), nil })
	case token.FuncAtn:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.DblVal(math.Atan(d)), nil })
	case token.FuncLog:
		return numFunc1(s, cur, func(d float64) (value.Value, error) {
			if d <= 0 {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			return value.DblVal(math.Log(d)), nil
		})
	case token.FuncExp:
		return numFunc1(s, cur, func(d float64) (value.Value, error) {
			r := math.Exp(d)
			if math.IsInf(r, 0) {
				return value.Value{}, gwerror.New(gwerror.Overflow)
			}
			return value.DblVal(r), nil
		})
	case token.FuncRnd:
		return rndFunc(s, cur)
	case token.FuncFre:
		// FRE exceeds the 16-bit range on any machine worth having, so
		// it answers as a single.
		_, _ = parseArgList(s, cur)
		return value.SngVal(float32(s.Host.FreeMemory())), nil
	case token.FuncInp:
		return intFunc1(s, cur, func(n int16) (value.Value, error) { return value.IntVal(s.Host.Inp(int(n))), nil })
	case token.FuncPos:
		return intFunc1(s, cur, func(n int16) (value.Value, error) { return value.IntVal(s.Host.Pos(int(n))), nil })
	case token.FuncLpos:
		return intFunc1(s, cur, func(n int16) (value.Value, error) { return value.IntVal(s.Host.Lpos(int(n))), nil })
	case token.FuncPeek:
		return intFunc1(s, cur, func(n int16) (value.Value, error) { return value.IntVal(s.Host.Peek(int(n))), nil })
	case token.FuncPen:
		return intFunc1(s, cur, func(n int16) (value.Value, error) { return value.IntVal(s.Host.Pen(int(n))), nil })
	case token.FuncStick:
		return intFunc1(s, cur, func(n int16) (value.Value, error) { return value.IntVal(s.Host.Stick(int(n))), nil })
	case token.FuncStrig:
		return intFunc1(s, cur, func(n int16) (value.Value, error) { return value.IntVal(s.Host.Strig(int(n))), nil })
	case token.FuncLen:
		return strArg(s, cur, func(str string) (value.Value, error) { return value.IntVal(int16(len(str))), nil })
	case token.FuncStr:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.StrValString(formatStrDollar(d)), nil })
	case token.FuncVal:
		return strArg(s, cur, func(str string) (value.Value, error) { return valFunc(str) })
	case token.FuncAsc:
		return strArg(s, cur, func(str string) (value.Value, error) {
			if str == "" {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			return value.IntVal(int16(str[0])), nil
		})
	case token.FuncChr:
		return intFunc1(s, cur, func(n int16) (value.Value, error) {
			if n < 0 || n > 255 {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			return value.StrValString(string([]byte{byte(n)})), nil
		})
	case token.FuncSpace:
		return intFunc1(s, cur, func(n int16) (value.Value, error) {
			if n < 0 {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			return value.StrValString(strings.Repeat(" ", int(n))), nil
		})
	case token.FuncOct:
		return intFunc1(s, cur, func(n int16) (value.Value, error) {
			return value.StrValString(strconv.FormatUint(uint64(uint16(n)), 8)), nil
		})
	case token.FuncHex:
		return intFunc1(s, cur, func(n int16) (value.Value, error) {
			return value.StrValString(strings.ToUpper(strconv.FormatUint(uint64(uint16(n)), 16))), nil
		})
	case token.FuncCint:
		return numFunc1(s, cur, func(d float64) (value.Value, error) {
			n, err := value.CInt(d)
			if err != nil {
				return value.Value{}, err
			}
			return value.IntVal(n), nil
		})
	case token.FuncCsng:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.CSngOrErr(d) })
	case token.FuncCdbl:
		return numFunc1(s, cur, func(d float64) (value.Value, error) { return value.DblVal(d), nil })
	case token.FuncEof:
		return intFunc1(s, cur, func(n int16) (value.Value, error) {
			eof, err := s.IO.Eof(int(n))
			if err != nil {
				return value.Value{}, err
			}
			if eof {
				return value.IntVal(-1), nil
			}
			return value.IntVal(0), nil
		})
	case token.FuncLoc:
		return intFunc1(s, cur, func(n int16) (value.Value, error) {
			loc, err := s.IO.Loc(int(n))
			if err != nil {
				return value.Value{}, err
			}
			return value.DblVal(float64(loc)), nil
		})
	case token.FuncLof:
		return intFunc1(s, cur, func(n int16) (value.Value, error) {
			lof, err := s.IO.Lof(int(n))
			if err != nil {
				return value.Value{}, err
			}
			return value.DblVal(float64(lof)), nil
		})
	case token.FuncInputStr:
		return inputStrFunc(s, cur)
	}
	return value.Value{}, gwerror.New(gwerror.SyntaxError)
}

// dispatchExtFunc evaluates CVI/CVS/CVD/MKI$/MKS$/MKD$ — MBF<->IEEE
// conversions for random-file numeric fields.
func dispatchExtFunc(s *interp.State, cur *interp.Cursor, fn token.Opcode) (value.Value, error) {
	switch fn {
	case token.XFuncCvi:
		return strArg(s, cur, func(str string) (value.Value, error) {
			if len(str) < 2 {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			return value.IntVal(int16(uint16(str[0]) | uint16(str[1])<<8)), nil
		})
	case token.XFuncCvs:
		return strArg(s, cur, func(str string) (value.Value, error) {
			if len(str) < 4 {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			var mbf [4]byte
			copy(mbf[:], str)
			return value.SngVal(value.MBFSingleToIEEE(mbf)), nil
		})
	case token.XFuncCvd:
		return strArg(s, cur, func(str string) (value.Value, error) {
			if len(str) < 8 {
				return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
			}
			var mbf [8]byte
			copy(mbf[:], str)
			return value.DblVal(value.MBFDoubleToIEEE(mbf)), nil
		})
	case token.XFuncMki:
		return intFunc1(s, cur, func(n int16) (value.Value, error) {
			u := uint16(n)
			return value.StrValString(string([]byte{byte(u), byte(u >> 8)})), nil
		})
	case token.XFuncMks:
		return numFunc1(s, cur, func(d float64) (value.Value, error) {
			f, err := value.CSng(d)
			if err != nil {
				return value.Value{}, err
			}
			b := value.IEEESingleToMBF(f)
			return value.StrValString(string(b[:])), nil
		})
	case token.XFuncMkd:
		return numFunc1(s, cur, func(d float64) (value.Value, error) {
			b := value.IEEEDoubleToMBF(d)
			return value.StrValString(string(b[:])), nil
		})
	}
	return value.Value{}, gwerror.New(gwerror.SyntaxError)
}

func oneArg(s *interp.State, cur *interp.Cursor) (value.Value, error) {
	args, err := parseArgList(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	if len(args) != 1 {
		return value.Value{}, gwerror.New(gwerror.SyntaxError)
	}
	return args[0], nil
}

func numFunc1(s *interp.State, cur *interp.Cursor, f func(float64) (value.Value, error)) (value.Value, error) {
	v, err := oneArg(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	if v.IsString() {
		return value.Value{}, gwerror.New(gwerror.TypeMismatch)
	}
	return f(value.ToDbl(v))
}

func intFunc1(s *interp.State, cur *interp.Cursor, f func(int16) (value.Value, error)) (value.Value, error) {
	v, err := oneArg(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	n, err := toInt(v)
	if err != nil {
		return value.Value{}, err
	}
	return f(n)
}

func strArg(s *interp.State, cur *interp.Cursor, f func(string) (value.Value, error)) (value.Value, error) {
	v, err := oneArg(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	if !v.IsString() {
		return value.Value{}, gwerror.New(gwerror.TypeMismatch)
	}
	return f(string(v.Str))
}

func strFunc2(s *interp.State, cur *interp.Cursor, f func(string, int16) (value.Value, error)) (value.Value, error) {
	args, err := parseArgList(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	if len(args) != 2 || !args[0].IsString() {
		return value.Value{}, gwerror.New(gwerror.SyntaxError)
	}
	n, err := toInt(args[1])
	if err != nil {
		return value.Value{}, err
	}
	return f(string(args[0].Str), n)
}

func midFunc(s *interp.State, cur *interp.Cursor) (value.Value, error) {
	args, err := parseArgList(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	if len(args) < 2 || len(args) > 3 || !args[0].IsString() {
		return value.Value{}, gwerror.New(gwerror.SyntaxError)
	}
	str := string(args[0].Str)
	start, err := toInt(args[1])
	if err != nil {
		return value.Value{}, err
	}
	if start < 1 {
		return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
	}
	if int(start) > len(str) {
		return value.StrValString(""), nil
	}
	n := len(str) - int(start) + 1
	if len(args) == 3 {
		req, err := toInt(args[2])
		if err != nil {
			return value.Value{}, err
		}
		if req < 0 {
			return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
		}
		if int(req) < n {
			n = int(req)
		}
	}
	return value.StrValString(str[start-1 : int(start)-1+n]), nil
}

// inputStrFunc implements INPUT$(n[,#fn]): read exactly n raw characters
// from the keyboard, or from file channel fn when given. Unlike the
// other built-ins this one's second argument is a bare #fn channel
// selector rather than an expression, so it is hand-parsed instead of
// going through parseArgList.
func inputStrFunc(s *interp.State, cur *interp.Cursor) (value.Value, error) {
	skipSpaces(s, cur)
	if peek(s, cur) != '(' {
		return value.Value{}, gwerror.New(gwerror.SyntaxError)
	}
	cur.Offset++
	skipSpaces(s, cur)
	nv, err := Eval(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	n, err := toInt(nv)
	if err != nil {
		return value.Value{}, err
	}
	if n < 0 {
		return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
	}
	fileNum := 0
	skipSpaces(s, cur)
	if peek(s, cur) == ',' {
		cur.Offset++
		skipSpaces(s, cur)
		if peek(s, cur) == '#' {
			cur.Offset++
		}
		fv, err := Eval(s, cur)
		if err != nil {
			return value.Value{}, err
		}
		fn, err := toInt(fv)
		if err != nil {
			return value.Value{}, err
		}
		fileNum = int(fn)
	}
	skipSpaces(s, cur)
	if peek(s, cur) != ')' {
		return value.Value{}, gwerror.New(gwerror.SyntaxError)
	}
	cur.Offset++
	str, err := s.IO.InputChars(int(n), fileNum)
	if err != nil {
		return value.Value{}, err
	}
	return value.StrValString(str), nil
}

// stringsFunc implements STRING$(n, code|str$): n copies of a
// character given either by ASCII code or by the first character of a
// string.
func stringsFunc(s *interp.State, cur *interp.Cursor) (value.Value, error) {
	args, err := parseArgList(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	if len(args) != 2 {
		return value.Value{}, gwerror.New(gwerror.SyntaxError)
	}
	n, err := toInt(args[0])
	if err != nil {
		return value.Value{}, err
	}
	if n < 0 || n > 255 {
		return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
	}
	var ch byte
	if args[1].IsString() {
		if len(args[1].Str) == 0 {
			return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
		}
		ch = args[1].Str[0]
	} else {
		code, err := toInt(args[1])
		if err != nil {
			return value.Value{}, err
		}
		if code < 0 || code > 255 {
			return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
		}
		ch = byte(code)
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = ch
	}
	return value.StrVal(out)
}

// instrFunc implements INSTR([start,]haystack$,needle$): the 1-based
// position of needle at or after start, or 0.
func instrFunc(s *interp.State, cur *interp.Cursor) (value.Value, error) {
	args, err := parseArgList(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	start := int16(1)
	if len(args) == 3 {
		if start, err = toInt(args[0]); err != nil {
			return value.Value{}, err
		}
		args = args[1:]
	}
	if len(args) != 2 || !args[0].IsString() || !args[1].IsString() {
		return value.Value{}, gwerror.New(gwerror.TypeMismatch)
	}
	if start < 1 || start > 255 {
		return value.Value{}, gwerror.New(gwerror.IllegalFunctionCall)
	}
	hay, needle := string(args[0].Str), string(args[1].Str)
	if int(start) > len(hay) {
		return value.IntVal(0), nil
	}
	if idx := strings.Index(hay[start-1:], needle); idx >= 0 {
		return value.IntVal(start + int16(idx)), nil
	}
	return value.IntVal(0), nil
}

// rndFunc implements RND[(n)]: omitted or n>0 draws the next value in
// sequence; n=0 replays the last draw; n<0 reseeds deterministically
// from n so the same negative argument always starts the same sequence.
func rndFunc(s *interp.State, cur *interp.Cursor) (value.Value, error) {
	skipSpaces(s, cur)
	n := float64(1)
	if peek(s, cur) == '(' {
		v, err := oneArg(s, cur)
		if err != nil {
			return value.Value{}, err
		}
		if v.IsString() {
			return value.Value{}, gwerror.New(gwerror.TypeMismatch)
		}
		n = value.ToDbl(v)
	}
	switch {
	case n == 0:
		return value.SngVal(float32(s.LastRnd)), nil
	case n < 0:
		s.Rnd = rand.New(rand.NewSource(int64(n)))
		s.LastRnd = s.Rnd.Float64()
		return value.SngVal(float32(s.LastRnd)), nil
	default:
		s.LastRnd = s.Rnd.Float64()
		return value.SngVal(float32(s.LastRnd)), nil
	}
}

func valFunc(str string) (value.Value, error) {
	str = strings.TrimLeft(str, " \t")
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
	for end < len(str) {
		c := str[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == '+' || c == '-') && end == 0:
		case (c == 'e' || c == 'E' || c == 'd' || c == 'D') && seenDigit && !seenExp:
			seenExp = true
		case (c == '+' || c == '-') && end > 0 && (str[end-1] == 'e' || str[end-1] == 'E' || str[end-1] == 'd' || str[end-1] == 'D'):
		default:
			goto done
		}
		end++
	}
done:
	if !seenDigit {
		return value.IntVal(0), nil
	}
	normalized := strings.Map(func(r rune) rune {
		if r == 'd' || r == 'D' {
			return 'E'
		}
		return r
	}, str[:end])
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return value.IntVal(0), nil
	}
	return value.DblVal(f), nil
}

func formatStrDollar(d float64) string {
	return value.Format(value.DblVal(d))
}

// ParseImmediateNumber parses a raw DATA-statement item's text as a
// numeric literal, the way READ assigns into a numeric variable. Unlike
// VAL (which treats a non-numeric prefix as 0), a malformed numeric DATA
// item is a Type mismatch.
func ParseImmediateNumber(s string) (value.Value, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return value.Value{}, gwerror.New(gwerror.TypeMismatch)
	}
	normalized := strings.Map(func(r rune) rune {
		if r == 'd' || r == 'D' {
			return 'E'
		}
		return r
	}, str)
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return value.Value{}, gwerror.New(gwerror.TypeMismatch)
	}
	return value.DblVal(f), nil
}
