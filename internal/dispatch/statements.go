package dispatch

import (
	"gwbasic/internal/eval"
	"gwbasic/internal/formatter"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/token"
	"gwbasic/internal/value"
)

// doAssign handles LET (implicit or explicit), including MID$(...) = expr
// in-place overwrite and array-element targets.
func (r *Runtime) doAssign(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	if peekByte(s, cur) == byte(token.PrefixFunc) {
		mark := *cur
		cur.Offset++
		if token.Opcode(peekByte(s, cur)) == token.FuncMid {
			cur.Offset++
			return r.doMidAssign(cur)
		}
		*cur = mark
	}
	name, typ, isArray, subs, err := parseAssignTarget(s, cur)
	if err != nil {
		return err
	}
	if err := expect(s, cur, byte(token.Eq)); err != nil {
		return err
	}
	rhs, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	coerced, err := coerceAssign(rhs, typ)
	if err != nil {
		return err
	}
	if isArray {
		return r.storeArrayElement(name, typ, subs, coerced)
	}
	s.Vars[interp.VarKey{Name: name, Typ: typ}] = coerced
	return nil
}

// parseAssignTarget reads a variable or array-element target without
// evaluating array subscripts as a full call (which eval.Eval's path
// does for reads) — it needs the same subscripts but as plain ints.
func parseAssignTarget(s *interp.State, cur *interp.Cursor) (name string, typ value.Type, isArray bool, subs []int, err error) {
	name, typ = eval.ParseName(s, cur)
	if name == "" {
		return "", 0, false, nil, gwerror.New(gwerror.SyntaxError)
	}
	skipSpaces(s, cur)
	if peekByte(s, cur) != '(' {
		return name, typ, false, nil, nil
	}
	cur.Offset++
	for {
		skipSpaces(s, cur)
		v, e := eval.Eval(s, cur)
		if e != nil {
			return "", 0, false, nil, e
		}
		n, e := toIntOperand(v)
		if e != nil {
			return "", 0, false, nil, e
		}
		subs = append(subs, int(n)-s.OptionBase)
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		break
	}
	if e := expect(s, cur, ')'); e != nil {
		return "", 0, false, nil, e
	}
	return name, typ, true, subs, nil
}

func (r *Runtime) storeArrayElement(name string, typ value.Type, subs []int, v value.Value) error {
	key := interp.VarKey{Name: name, Typ: typ}
	arr, ok := r.State.Arrays[key]
	if !ok {
		// Implicit DIM: upper bound 10 in every subscript position.
		dims := make([]int, len(subs))
		for i := range dims {
			dims[i] = 11 - r.State.OptionBase
		}
		arr = &interp.Array{Dims: dims, Elements: make([]value.Value, productOf(dims))}
		def := value.Default(typ)
		for i := range arr.Elements {
			arr.Elements[i] = def
		}
		r.State.Arrays[key] = arr
	}
	idx, ok := arr.Index(subs)
	if !ok {
		return gwerror.New(gwerror.SubscriptOutOfRange)
	}
	arr.Elements[idx] = v
	return nil
}

func productOf(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func coerceAssign(v value.Value, typ value.Type) (value.Value, error) {
	if typ == value.Str {
		if !v.IsString() {
			return value.Value{}, gwerror.New(gwerror.TypeMismatch)
		}
		return v.Clone(), nil
	}
	if v.IsString() {
		return value.Value{}, gwerror.New(gwerror.TypeMismatch)
	}
	switch typ {
	case value.Int:
		n, err := value.CInt(value.ToDbl(v))
		if err != nil {
			return value.Value{}, err
		}
		return value.IntVal(n), nil
	case value.Sng:
		return value.CSngOrErr(value.ToDbl(v))
	default:
		return value.DblVal(value.ToDbl(v)), nil
	}
}

// doMidAssign implements MID$(target,start[,len]) = expr$.
func (r *Runtime) doMidAssign(cur *interp.Cursor) error {
	s := r.State
	if err := expect(s, cur, '('); err != nil {
		return err
	}
	name, typ := eval.ParseName(s, cur)
	if typ != value.Str {
		return gwerror.New(gwerror.TypeMismatch)
	}
	skipSpaces(s, cur)
	if err := expect(s, cur, ','); err != nil {
		return err
	}
	startV, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	start, err := toIntOperand(startV)
	if err != nil {
		return err
	}
	length := -1
	skipSpaces(s, cur)
	if peekByte(s, cur) == ',' {
		cur.Offset++
		lv, err := eval.Eval(s, cur)
		if err != nil {
			return err
		}
		l, err := toIntOperand(lv)
		if err != nil {
			return err
		}
		length = int(l)
	}
	if err := expect(s, cur, ')'); err != nil {
		return err
	}
	if err := expect(s, cur, byte(token.Eq)); err != nil {
		return err
	}
	rhs, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	if !rhs.IsString() {
		return gwerror.New(gwerror.TypeMismatch)
	}
	key := interp.VarKey{Name: name, Typ: value.Str}
	target, ok := s.Vars[key]
	startIdx := int(start)
	if !ok || startIdx < 1 || startIdx > len(target.Str) {
		return gwerror.New(gwerror.IllegalFunctionCall)
	}
	n := len(target.Str) - startIdx + 1
	if length >= 0 && length < n {
		n = length
	}
	if n > len(rhs.Str) {
		n = len(rhs.Str)
	}
	buf := append([]byte{}, target.Str...)
	copy(buf[startIdx-1:startIdx-1+n], rhs.Str[:n])
	s.Vars[key] = value.Value{Typ: value.Str, Str: buf}
	return nil
}

func (r *Runtime) doSwap(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	n1, t1 := eval.ParseName(s, cur)
	skipSpaces(s, cur)
	if err := expect(s, cur, ','); err != nil {
		return err
	}
	skipSpaces(s, cur)
	n2, t2 := eval.ParseName(s, cur)
	if t1 != t2 {
		return gwerror.New(gwerror.TypeMismatch)
	}
	k1 := interp.VarKey{Name: n1, Typ: t1}
	k2 := interp.VarKey{Name: n2, Typ: t2}
	s.Vars[k1], s.Vars[k2] = s.Vars[k2], s.Vars[k1]
	return nil
}

func (r *Runtime) doDefType(cur *interp.Cursor, op token.Opcode) error {
	s := r.State
	var typ value.Type
	switch op {
	case token.Defint:
		typ = value.Int
	case token.Defsng:
		typ = value.Sng
	case token.Defdbl:
		typ = value.Dbl
	case token.Defstr:
		typ = value.Str
	}
	for {
		skipSpaces(s, cur)
		from, ok := readLetter(s, cur)
		if !ok {
			return gwerror.New(gwerror.SyntaxError)
		}
		to := from
		skipSpaces(s, cur)
		if peekByte(s, cur) == byte(token.Minus) {
			cur.Offset++
			skipSpaces(s, cur)
			to, ok = readLetter(s, cur)
			if !ok {
				return gwerror.New(gwerror.SyntaxError)
			}
		}
		for l := from; l <= to; l++ {
			s.DefType[l-'A'] = typ
		}
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		return nil
	}
}

func readLetter(s *interp.State, cur *interp.Cursor) (byte, bool) {
	b, ok := s.ByteAt(*cur)
	if !ok || b < 'A' || b > 'Z' {
		if ok && b >= 'a' && b <= 'z' {
			cur.Offset++
			return b - 32, true
		}
		return 0, false
	}
	cur.Offset++
	return b, true
}

// doPrint implements PRINT/LPRINT: comma tabs to the next 14-column
// print zone, semicolon suppresses the separator entirely, and a
// trailing separator suppresses the newline.
func (r *Runtime) doPrint(cur *interp.Cursor, toPrinter bool) error {
	s := r.State
	skipSpaces(s, cur)
	if token.Opcode(peekByte(s, cur)) == token.Using {
		cur.Offset++
		out, newline, err := r.printUsing(cur)
		if err != nil {
			return err
		}
		if newline {
			out += "\n"
		}
		r.Term.WriteString(out)
		return nil
	}
	var b []byte
	newlineAtEnd := true
	for {
		skipSpaces(s, cur)
		if atEOL(s, cur) {
			break
		}
		bt := peekByte(s, cur)
		if bt == ',' {
			cur.Offset++
			newlineAtEnd = false
			col := len(b) % 14
			pad := 14 - col
			if col == 0 {
				pad = 0
			}
			for i := 0; i < pad; i++ {
				b = append(b, ' ')
			}
			continue
		}
		if bt == ';' {
			cur.Offset++
			newlineAtEnd = false
			continue
		}
		if token.Opcode(bt) == token.Tab || token.Opcode(bt) == token.Spc {
			cur.Offset++
			v, err := eval.Eval(s, cur)
			if err != nil {
				return err
			}
			n, err := toIntOperand(v)
			if err != nil {
				return err
			}
			if token.Opcode(bt) == token.Spc {
				for i := int16(0); i < n; i++ {
					b = append(b, ' ')
				}
			} else {
				// TAB pads relative to the terminal's running column,
				// which a prior newline-suppressed PRINT may have left
				// past 1, not this statement's own buffer.
				for (r.Term.Col()-1+len(b))%80 < int(n)-1 {
					b = append(b, ' ')
				}
			}
			newlineAtEnd = true
			continue
		}
		v, err := eval.Eval(s, cur)
		if err != nil {
			return err
		}
		b = append(b, value.Format(v)...)
		if v.IsNumeric() {
			b = append(b, ' ')
		}
		newlineAtEnd = true
	}
	if newlineAtEnd {
		b = append(b, '\n')
	}
	if toPrinter {
		// LPRINT has no printer shim wired in this build; route to the
		// same terminal so output is still observable.
		r.Term.WriteString(string(b))
		return nil
	}
	r.Term.WriteString(string(b))
	return nil
}

// printUsing evaluates USING fmt$; expr[;expr...] and renders the
// values through the formatter. The second result reports whether a
// newline should follow (no trailing ';' or ',').
func (r *Runtime) printUsing(cur *interp.Cursor) (string, bool, error) {
	s := r.State
	spec, err := evalStringArg(s, cur)
	if err != nil {
		return "", false, err
	}
	skipSpaces(s, cur)
	if b := peekByte(s, cur); b != ';' && b != ',' {
		return "", false, gwerror.New(gwerror.SyntaxError)
	}
	cur.Offset++
	var vals []value.Value
	newline := true
	for {
		skipSpaces(s, cur)
		if atEOL(s, cur) {
			break
		}
		v, err := eval.Eval(s, cur)
		if err != nil {
			return "", false, err
		}
		vals = append(vals, v)
		newline = true
		skipSpaces(s, cur)
		if b := peekByte(s, cur); b == ';' || b == ',' {
			cur.Offset++
			newline = false
			continue
		}
		break
	}
	out, err := formatter.Apply(spec, vals)
	return out, newline, err
}
