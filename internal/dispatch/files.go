package dispatch

import (
	"gwbasic/internal/eval"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/shim"
	"gwbasic/internal/token"
	"gwbasic/internal/value"
)

// doOpen implements OPEN file$ FOR INPUT|OUTPUT|APPEND|RANDOM AS #n
// [LEN=reclen].
func (r *Runtime) doOpen(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	nameV, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	if !nameV.IsString() {
		return gwerror.New(gwerror.TypeMismatch)
	}
	skipSpaces(s, cur)
	if err := expect(s, cur, byte(token.For)); err != nil {
		return err
	}
	skipSpaces(s, cur)
	var mode shim.Mode
	switch {
	case token.Opcode(peekByte(s, cur)) == token.Input:
		cur.Offset++
		mode = shim.ModeInput
	case consumeWord(s, cur, "OUTPUT"):
		mode = shim.ModeOutput
	case consumeWord(s, cur, "APPEND"):
		mode = shim.ModeAppend
	case consumeWord(s, cur, "RANDOM"):
		mode = shim.ModeRandom
	default:
		return gwerror.New(gwerror.SyntaxError)
	}
	skipSpaces(s, cur)
	if !consumeWord(s, cur, "AS") {
		return gwerror.New(gwerror.SyntaxError)
	}
	skipSpaces(s, cur)
	if peekByte(s, cur) == '#' {
		cur.Offset++
	}
	fileNum, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	recLen := 128
	skipSpaces(s, cur)
	if consumeWord(s, cur, "LEN") {
		skipSpaces(s, cur)
		if err := expect(s, cur, byte(token.Eq)); err != nil {
			return err
		}
		n, err := evalIntExpr(s, cur)
		if err != nil {
			return err
		}
		recLen = int(n)
	}
	return r.Files.Open(int(fileNum), string(nameV.Str), mode, recLen)
}

// doClose implements CLOSE [#n[,#n...]], with a bare CLOSE closing every
// open file.
func (r *Runtime) doClose(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	if atEOL(s, cur) {
		r.Files.CloseAll()
		return nil
	}
	for {
		skipSpaces(s, cur)
		if peekByte(s, cur) == '#' {
			cur.Offset++
		}
		n, err := evalIntExpr(s, cur)
		if err != nil {
			return err
		}
		if err := r.Files.Close(int(n)); err != nil {
			return err
		}
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		return nil
	}
}

func evalIntExpr(s *interp.State, cur *interp.Cursor) (int16, error) {
	v, err := eval.Eval(s, cur)
	if err != nil {
		return 0, err
	}
	return toIntOperand(v)
}

// readFileNumber reads the leading #n channel selector shared by PRINT#,
// WRITE#, INPUT#, FIELD, PUT and GET.
func readFileNumber(s *interp.State, cur *interp.Cursor) (int, error) {
	skipSpaces(s, cur)
	if peekByte(s, cur) == '#' {
		cur.Offset++
	}
	n, err := evalIntExpr(s, cur)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// doPrintFile implements PRINT#n, ... / WRITE#n, ..., formatting the same
// way PRINT does but writing to the file channel instead of the console.
func (r *Runtime) doPrintFile(cur *interp.Cursor, write bool) error {
	s := r.State
	fn, err := readFileNumber(s, cur)
	if err != nil {
		return err
	}
	skipSpaces(s, cur)
	if peekByte(s, cur) == ',' {
		cur.Offset++
	}
	skipSpaces(s, cur)
	if !write && token.Opcode(peekByte(s, cur)) == token.Using {
		cur.Offset++
		out, newline, err := r.printUsing(cur)
		if err != nil {
			return err
		}
		if newline {
			out += "\r\n"
		}
		return r.Files.WriteBytes(fn, []byte(out))
	}
	var b []byte
	first := true
	for {
		skipSpaces(s, cur)
		if atEOL(s, cur) {
			break
		}
		if peekByte(s, cur) == ',' || peekByte(s, cur) == ';' {
			cur.Offset++
			continue
		}
		v, err := eval.Eval(s, cur)
		if err != nil {
			return err
		}
		if write {
			if !first {
				b = append(b, ',')
			}
			if v.IsString() {
				b = append(b, '"')
				b = append(b, v.Str...)
				b = append(b, '"')
			} else {
				b = append(b, value.Format(v)...)
			}
		} else {
			b = append(b, value.Format(v)...)
		}
		first = false
	}
	b = append(b, '\r', '\n')
	return r.Files.WriteBytes(fn, b)
}

// doInputFile implements INPUT#n, var[,var...]: each variable takes one
// whole line from the file; commas inside a line do not split it into
// separate fields.
func (r *Runtime) doInputFile(cur *interp.Cursor) error {
	s := r.State
	fn, err := readFileNumber(s, cur)
	if err != nil {
		return err
	}
	for {
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		name, typ, isArray, subs, err := parseAssignTarget(s, cur)
		if err != nil {
			return err
		}
		line, err := r.Files.ReadLine(fn)
		if err != nil {
			return err
		}
		var v value.Value
		if typ == value.Str {
			v, err = value.StrVal([]byte(line))
			if err != nil {
				return err
			}
		} else {
			v, err = eval.ParseImmediateNumber(line)
			if err != nil {
				return err
			}
			v, err = coerceAssign(v, typ)
			if err != nil {
				return err
			}
		}
		if isArray {
			if err := r.storeArrayElement(name, typ, subs, v); err != nil {
				return err
			}
		} else {
			s.Vars[interp.VarKey{Name: name, Typ: typ}] = v
		}
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		return nil
	}
}

// doLineInputFile implements LINE INPUT#n, string-var.
func (r *Runtime) doLineInputFile(cur *interp.Cursor) error {
	s := r.State
	fn, err := readFileNumber(s, cur)
	if err != nil {
		return err
	}
	skipSpaces(s, cur)
	if peekByte(s, cur) == ',' {
		cur.Offset++
	}
	name, typ := eval.ParseName(s, cur)
	if typ != value.Str {
		return gwerror.New(gwerror.TypeMismatch)
	}
	line, err := r.Files.ReadLine(fn)
	if err != nil {
		return err
	}
	v, err := value.StrVal([]byte(line))
	if err != nil {
		return err
	}
	s.Vars[interp.VarKey{Name: name, Typ: value.Str}] = v
	return nil
}

// doInputConsole implements INPUT ["prompt";]var[,var...], reading a
// single line from the terminal and splitting it on commas.
func (r *Runtime) doInputConsole(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	prompt := "? "
	if peekByte(s, cur) == '"' {
		v, err := eval.Eval(s, cur)
		if err != nil {
			return err
		}
		skipSpaces(s, cur)
		sep := peekByte(s, cur)
		if sep != ';' && sep != ',' {
			return gwerror.New(gwerror.SyntaxError)
		}
		cur.Offset++
		if !v.IsString() {
			return gwerror.New(gwerror.TypeMismatch)
		}
		if sep == ';' {
			prompt = string(v.Str) + "? "
		} else {
			prompt = string(v.Str)
		}
	}
	var targets []assignTarget
	for {
		skipSpaces(s, cur)
		name, typ, isArray, subs, err := parseAssignTarget(s, cur)
		if err != nil {
			return err
		}
		targets = append(targets, assignTarget{name, typ, isArray, subs})
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		break
	}
	for {
		r.Term.WriteString(prompt)
		line, _ := r.Term.ReadLine()
		fields := splitInputFields(line)
		if len(fields) != len(targets) {
			r.Term.WriteString("?Redo from start\n")
			continue
		}
		ok := true
		for i, t := range targets {
			var v value.Value
			var err error
			if t.typ == value.Str {
				v, err = value.StrVal([]byte(fields[i]))
			} else {
				v, err = eval.ParseImmediateNumber(fields[i])
				if err == nil {
					v, err = coerceAssign(v, t.typ)
				}
			}
			if err != nil {
				ok = false
				break
			}
			if t.isArray {
				if err := r.storeArrayElement(t.name, t.typ, t.subs, v); err != nil {
					ok = false
					break
				}
			} else {
				s.Vars[interp.VarKey{Name: t.name, Typ: t.typ}] = v
			}
		}
		if !ok {
			r.Term.WriteString("?Redo from start\n")
			continue
		}
		return nil
	}
}

type assignTarget struct {
	name    string
	typ     value.Type
	isArray bool
	subs    []int
}

func splitInputFields(line string) []string {
	var out []string
	var cur []byte
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if c == ',' && !inQuotes {
			out = append(out, trimInputField(string(cur)))
			cur = nil
			continue
		}
		cur = append(cur, c)
	}
	out = append(out, trimInputField(string(cur)))
	return out
}

func trimInputField(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

// doLineInputConsole implements LINE INPUT ["prompt";]var$.
func (r *Runtime) doLineInputConsole(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	prompt := ""
	if peekByte(s, cur) == '"' {
		v, err := eval.Eval(s, cur)
		if err != nil {
			return err
		}
		if err := expect(s, cur, ';'); err != nil {
			return err
		}
		if !v.IsString() {
			return gwerror.New(gwerror.TypeMismatch)
		}
		prompt = string(v.Str)
	}
	name, typ := eval.ParseName(s, cur)
	if typ != value.Str {
		return gwerror.New(gwerror.TypeMismatch)
	}
	r.Term.WriteString(prompt)
	line, _ := r.Term.ReadLine()
	v, err := value.StrVal([]byte(line))
	if err != nil {
		return err
	}
	s.Vars[interp.VarKey{Name: name, Typ: value.Str}] = v
	return nil
}
