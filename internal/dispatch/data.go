package dispatch

import (
	"gwbasic/internal/eval"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/token"
	"gwbasic/internal/value"
)

// doDim implements DIM name(dims)[,name(dims)...]. A DIM that collides
// with an already-allocated array is Duplicate Definition.
func (r *Runtime) doDim(cur *interp.Cursor) error {
	s := r.State
	for {
		skipSpaces(s, cur)
		name, typ := eval.ParseName(s, cur)
		if err := expect(s, cur, '('); err != nil {
			return err
		}
		var dims []int
		for {
			skipSpaces(s, cur)
			v, err := eval.Eval(s, cur)
			if err != nil {
				return err
			}
			n, err := toIntOperand(v)
			if err != nil {
				return err
			}
			dims = append(dims, int(n)+1-s.OptionBase)
			skipSpaces(s, cur)
			if peekByte(s, cur) == ',' {
				cur.Offset++
				continue
			}
			break
		}
		if err := expect(s, cur, ')'); err != nil {
			return err
		}
		key := interp.VarKey{Name: name, Typ: typ}
		if _, exists := s.Arrays[key]; exists {
			return gwerror.New(gwerror.DuplicateDefinition)
		}
		n := 1
		for _, d := range dims {
			if d <= 0 {
				return gwerror.New(gwerror.IllegalFunctionCall)
			}
			n *= d
		}
		elems := make([]value.Value, n)
		def := value.Default(typ)
		for i := range elems {
			elems[i] = def
		}
		s.Arrays[key] = &interp.Array{Dims: dims, Elements: elems}
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		return nil
	}
}

// doErase implements ERASE name[,name...]: frees a DIM'd (or
// auto-dimensioned) array so a later reference re-creates it fresh.
func (r *Runtime) doErase(cur *interp.Cursor) error {
	s := r.State
	for {
		skipSpaces(s, cur)
		name, typ := eval.ParseName(s, cur)
		delete(s.Arrays, interp.VarKey{Name: name, Typ: typ})
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		return nil
	}
}

// doOptionBase implements OPTION BASE 0|1, which must precede any
// array reference and may only appear once.
func (r *Runtime) doOptionBase(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	if !consumeWord(s, cur, "BASE") {
		return gwerror.New(gwerror.SyntaxError)
	}
	skipSpaces(s, cur)
	v, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	n, err := toIntOperand(v)
	if err != nil {
		return err
	}
	if n != 0 && n != 1 {
		return gwerror.New(gwerror.SyntaxError)
	}
	if s.OptionBaseSet() || len(s.Arrays) > 0 {
		return gwerror.New(gwerror.DuplicateDefinition)
	}
	s.SetOptionBase(int(n))
	return nil
}

// consumeWord matches a plain (non-tokenized) ASCII keyword such as BASE
// that CRUNCH leaves as literal letters because it only ever follows one
// specific statement keyword. Case-insensitive; advances cur only on a
// full match.
func consumeWord(s *interp.State, cur *interp.Cursor, word string) bool {
	toks, _ := s.LineTokens(cur.Line)
	if cur.Offset+len(word) > len(toks) {
		return false
	}
	for i := 0; i < len(word); i++ {
		b := toks[cur.Offset+i]
		if b >= 'a' && b <= 'z' {
			b -= 32
		}
		if b != word[i] {
			return false
		}
	}
	cur.Offset += len(word)
	return true
}

// doRead implements READ var[,var...], pulling tokenized DATA items from
// s.DataCursor in source order across line boundaries.
func (r *Runtime) doRead(cur *interp.Cursor) error {
	s := r.State
	if s.DataCursor.Line == 0 && s.DataCursor.Offset == 0 {
		resetDataCursor(s)
	}
	for {
		skipSpaces(s, cur)
		name, typ, isArray, subs, err := parseAssignTarget(s, cur)
		if err != nil {
			return err
		}
		item, err := nextDataItem(s)
		if err != nil {
			return err
		}
		var v value.Value
		if typ == value.Str {
			v, err = value.StrVal([]byte(item))
			if err != nil {
				return err
			}
		} else {
			v, err = readNumericDataItem(item)
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

func readNumericDataItem(item string) (value.Value, error) {
	return eval.ParseImmediateNumber(item)
}

// doRestore implements RESTORE [line]: resets the DATA cursor to the
// first DATA statement in the program, or to the named line.
func (r *Runtime) doRestore(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	if n, ok := readLineNumber(s, cur); ok {
		l, _, found := s.Prog.Find(n)
		if !found {
			return gwerror.New(gwerror.UndefinedLineNumber)
		}
		s.DataCursor = interp.Cursor{Line: l.Num, Offset: 0}
		s.DataInStmt = false
		return nil
	}
	resetDataCursor(s)
	return nil
}

// resetDataCursor points DataCursor at the first stored line, ready for
// findNextData to locate the first DATA token.
func resetDataCursor(s *interp.State) {
	s.DataInStmt = false
	if first, ok := s.Prog.First(); ok {
		s.DataCursor = interp.Cursor{Line: first.Num, Offset: 0}
	} else {
		s.DataCursor = interp.Cursor{Line: interp.DirectLine, Offset: 0}
	}
}

// nextDataItem advances s.DataCursor past the next comma/colon-delimited
// (or quoted) DATA item, scanning forward across DATA statements and line
// boundaries as needed, and returns its raw text.
func nextDataItem(s *interp.State) (string, error) {
	for {
		toks, ok := s.LineTokens(s.DataCursor.Line)
		if !ok {
			return "", gwerror.New(gwerror.OutOfData)
		}
		if s.DataCursor.Offset >= len(toks) || toks[s.DataCursor.Offset] == 0 {
			s.DataInStmt = false
			if !advanceDataToNextLine(s) {
				return "", gwerror.New(gwerror.OutOfData)
			}
			continue
		}
		b := toks[s.DataCursor.Offset]
		if token.Opcode(b) == token.Colon {
			s.DataInStmt = false
			s.DataCursor.Offset++
			continue
		}
		if s.DataInStmt {
			// Resting just past a consumed item: the next one starts here.
			return readOneItem(s)
		}
		if token.Opcode(b) != token.Data {
			// Not at a DATA statement yet; skip to the next DATA token on
			// this line, or the next line if none remains.
			if !scanToNextDataToken(s) {
				if !advanceDataToNextLine(s) {
					return "", gwerror.New(gwerror.OutOfData)
				}
			}
			continue
		}
		s.DataCursor.Offset++ // consume the DATA token itself
		s.DataInStmt = true
		return readOneItem(s)
	}
}

func scanToNextDataToken(s *interp.State) bool {
	toks, _ := s.LineTokens(s.DataCursor.Line)
	for i := s.DataCursor.Offset; i < len(toks) && toks[i] != 0; i++ {
		if token.Opcode(toks[i]) == token.Data {
			s.DataCursor.Offset = i
			return true
		}
	}
	return false
}

func advanceDataToNextLine(s *interp.State) bool {
	_, idx, ok := s.Prog.Find(s.DataCursor.Line)
	if !ok {
		return false
	}
	next, ok := s.Prog.At(idx + 1)
	if !ok {
		return false
	}
	s.DataCursor = interp.Cursor{Line: next.Num, Offset: 0}
	return true
}

// readOneItem reads one item's raw text starting right after a DATA
// token (or a comma separating two items), advancing past it and the
// following comma (leaving the cursor at the next item, ':' or NUL).
func readOneItem(s *interp.State) (string, error) {
	toks, _ := s.LineTokens(s.DataCursor.Line)
	for s.DataCursor.Offset < len(toks) && toks[s.DataCursor.Offset] == ' ' {
		s.DataCursor.Offset++
	}
	var text []byte
	if s.DataCursor.Offset < len(toks) && toks[s.DataCursor.Offset] == '"' {
		s.DataCursor.Offset++
		for s.DataCursor.Offset < len(toks) && toks[s.DataCursor.Offset] != '"' && toks[s.DataCursor.Offset] != 0 {
			text = append(text, toks[s.DataCursor.Offset])
			s.DataCursor.Offset++
		}
		if s.DataCursor.Offset < len(toks) && toks[s.DataCursor.Offset] == '"' {
			s.DataCursor.Offset++
		}
	} else {
		for s.DataCursor.Offset < len(toks) && toks[s.DataCursor.Offset] != ',' &&
			toks[s.DataCursor.Offset] != byte(token.Colon) && toks[s.DataCursor.Offset] != 0 {
			text = append(text, toks[s.DataCursor.Offset])
			s.DataCursor.Offset++
		}
	}
	if s.DataCursor.Offset < len(toks) && toks[s.DataCursor.Offset] == ',' {
		s.DataCursor.Offset++
	}
	return string(text), nil
}

// doDefFn implements DEF FN letter[(param)] = body: records the current
// cursor (positioned right at the body expression) and advances past it
// to ':'/ELSE/end-of-line without evaluating it — the body is re-parsed
// on every call.
func (r *Runtime) doDefFn(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	if err := expect(s, cur, byte(token.Fn)); err != nil {
		return err
	}
	skipSpaces(s, cur)
	letter, ok := readLetter(s, cur)
	if !ok {
		return gwerror.New(gwerror.SyntaxError)
	}
	// Consume the remainder of the function's own name (DEF FN letter-keyed
	// table, but a multi-char name like FNAB$ still needs consuming).
	for {
		b, ok := s.ByteAt(*cur)
		if !ok || !isLetterByte(b) && !(b >= '0' && b <= '9') {
			break
		}
		cur.Offset++
	}
	returnType := s.DefaultType(letter)
	if b := peekByte(s, cur); b == '$' || b == '%' || b == '!' || b == '#' {
		returnType = suffixType(b)
		cur.Offset++
	}
	var paramName string
	var paramType value.Type
	if peekByte(s, cur) == '(' {
		cur.Offset++
		skipSpaces(s, cur)
		paramName, paramType = eval.ParseName(s, cur)
		if err := expect(s, cur, ')'); err != nil {
			return err
		}
	}
	skipSpaces(s, cur)
	if err := expect(s, cur, byte(token.Eq)); err != nil {
		return err
	}
	s.DefFns[letter-'A'] = interp.FnDef{
		Defined:    true,
		ParamName:  paramName,
		ParamType:  paramType,
		ReturnType: returnType,
		BodyCursor: *cur,
	}
	return skipExprToStatementEnd(s, cur)
}

func suffixType(b byte) value.Type {
	switch b {
	case '%':
		return value.Int
	case '!':
		return value.Sng
	case '#':
		return value.Dbl
	default:
		return value.Str
	}
}

// skipExprToStatementEnd advances cur past a syntactically valid
// expression by evaluating it and discarding the result — simplest way
// to reach ':'/ELSE/EOL without duplicating the evaluator's grammar.
func skipExprToStatementEnd(s *interp.State, cur *interp.Cursor) error {
	_, err := eval.Eval(s, cur)
	return err
}

// doRun implements RUN [line | file$]: resets runtime state (not the
// program store) and starts execution at the first line, or the named
// one; with a filename it loads that program first, replacing the
// stored one.
func (r *Runtime) doRun(cur *interp.Cursor) (Signal, error) {
	s := r.State
	s.Clear()
	r.Files.CloseAll()
	s.Running = true
	skipSpaces(s, cur)
	if peekByte(s, cur) == '"' {
		path, err := evalStringArg(s, cur)
		if err != nil {
			return SigNone, err
		}
		s.Prog.Clear()
		if err := LoadProgramText(s.Prog, path); err != nil {
			s.Running = false
			return SigNone, err
		}
	}
	if n, ok := readLineNumber(s, cur); ok {
		if _, _, ok := s.Prog.Find(n); !ok {
			return SigNone, gwerror.New(gwerror.UndefinedLineNumber)
		}
		s.Cursor = interp.Cursor{Line: n, Offset: 0}
		return SigGoto, nil
	}
	first, ok := s.Prog.First()
	if !ok {
		s.Running = false
		return SigEnd, nil
	}
	s.Cursor = interp.Cursor{Line: first.Num, Offset: 0}
	return SigGoto, nil
}

// doResume implements RESUME / RESUME NEXT / RESUME n, valid only inside
// an error-trap handler.
func (r *Runtime) doResume(cur *interp.Cursor) (Signal, error) {
	s := r.State
	if !s.ErrorTrap.InHandler {
		return SigNone, gwerror.New(gwerror.ResumeWithoutError)
	}
	skipSpaces(s, cur)
	s.ErrorTrap.InHandler = false
	if peekByte(s, cur) == byte(token.Next) {
		cur.Offset++
		resume := s.ErrorTrap.ResumeCursor
		if !advanceStatementCursor(s, &resume) {
			s.Running = false
			return SigEnd, nil
		}
		s.Cursor = resume
		return SigGoto, nil
	}
	if n, ok := readLineNumber(s, cur); ok {
		return r.jumpToLine(n)
	}
	s.Cursor = s.ErrorTrap.ResumeCursor
	return SigGoto, nil
}

// advanceStatementCursor moves cur past the current statement's ':' or
// to the start of the next program line, for RESUME NEXT. Returns false
// if there is no further line to land on.
func advanceStatementCursor(s *interp.State, cur *interp.Cursor) bool {
	toks, ok := s.LineTokens(cur.Line)
	if !ok {
		return advanceToNextLine(s, cur)
	}
	depth := 0
	for cur.Offset < len(toks) {
		b := toks[cur.Offset]
		switch token.Opcode(b) {
		case '"':
			cur.Offset++
			for cur.Offset < len(toks) && toks[cur.Offset] != '"' && toks[cur.Offset] != 0 {
				cur.Offset++
			}
			if cur.Offset < len(toks) && toks[cur.Offset] == '"' {
				cur.Offset++
			}
			continue
		case token.If:
			depth++
		case token.Colon:
			if depth == 0 {
				cur.Offset++
				return true
			}
		}
		cur.Offset += 1 + constPayloadLen(b)
	}
	return advanceToNextLine(s, cur)
}
