package dispatch

import (
	"gwbasic/internal/eval"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/token"
	"gwbasic/internal/value"
)

// doFor evaluates FOR var = init TO limit [STEP step] and pushes a
// frame whose resume cursor is the position right after these operands,
// so NEXT re-enters the body without re-evaluating them.
func (r *Runtime) doFor(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	name, typ := eval.ParseName(s, cur)
	if err := expect(s, cur, byte(token.Eq)); err != nil {
		return err
	}
	init, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	initC, err := coerceAssign(init, typ)
	if err != nil {
		return err
	}
	skipSpaces(s, cur)
	if err := expect(s, cur, byte(token.To)); err != nil {
		return err
	}
	limit, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	step := value.IntVal(1)
	skipSpaces(s, cur)
	if peekByte(s, cur) == byte(token.Step) {
		cur.Offset++
		step, err = eval.Eval(s, cur)
		if err != nil {
			return err
		}
	}
	key := interp.VarKey{Name: name, Typ: typ}
	s.Vars[key] = initC

	// A new FOR on the same variable pops any prior entry for it.
	for i := len(s.ForStack) - 1; i >= 0; i-- {
		if s.ForStack[i].Var == key {
			s.ForStack = append(s.ForStack[:i], s.ForStack[i+1:]...)
			break
		}
	}
	s.ForStack = append(s.ForStack, interp.ForFrame{
		Var: key, Limit: limit, Step: step, ResumeCursor: *cur,
	})

	// Zero-trip check: if the loop would never execute, skip straight
	// past the matching NEXT instead of entering the body.
	cont, err := forContinues(initC, limit, step)
	if err != nil {
		return err
	}
	if !cont {
		s.ForStack = s.ForStack[:len(s.ForStack)-1]
		return skipToMatchingNext(s, cur, name)
	}
	return nil
}

func forContinues(v, limit, step value.Value) (bool, error) {
	c, err := value.Compare(step, value.IntVal(0))
	if err != nil {
		return false, err
	}
	vc, err := value.Compare(v, limit)
	if err != nil {
		return false, err
	}
	if c >= 0 {
		return vc <= 0, nil
	}
	return vc >= 0, nil
}

// skipToMatchingNext scans forward past the line/statement stream,
// tracking nested FOR/NEXT, to land just after the NEXT that matches
// this FOR (optionally naming var).
func skipToMatchingNext(s *interp.State, cur *interp.Cursor, name string) error {
	depth := 0
	for {
		b, ok := s.ByteAt(*cur)
		if !ok {
			if !advanceToNextLine(s, cur) {
				return gwerror.New(gwerror.ForWithoutNext)
			}
			continue
		}
		switch token.Opcode(b) {
		case token.For:
			depth++
			cur.Offset++
		case token.Next:
			cur.Offset++
			if depth > 0 {
				depth--
				skipRestOfNextVars(s, cur)
				continue
			}
			skipNextVarList(s, cur)
			return nil
		case '"':
			skipStringLiteral(s, cur)
		default:
			// Embedded-constant payload bytes may alias opcodes.
			cur.Offset += 1 + constPayloadLen(b)
		}
	}
}

func skipRestOfNextVars(s *interp.State, cur *interp.Cursor) {
	for {
		b, ok := s.ByteAt(*cur)
		if !ok || b == byte(token.Colon) {
			return
		}
		cur.Offset++
	}
}

func skipNextVarList(s *interp.State, cur *interp.Cursor) {
	skipRestOfNextVars(s, cur)
}

func skipStringLiteral(s *interp.State, cur *interp.Cursor) {
	cur.Offset++
	for {
		b, ok := s.ByteAt(*cur)
		if !ok || b == '"' {
			if ok {
				cur.Offset++
			}
			return
		}
		cur.Offset++
	}
}

func advanceToNextLine(s *interp.State, cur *interp.Cursor) bool {
	_, idx, ok := s.Prog.Find(cur.Line)
	if !ok {
		return false
	}
	next, ok := s.Prog.At(idx + 1)
	if !ok {
		return false
	}
	cur.Line = next.Num
	cur.Offset = 0
	return true
}

// doNext implements NEXT [var[,var2,...]]: for each named variable (or
// the topmost frame if none given), increment and either loop or pop.
func (r *Runtime) doNext(cur *interp.Cursor) (Signal, error) {
	s := r.State
	for {
		skipSpaces(s, cur)
		var targetName string
		haveTarget := false
		if b, ok := s.ByteAt(*cur); ok && isLetterByte(b) {
			targetName, _ = eval.ParseName(s, cur)
			haveTarget = true
		}
		sig, err := r.nextOne(cur, targetName, haveTarget)
		if err != nil || sig == SigGoto {
			return sig, err
		}
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		return SigNone, nil
	}
}

func isLetterByte(b byte) bool { return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') }

func (r *Runtime) nextOne(cur *interp.Cursor, name string, named bool) (Signal, error) {
	s := r.State
	idx := len(s.ForStack) - 1
	if named {
		idx = -1
		for i := len(s.ForStack) - 1; i >= 0; i-- {
			if s.ForStack[i].Var.Name == name {
				idx = i
				break
			}
		}
	}
	if idx < 0 || idx >= len(s.ForStack) {
		return SigNone, gwerror.New(gwerror.NextWithoutFor)
	}
	frame := s.ForStack[idx]
	cur2 := s.Vars[frame.Var]
	sum, err := arithAdd(cur2, frame.Step)
	if err != nil {
		return SigNone, err
	}
	coerced, err := coerceAssign(sum, frame.Var.Typ)
	if err != nil {
		return SigNone, err
	}
	s.Vars[frame.Var] = coerced
	cont, err := forContinues(coerced, frame.Limit, frame.Step)
	if err != nil {
		return SigNone, err
	}
	if cont {
		*cur = frame.ResumeCursor
		s.Cursor = *cur
		return SigGoto, nil
	}
	s.ForStack = append(s.ForStack[:idx], s.ForStack[idx+1:]...)
	return SigNone, nil
}

func arithAdd(a, b value.Value) (value.Value, error) {
	pa, pb, err := value.Promote(a, b)
	if err != nil {
		return value.Value{}, err
	}
	switch pa.Typ {
	case value.Int:
		r, err := value.IntAdd(pa.I, pb.I)
		if err != nil {
			return value.Value{}, err
		}
		return value.IntVal(r), nil
	case value.Sng:
		r, err := value.FAdd(float64(pa.S32), float64(pb.S32))
		if err != nil {
			return value.Value{}, err
		}
		return value.CSngOrErr(r)
	default:
		r, err := value.FAdd(pa.D64, pb.D64)
		if err != nil {
			return value.Value{}, err
		}
		return value.DblVal(r), nil
	}
}

func (r *Runtime) doGoto(cur *interp.Cursor) (Signal, error) {
	n, ok := readLineNumber(r.State, cur)
	if !ok {
		return SigNone, gwerror.New(gwerror.SyntaxError)
	}
	return r.jumpToLine(n)
}

func (r *Runtime) jumpToLine(n uint16) (Signal, error) {
	if _, _, ok := r.State.Prog.Find(n); !ok {
		return SigNone, gwerror.New(gwerror.UndefinedLineNumber)
	}
	r.State.Cursor = interp.Cursor{Line: n, Offset: 0}
	return SigGoto, nil
}

func (r *Runtime) doGosub(cur *interp.Cursor) (Signal, error) {
	n, ok := readLineNumber(r.State, cur)
	if !ok {
		return SigNone, gwerror.New(gwerror.SyntaxError)
	}
	r.State.GosubStack = append(r.State.GosubStack, interp.GosubFrame{ReturnCursor: *cur})
	return r.jumpToLine(n)
}

func (r *Runtime) doReturn(cur *interp.Cursor) (Signal, error) {
	s := r.State
	if len(s.GosubStack) == 0 {
		return SigNone, gwerror.New(gwerror.ReturnWithoutGosub)
	}
	frame := s.GosubStack[len(s.GosubStack)-1]
	s.GosubStack = s.GosubStack[:len(s.GosubStack)-1]
	switch frame.TrapKind {
	case frameTrapTimer:
		s.Timer.InHandler = false
	case frameTrapKey:
		s.KeyTraps[frame.TrapIndex].InHandler = false
	}
	skipSpaces(s, cur)
	if n, ok := readLineNumber(s, cur); ok {
		return r.jumpToLine(n)
	}
	s.Cursor = frame.ReturnCursor
	return SigGoto, nil
}

// Aliases so control.go doesn't need to import the interp constants
// under a different spelling than the rest of dispatch.
const (
	frameTrapTimer = interp.TrapTimer
	frameTrapKey   = interp.TrapKey
)

// doIf implements IF cond THEN stmts [ELSE stmts]. A bare integer THEN
// operand is GOTO n; otherwise the remainder of the clause executes
// in place. A false condition skips to ELSE (tracked with nesting
// depth) or end-of-line.
func (r *Runtime) doIf(cur *interp.Cursor) (Signal, error) {
	s := r.State
	cond, err := eval.Eval(s, cur)
	if err != nil {
		return SigNone, err
	}
	truthy, err := truthyOperand(cond)
	if err != nil {
		return SigNone, err
	}
	skipSpaces(s, cur)
	viaGoto := false
	if token.Opcode(peekByte(s, cur)) == token.Goto {
		// IF cond GOTO n is THEN n with the GOTO spelled out.
		viaGoto = true
		cur.Offset++
	} else if err := expect(s, cur, byte(token.Then)); err != nil {
		return SigNone, err
	}
	if truthy {
		skipSpaces(s, cur)
		if n, ok := readLineNumber(s, cur); ok {
			return r.jumpToLine(n)
		}
		if viaGoto {
			return SigNone, gwerror.New(gwerror.SyntaxError)
		}
		return SigNone, nil
	}
	if err := skipToElseOrEOL(s, cur); err != nil {
		return SigNone, err
	}
	if peekByte(s, cur) == byte(token.Else) {
		cur.Offset++
		skipSpaces(s, cur)
		if n, ok := readLineNumber(s, cur); ok {
			return r.jumpToLine(n)
		}
	}
	return SigNone, nil
}

func truthyOperand(v value.Value) (bool, error) {
	if v.IsString() {
		return false, gwerror.New(gwerror.TypeMismatch)
	}
	return value.Truthy(v), nil
}

// skipToElseOrEOL scans forward counting nested IF/ELSE (an IF with an
// inline THEN that itself starts a nested IF must not let that nested
// IF's ELSE be mistaken for the outer one), stopping at a same-depth
// ELSE or at end-of-line; ':' separators inside the skipped clause do
// not stop it.
func skipToElseOrEOL(s *interp.State, cur *interp.Cursor) error {
	depth := 0
	for {
		b, ok := s.ByteAt(*cur)
		if !ok {
			return nil
		}
		switch token.Opcode(b) {
		case token.If:
			depth++
			cur.Offset++
		case token.Else:
			if depth == 0 {
				return nil
			}
			depth--
			cur.Offset++
		case token.Rem, token.Squote:
			cur.Offset = lineEnd(s, cur.Line)
		case '"':
			skipStringLiteral(s, cur)
		default:
			cur.Offset += 1 + constPayloadLen(b)
		}
	}
}

// doWhile evaluates WHILE's condition; a nonzero result pushes a frame
// and falls through into the body, a zero result skips to the matching
// WEND.
func (r *Runtime) doWhile(cur *interp.Cursor) (Signal, error) {
	s := r.State
	head := *cur
	head.Offset--
	cond, err := eval.Eval(s, cur)
	if err != nil {
		return SigNone, err
	}
	truthy, err := truthyOperand(cond)
	if err != nil {
		return SigNone, err
	}
	if truthy {
		s.WhileStack = append(s.WhileStack, interp.WhileFrame{HeadCursor: head})
		return SigNone, nil
	}
	return SigNone, skipToMatchingWend(s, cur)
}

func skipToMatchingWend(s *interp.State, cur *interp.Cursor) error {
	depth := 0
	for {
		b, ok := s.ByteAt(*cur)
		if !ok {
			if !advanceToNextLine(s, cur) {
				return gwerror.New(gwerror.WhileWithoutWend)
			}
			continue
		}
		switch token.Opcode(b) {
		case token.While:
			depth++
			cur.Offset++
		case token.Wend:
			cur.Offset++
			if depth == 0 {
				return nil
			}
			depth--
		case '"':
			skipStringLiteral(s, cur)
		default:
			cur.Offset += 1 + constPayloadLen(b)
		}
	}
}

// doWend restores the cursor to the enclosing WHILE so its condition
// re-evaluates.
func (r *Runtime) doWend(cur *interp.Cursor) (Signal, error) {
	s := r.State
	if len(s.WhileStack) == 0 {
		return SigNone, gwerror.New(gwerror.WendWithoutWhile)
	}
	frame := s.WhileStack[len(s.WhileStack)-1]
	s.WhileStack = s.WhileStack[:len(s.WhileStack)-1]
	s.Cursor = frame.HeadCursor
	return SigGoto, nil
}
