// Graphics, sound and peripheral statements. Coordinates and arguments
// are fully parsed and type-checked before being handed to the
// GraphicsSound sink, so a program with a bad PSET argument fails the
// same way whether or not anything renders.
package dispatch

import (
	"gwbasic/internal/eval"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/token"
	"gwbasic/internal/value"
)

// parseCoordPair reads [STEP](x,y). The STEP prefix marks a
// last-point-relative coordinate; the null sink has no last point, so
// both forms resolve to the parsed values.
func parseCoordPair(s *interp.State, cur *interp.Cursor) (x, y int16, err error) {
	skipSpaces(s, cur)
	if token.Opcode(peekByte(s, cur)) == token.Step {
		cur.Offset++
		skipSpaces(s, cur)
	}
	if err = expect(s, cur, '('); err != nil {
		return
	}
	if x, err = evalIntExpr(s, cur); err != nil {
		return
	}
	if err = expect(s, cur, ','); err != nil {
		return
	}
	if y, err = evalIntExpr(s, cur); err != nil {
		return
	}
	err = expect(s, cur, ')')
	return
}

// optionalIntArg consumes ",expr" if present. A bare ',' with nothing
// behind it (as in LINE (0,0)-(1,1),,B) leaves def in place.
func optionalIntArg(s *interp.State, cur *interp.Cursor, def int16) (int16, error) {
	skipSpaces(s, cur)
	if peekByte(s, cur) != ',' {
		return def, nil
	}
	cur.Offset++
	skipSpaces(s, cur)
	if b := peekByte(s, cur); b == ',' || b == 0 || token.Opcode(b) == token.Colon {
		return def, nil
	}
	return evalIntExpr(s, cur)
}

func optionalFloatExpr(s *interp.State, cur *interp.Cursor, def float64) (float64, error) {
	skipSpaces(s, cur)
	if peekByte(s, cur) != ',' {
		return def, nil
	}
	cur.Offset++
	skipSpaces(s, cur)
	if b := peekByte(s, cur); b == ',' || b == 0 || token.Opcode(b) == token.Colon {
		return def, nil
	}
	v, err := eval.Eval(s, cur)
	if err != nil {
		return def, err
	}
	if v.IsString() {
		return def, gwerror.New(gwerror.TypeMismatch)
	}
	return value.ToDbl(v), nil
}

func (r *Runtime) doPset(cur *interp.Cursor, set bool) error {
	s := r.State
	x, y, err := parseCoordPair(s, cur)
	if err != nil {
		return err
	}
	color := int16(15)
	if !set {
		color = 0 // PRESET defaults to the background color
	}
	if color, err = optionalIntArg(s, cur, color); err != nil {
		return err
	}
	r.GFX.Pset(int(x), int(y), int(color))
	return nil
}

// doLineGraphics implements LINE [(x1,y1)]-(x2,y2)[,[color][,B[F]]].
// An omitted first point starts from (0,0) under the null sink.
func (r *Runtime) doLineGraphics(cur *interp.Cursor) error {
	s := r.State
	var x1, y1 int16
	var err error
	skipSpaces(s, cur)
	if b := token.Opcode(peekByte(s, cur)); b == '(' || b == token.Step {
		if x1, y1, err = parseCoordPair(s, cur); err != nil {
			return err
		}
	}
	skipSpaces(s, cur)
	if err = expect(s, cur, byte(token.Minus)); err != nil {
		return err
	}
	x2, y2, err := parseCoordPair(s, cur)
	if err != nil {
		return err
	}
	color, err := optionalIntArg(s, cur, 15)
	if err != nil {
		return err
	}
	style := ""
	skipSpaces(s, cur)
	if peekByte(s, cur) == ',' {
		cur.Offset++
		if consumeWord(s, cur, "BF") {
			style = "BF"
		} else if consumeWord(s, cur, "B") {
			style = "B"
		} else {
			return gwerror.New(gwerror.SyntaxError)
		}
	}
	r.GFX.Line(int(x1), int(y1), int(x2), int(y2), int(color), style)
	return nil
}

// doCircle implements CIRCLE (x,y),r[,color[,start[,end[,aspect]]]].
func (r *Runtime) doCircle(cur *interp.Cursor) error {
	s := r.State
	x, y, err := parseCoordPair(s, cur)
	if err != nil {
		return err
	}
	if err = expect(s, cur, ','); err != nil {
		return err
	}
	radius, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	color, err := optionalIntArg(s, cur, 15)
	if err != nil {
		return err
	}
	start, err := optionalFloatExpr(s, cur, 0)
	if err != nil {
		return err
	}
	end, err := optionalFloatExpr(s, cur, 0)
	if err != nil {
		return err
	}
	aspect, err := optionalFloatExpr(s, cur, 1)
	if err != nil {
		return err
	}
	r.GFX.Circle(int(x), int(y), int(radius), int(color), start, end, aspect)
	return nil
}

// doPaint implements PAINT (x,y)[,paint[,border]].
func (r *Runtime) doPaint(cur *interp.Cursor) error {
	s := r.State
	x, y, err := parseCoordPair(s, cur)
	if err != nil {
		return err
	}
	paint, err := optionalIntArg(s, cur, 15)
	if err != nil {
		return err
	}
	border, err := optionalIntArg(s, cur, paint)
	if err != nil {
		return err
	}
	r.GFX.Paint(int(x), int(y), int(paint), int(border))
	return nil
}

// doMML implements DRAW mml$ and PLAY mml$, which both take a single
// macro-language string.
func (r *Runtime) doMML(cur *interp.Cursor, sink func(string)) error {
	mml, err := evalStringArg(r.State, cur)
	if err != nil {
		return err
	}
	sink(mml)
	return nil
}

// doColor implements COLOR [fg][,[bg][,border]].
func (r *Runtime) doColor(cur *interp.Cursor) error {
	s := r.State
	fg := int16(7)
	skipSpaces(s, cur)
	var err error
	if b := peekByte(s, cur); b != ',' && b != 0 && token.Opcode(b) != token.Colon {
		if fg, err = evalIntExpr(s, cur); err != nil {
			return err
		}
	}
	bg, err := optionalIntArg(s, cur, 0)
	if err != nil {
		return err
	}
	border, err := optionalIntArg(s, cur, 0)
	if err != nil {
		return err
	}
	r.GFX.SetColor(int(fg), int(bg), int(border))
	return nil
}

// doScreen implements SCREEN mode[,burst[,apage[,vpage]]]; only the mode
// reaches the sink, the page arguments are display-adapter state.
func (r *Runtime) doScreen(cur *interp.Cursor) error {
	s := r.State
	mode, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if _, err = optionalIntArg(s, cur, 0); err != nil {
			return err
		}
	}
	r.GFX.ScreenMode(int(mode))
	return nil
}

// doLocate implements LOCATE [row][,col]; the cursor-shape arguments
// GW-BASIC also accepts here are consumed and ignored.
func (r *Runtime) doLocate(cur *interp.Cursor) error {
	s := r.State
	row := int16(r.Term.Row())
	skipSpaces(s, cur)
	var err error
	if b := peekByte(s, cur); b != ',' && b != 0 && token.Opcode(b) != token.Colon {
		if row, err = evalIntExpr(s, cur); err != nil {
			return err
		}
	}
	col, err := optionalIntArg(s, cur, int16(r.Term.Col()))
	if err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if _, err = optionalIntArg(s, cur, 0); err != nil {
			return err
		}
	}
	if row < 1 || col < 1 {
		return gwerror.New(gwerror.IllegalFunctionCall)
	}
	r.Term.Locate(int(row), int(col))
	return nil
}

// doSound implements SOUND freq,duration (duration in clock ticks of
// 1/18.2s, converted to milliseconds for the sink).
func (r *Runtime) doSound(cur *interp.Cursor) error {
	s := r.State
	freq, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	if err = expect(s, cur, ','); err != nil {
		return err
	}
	dur, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	if dur.IsString() {
		return gwerror.New(gwerror.TypeMismatch)
	}
	ticks := value.ToDbl(dur)
	if freq < 37 || ticks < 0 {
		return gwerror.New(gwerror.IllegalFunctionCall)
	}
	r.GFX.Tone(int(freq), int(ticks*1000/18.2))
	return nil
}

// doWidth implements WIDTH n: only 40 and 80 are valid on the text
// screen. The console terminal's width is fixed, so the value is
// validated and dropped.
func (r *Runtime) doWidth(cur *interp.Cursor) error {
	n, err := evalIntExpr(r.State, cur)
	if err != nil {
		return err
	}
	if n != 40 && n != 80 {
		return gwerror.New(gwerror.IllegalFunctionCall)
	}
	return nil
}

// doPoke implements POKE addr,val and doOut OUT port,val, both routed to
// the Host peripheral interface.
func (r *Runtime) doPoke(cur *interp.Cursor) error {
	s := r.State
	addr, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	if err = expect(s, cur, ','); err != nil {
		return err
	}
	val, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	if val < 0 || val > 255 {
		return gwerror.New(gwerror.IllegalFunctionCall)
	}
	s.Host.Poke(int(uint16(addr)), val)
	return nil
}

func (r *Runtime) doOut(cur *interp.Cursor) error {
	s := r.State
	port, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	if err = expect(s, cur, ','); err != nil {
		return err
	}
	val, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	if val < 0 || val > 255 {
		return gwerror.New(gwerror.IllegalFunctionCall)
	}
	s.Host.Out(int(uint16(port)), val)
	return nil
}

// doWait implements WAIT port,and[,xor]. The blocking semantics (spin
// until (INP(port) XOR xor) AND and is nonzero) are checked once: a
// host port that answers the first probe with a dead value would never
// change on later probes either, and spinning on it would hang the
// single-threaded run loop with no way to break.
func (r *Runtime) doWait(cur *interp.Cursor) error {
	s := r.State
	port, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	if err = expect(s, cur, ','); err != nil {
		return err
	}
	andMask, err := evalIntExpr(s, cur)
	if err != nil {
		return err
	}
	xorMask, err := optionalIntArg(s, cur, 0)
	if err != nil {
		return err
	}
	_ = (s.Host.Inp(int(uint16(port))) ^ xorMask) & andMask
	return nil
}

// doKey dispatches the KEY statement family: KEY(n) ON/OFF/STOP drives
// the key-trap state machine; KEY ON/OFF/LIST controls the function-key
// bar (no-op without the full-screen TUI); KEY n,text$ reprograms a soft
// key (accepted, not stored — the bar that would display it is the same
// absent TUI).
func (r *Runtime) doKey(cur *interp.Cursor) (Signal, error) {
	s := r.State
	skipSpaces(s, cur)
	if peekByte(s, cur) == '(' {
		cur.Offset++
		n, err := evalIntExpr(s, cur)
		if err != nil {
			return SigNone, err
		}
		if err = expect(s, cur, ')'); err != nil {
			return SigNone, err
		}
		if n < 1 || n > 10 {
			return SigNone, gwerror.New(gwerror.IllegalFunctionCall)
		}
		trap := &s.KeyTraps[n-1]
		return SigNone, r.setTrapMode(cur, &trap.Mode, &trap.Pending)
	}
	switch token.Opcode(peekByte(s, cur)) {
	case token.On, token.Off, token.List:
		cur.Offset++
		return SigNone, nil
	}
	n, err := evalIntExpr(s, cur)
	if err != nil {
		return SigNone, err
	}
	if err = expect(s, cur, ','); err != nil {
		return SigNone, err
	}
	if _, err = evalStringArg(s, cur); err != nil {
		return SigNone, err
	}
	if n < 1 || n > 10 {
		return SigNone, gwerror.New(gwerror.IllegalFunctionCall)
	}
	return SigNone, nil
}

// doTimerState implements TIMER ON/OFF/STOP.
func (r *Runtime) doTimerState(cur *interp.Cursor) error {
	s := r.State
	return r.setTrapMode(cur, &s.Timer.Mode, &s.Timer.Pending)
}

// setTrapMode consumes the trailing ON/OFF/STOP keyword and applies the
// transition. OFF discards any pending fire; a Stop->On transition
// leaves Pending set so the next poll point fires it.
func (r *Runtime) setTrapMode(cur *interp.Cursor, mode *interp.TrapMode, pending *bool) error {
	s := r.State
	skipSpaces(s, cur)
	switch {
	case token.Opcode(peekByte(s, cur)) == token.On:
		cur.Offset++
		*mode = interp.TrapOn
	case token.Opcode(peekByte(s, cur)) == token.Off:
		cur.Offset++
		*mode = interp.TrapOff
		*pending = false
	case token.Opcode(peekByte(s, cur)) == token.Stop:
		cur.Offset++
		*mode = interp.TrapStop
	default:
		return gwerror.New(gwerror.SyntaxError)
	}
	return nil
}
