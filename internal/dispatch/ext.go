// Extended statements behind the PrefixExtStmt (0xFE) opcode: random-
// file record access (FIELD/PUT/GET/LSET/RSET), the DOS-shell-adjacent
// statements (SHELL, FILES, KILL, NAME, CHDIR/MKDIR/RMDIR, SYSTEM,
// ENVIRON$), COMMON/CHAIN, and the graphics/sound/peripheral statements
// this build has no hardware backing for.
package dispatch

import (
	"os"
	"os/exec"
	"time"

	"gwbasic/internal/eval"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/token"
	"gwbasic/internal/value"
)

// dispatchExtStmt reads the opcode behind PrefixExtStmt and routes to
// the matching statement. VIEW/WINDOW/PMAP/PALETTE/LCOPY/CALLS/ERDEV/
// IOCTL/COM are accepted and skipped: they name adapter viewport and
// port hardware with no analog behind the GraphicsSound interface.
func (r *Runtime) dispatchExtStmt(cur *interp.Cursor) (Signal, error) {
	s := r.State
	op := token.Opcode(peekByte(s, cur))
	cur.Offset++
	switch op {
	case token.XStmtField:
		return SigNone, r.doField(cur)
	case token.XStmtLset:
		return SigNone, r.doLset(cur)
	case token.XStmtRset:
		return SigNone, r.doRset(cur)
	case token.XStmtPut:
		return SigNone, r.doPutFile(cur)
	case token.XStmtGet:
		return SigNone, r.doGetFile(cur)
	case token.XStmtFiles:
		return SigNone, r.doFiles(cur)
	case token.XStmtKill:
		return SigNone, r.doKill(cur)
	case token.XStmtName:
		return SigNone, r.doNameFile(cur)
	case token.XStmtReset:
		r.Files.CloseAll()
		return SigNone, nil
	case token.XStmtChdir:
		return SigNone, r.doChdir(cur)
	case token.XStmtMkdir:
		return SigNone, r.doMkdir(cur)
	case token.XStmtRmdir:
		return SigNone, r.doRmdir(cur)
	case token.XStmtShell:
		return SigNone, r.doShell(cur)
	case token.XStmtSystem:
		s.Running = false
		s.SystemRequested = true
		r.Files.CloseAll()
		return SigEnd, nil
	case token.XStmtEnviron:
		return SigNone, r.doEnvironAssign(cur)
	case token.XStmtCommon:
		return SigNone, r.doCommon(cur)
	case token.XStmtChain:
		return r.doChain(cur)
	case token.XStmtDate:
		return SigNone, r.doDateAssign(cur)
	case token.XStmtTime:
		return SigNone, r.doTimeAssign(cur)
	case token.XStmtCircle:
		return SigNone, r.doCircle(cur)
	case token.XStmtDraw:
		return SigNone, r.doMML(cur, r.GFX.Draw)
	case token.XStmtPaint:
		return SigNone, r.doPaint(cur)
	case token.XStmtPlay:
		return SigNone, r.doMML(cur, r.GFX.Play)
	case token.XStmtTimer:
		return SigNone, r.doTimerState(cur)
	case token.XStmtView, token.XStmtWindow, token.XStmtPmap, token.XStmtPalette,
		token.XStmtLcopy, token.XStmtCalls, token.XStmtErdev, token.XStmtIoctl,
		token.XStmtCom:
		skipStatementBody(s, cur)
		return SigNone, nil
	}
	return SigNone, gwerror.New(gwerror.SyntaxError)
}

// doWriteConsole implements the bare (non-file-channel) WRITE
// statement: comma-separated expressions, strings quoted, always
// newline-terminated regardless of a trailing separator (unlike
// PRINT).
func (r *Runtime) doWriteConsole(cur *interp.Cursor) error {
	s := r.State
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
		first = false
	}
	b = append(b, '\n')
	r.Term.WriteString(string(b))
	return nil
}

// doLineDispatch disambiguates LINE INPUT (console or file) from the
// graphics LINE (x1,y1)-(x2,y2)[,color[,B|BF]] statement, which shares
// the LINE keyword but has no further relation to it.
func (r *Runtime) doLineDispatch(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	if token.Opcode(peekByte(s, cur)) == token.Input {
		cur.Offset++
		skipSpaces(s, cur)
		if peekByte(s, cur) == '#' {
			return r.doLineInputFile(cur)
		}
		return r.doLineInputConsole(cur)
	}
	return r.doLineGraphics(cur)
}

// doField implements FIELD #n, width AS var$[, width AS var$...],
// carving the record buffer into named string-variable views and
// populating each from the buffer's current contents.
func (r *Runtime) doField(cur *interp.Cursor) error {
	s := r.State
	fn, err := readFileNumber(s, cur)
	if err != nil {
		return err
	}
	buf, err := r.Files.FieldBuffer(fn)
	if err != nil {
		return err
	}
	var slots []interp.FieldSlot
	offset := 0
	for {
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
		}
		skipSpaces(s, cur)
		wv, err := eval.Eval(s, cur)
		if err != nil {
			return err
		}
		width, err := toIntOperand(wv)
		if err != nil {
			return err
		}
		skipSpaces(s, cur)
		if !consumeWord(s, cur, "AS") {
			return gwerror.New(gwerror.SyntaxError)
		}
		skipSpaces(s, cur)
		name, typ := eval.ParseName(s, cur)
		if typ != value.Str {
			return gwerror.New(gwerror.TypeMismatch)
		}
		if width < 0 || offset+int(width) > len(buf) {
			return gwerror.New(gwerror.FieldOverflow)
		}
		slots = append(slots, interp.FieldSlot{Name: name, Offset: offset, Width: int(width)})
		offset += int(width)
		skipSpaces(s, cur)
		if peekByte(s, cur) != ',' {
			break
		}
	}
	s.Fields[fn] = slots
	refreshFieldVars(s, fn, buf)
	return nil
}

// refreshFieldVars copies each FIELD slot's current buffer bytes into
// its variable, the way a freshly FIELD'd or just-GET'd record becomes
// visible.
func refreshFieldVars(s *interp.State, fn int, buf []byte) {
	for _, slot := range s.Fields[fn] {
		v, err := value.StrVal(buf[slot.Offset : slot.Offset+slot.Width])
		if err != nil {
			continue
		}
		s.Vars[interp.VarKey{Name: slot.Name, Typ: value.Str}] = v
	}
}

// findFieldSlot locates which open file (if any) FIELD'd name$ into its
// record buffer, for LSET/RSET.
func findFieldSlot(s *interp.State, name string) (fileNum int, slot interp.FieldSlot, ok bool) {
	for fn, slots := range s.Fields {
		for _, sl := range slots {
			if sl.Name == name {
				return fn, sl, true
			}
		}
	}
	return 0, interp.FieldSlot{}, false
}

// doLset implements LSET var$ = expr$: left-justifies expr$ into var$'s
// width, space-padded on the right, and writes through into the
// record buffer when var$ is a FIELD'd name.
func (r *Runtime) doLset(cur *interp.Cursor) error { return r.doJustifiedSet(cur, true) }

// doRset implements RSET var$ = expr$: right-justifies instead.
func (r *Runtime) doRset(cur *interp.Cursor) error { return r.doJustifiedSet(cur, false) }

func (r *Runtime) doJustifiedSet(cur *interp.Cursor, left bool) error {
	s := r.State
	skipSpaces(s, cur)
	name, typ := eval.ParseName(s, cur)
	if typ != value.Str {
		return gwerror.New(gwerror.TypeMismatch)
	}
	skipSpaces(s, cur)
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
	fn, slot, isField := findFieldSlot(s, name)
	width := len(rhs.Str)
	if isField {
		width = slot.Width
	} else if existing, ok := s.Vars[interp.VarKey{Name: name, Typ: value.Str}]; ok {
		width = len(existing.Str)
	}
	out := justify(rhs.Str, width, left)
	v, err := value.StrVal(out)
	if err != nil {
		return err
	}
	s.Vars[interp.VarKey{Name: name, Typ: value.Str}] = v
	if isField {
		buf, err := r.Files.FieldBuffer(fn)
		if err != nil {
			return err
		}
		copy(buf[slot.Offset:slot.Offset+slot.Width], out)
	}
	return nil
}

func justify(src []byte, width int, left bool) []byte {
	out := make([]byte, width)
	for i := range out {
		out[i] = ' '
	}
	n := len(src)
	if n > width {
		n = width
	}
	if left {
		copy(out, src[:n])
	} else {
		copy(out[width-n:], src[:n])
	}
	return out
}

// doPutFile implements PUT #n[,recordNum]: writes the current record
// buffer (as left by FIELD/LSET/RSET) to disk.
func (r *Runtime) doPutFile(cur *interp.Cursor) error {
	s := r.State
	fn, rec, err := readFileNumberAndRecord(s, cur)
	if err != nil {
		return err
	}
	return r.Files.Put(fn, rec)
}

// doGetFile implements GET #n[,recordNum]: reads a record into the
// buffer and refreshes every FIELD'd variable from it.
func (r *Runtime) doGetFile(cur *interp.Cursor) error {
	s := r.State
	fn, rec, err := readFileNumberAndRecord(s, cur)
	if err != nil {
		return err
	}
	if err := r.Files.Get(fn, rec); err != nil {
		return err
	}
	buf, err := r.Files.FieldBuffer(fn)
	if err != nil {
		return err
	}
	refreshFieldVars(s, fn, buf)
	return nil
}

func readFileNumberAndRecord(s *interp.State, cur *interp.Cursor) (fn int, rec int64, err error) {
	fn, err = readFileNumber(s, cur)
	if err != nil {
		return 0, 0, err
	}
	skipSpaces(s, cur)
	if peekByte(s, cur) != ',' {
		return fn, 0, nil
	}
	cur.Offset++
	skipSpaces(s, cur)
	v, err := eval.Eval(s, cur)
	if err != nil {
		return 0, 0, err
	}
	return fn, int64(value.ToDbl(v)), nil
}

// doFiles implements FILES [filespec$]: lists the matching directory
// entries to the terminal, the closest portable equivalent of DOS's
// directory listing.
func (r *Runtime) doFiles(cur *interp.Cursor) error {
	s := r.State
	dir := "."
	skipSpaces(s, cur)
	if !atEOL(s, cur) {
		v, err := eval.Eval(s, cur)
		if err != nil {
			return err
		}
		if !v.IsString() {
			return gwerror.New(gwerror.TypeMismatch)
		}
		dir = string(v.Str)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return gwerror.Wrap(gwerror.PathNotFound, err)
	}
	for _, e := range entries {
		r.Term.WriteString(e.Name() + "\n")
	}
	return nil
}

// doKill implements KILL filespec$.
func (r *Runtime) doKill(cur *interp.Cursor) error {
	name, err := evalStringArg(r.State, cur)
	if err != nil {
		return err
	}
	if err := os.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return gwerror.New(gwerror.FileNotFound)
		}
		return gwerror.Wrap(gwerror.DeviceIOError, err)
	}
	return nil
}

// doNameFile implements NAME oldname$ AS newname$.
func (r *Runtime) doNameFile(cur *interp.Cursor) error {
	s := r.State
	oldName, err := evalStringArg(s, cur)
	if err != nil {
		return err
	}
	skipSpaces(s, cur)
	if !consumeWord(s, cur, "AS") {
		return gwerror.New(gwerror.SyntaxError)
	}
	skipSpaces(s, cur)
	newName, err := evalStringArg(s, cur)
	if err != nil {
		return err
	}
	if err := os.Rename(oldName, newName); err != nil {
		if os.IsNotExist(err) {
			return gwerror.New(gwerror.FileNotFound)
		}
		return gwerror.Wrap(gwerror.DeviceIOError, err)
	}
	return nil
}

func (r *Runtime) doChdir(cur *interp.Cursor) error {
	name, err := evalStringArg(r.State, cur)
	if err != nil {
		return err
	}
	if err := os.Chdir(name); err != nil {
		return gwerror.Wrap(gwerror.PathNotFound, err)
	}
	return nil
}

func (r *Runtime) doMkdir(cur *interp.Cursor) error {
	name, err := evalStringArg(r.State, cur)
	if err != nil {
		return err
	}
	if err := os.Mkdir(name, 0755); err != nil {
		return gwerror.Wrap(gwerror.PathNotFound, err)
	}
	return nil
}

func (r *Runtime) doRmdir(cur *interp.Cursor) error {
	name, err := evalStringArg(r.State, cur)
	if err != nil {
		return err
	}
	if err := os.Remove(name); err != nil {
		return gwerror.Wrap(gwerror.PathNotFound, err)
	}
	return nil
}

func evalStringArg(s *interp.State, cur *interp.Cursor) (string, error) {
	skipSpaces(s, cur)
	v, err := eval.Eval(s, cur)
	if err != nil {
		return "", err
	}
	if !v.IsString() {
		return "", gwerror.New(gwerror.TypeMismatch)
	}
	return string(v.Str), nil
}

// doShell implements SHELL [command$]: a bare SHELL drops into an
// interactive shell (here, $SHELL or the platform default); SHELL
// command$ runs one command and returns once it exits, the way DOS's
// COMMAND.COM /C did.
func (r *Runtime) doShell(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	shellPath := os.Getenv("SHELL")
	if shellPath == "" {
		shellPath = "/bin/sh"
	}
	var cmd *exec.Cmd
	if atEOL(s, cur) {
		cmd = exec.Command(shellPath)
	} else {
		line, err := evalStringArg(s, cur)
		if err != nil {
			return err
		}
		cmd = exec.Command(shellPath, "-c", line)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return gwerror.Wrap(gwerror.DeviceIOError, err)
	}
	return nil
}

// doEnvironAssign implements ENVIRON name=value$ (the statement form;
// ENVIRON$(name) reading is a function, not this statement).
func (r *Runtime) doEnvironAssign(cur *interp.Cursor) error {
	spec, err := evalStringArg(r.State, cur)
	if err != nil {
		return err
	}
	for i := 0; i < len(spec); i++ {
		if spec[i] == '=' {
			if err := os.Setenv(spec[:i], spec[i+1:]); err != nil {
				return gwerror.Wrap(gwerror.IllegalFunctionCall, err)
			}
			return nil
		}
	}
	return gwerror.New(gwerror.IllegalFunctionCall)
}

// doCommon implements COMMON var[,var...]: names preserved across
// CHAIN, appended rather than replaced so multiple COMMON statements
// accumulate the way GW-BASIC's do.
func (r *Runtime) doCommon(cur *interp.Cursor) error {
	s := r.State
	for {
		skipSpaces(s, cur)
		name, _ := eval.ParseName(s, cur)
		if name == "" {
			return gwerror.New(gwerror.SyntaxError)
		}
		s.Common = append(s.Common, name)
		skipSpaces(s, cur)
		if peekByte(s, cur) != ',' {
			return nil
		}
		cur.Offset++
	}
}

// doChain implements CHAIN filename$[,line][,ALL]: load the named
// program (replacing the stored one) and run it, preserving the
// COMMON-declared variables — or every variable with ,ALL.
func (r *Runtime) doChain(cur *interp.Cursor) (Signal, error) {
	s := r.State
	path, err := evalStringArg(s, cur)
	if err != nil {
		return SigNone, err
	}
	var target uint16
	haveTarget := false
	allCommon := false
	for {
		skipSpaces(s, cur)
		if peekByte(s, cur) != ',' {
			break
		}
		cur.Offset++
		skipSpaces(s, cur)
		if consumeWord(s, cur, "ALL") {
			allCommon = true
			continue
		}
		if consumeWord(s, cur, "DELETE") {
			cur.Offset = lineEnd(s, cur.Line)
			continue
		}
		if n, ok := readLineNumber(s, cur); ok {
			target, haveTarget = n, true
		}
	}

	preserved := map[interp.VarKey]value.Value{}
	if allCommon {
		for k, v := range s.Vars {
			preserved[k] = v.Clone()
		}
	} else {
		for _, name := range s.Common {
			for _, typ := range [...]value.Type{value.Int, value.Sng, value.Dbl, value.Str} {
				key := interp.VarKey{Name: name, Typ: typ}
				if v, ok := s.Vars[key]; ok {
					preserved[key] = v.Clone()
				}
			}
		}
	}
	common := s.Common
	s.Clear()
	r.Files.CloseAll()
	s.Common = common
	s.Prog.Clear()
	if err := LoadProgramText(s.Prog, path); err != nil {
		s.Running = false
		return SigNone, err
	}
	for k, v := range preserved {
		s.Vars[k] = v
	}
	s.Running = true
	if haveTarget {
		if _, _, ok := s.Prog.Find(target); !ok {
			return SigNone, gwerror.New(gwerror.UndefinedLineNumber)
		}
		s.Cursor = interp.Cursor{Line: target, Offset: 0}
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

// doDateAssign implements DATE$ = datestring$. GW-BASIC sets
// the DOS system clock; reaching out to set the host OS's real-time
// clock from a user program is both unportable and unsafe for a
// library embedding this interpreter, so this validates the format
// (trapping Illegal function call the way GW-BASIC does on a
// malformed string) without touching the real clock.
func (r *Runtime) doDateAssign(cur *interp.Cursor) error {
	s := r.State
	if err := expect(s, cur, byte(token.Eq)); err != nil {
		return err
	}
	v, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	if !v.IsString() {
		return gwerror.New(gwerror.TypeMismatch)
	}
	str := string(v.Str)
	if _, err := time.Parse("01-02-2006", str); err != nil {
		if _, err2 := time.Parse("01-02-06", str); err2 != nil {
			return gwerror.New(gwerror.IllegalFunctionCall)
		}
	}
	return nil
}

// doTimeAssign implements TIME$ = timestring$, with the same
// host-clock caveat as doDateAssign.
func (r *Runtime) doTimeAssign(cur *interp.Cursor) error {
	s := r.State
	if err := expect(s, cur, byte(token.Eq)); err != nil {
		return err
	}
	v, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	if !v.IsString() {
		return gwerror.New(gwerror.TypeMismatch)
	}
	str := string(v.Str)
	if _, err := time.Parse("15:04:05", str); err != nil {
		if _, err2 := time.Parse("15:04", str); err2 != nil {
			return gwerror.New(gwerror.IllegalFunctionCall)
		}
	}
	return nil
}
