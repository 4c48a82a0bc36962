// Program-text statements: LIST/LLIST render stored lines back to
// source, DELETE removes a line range, and SAVE/LOAD/MERGE move whole
// programs between the store and disk in the one-listed-line-per-file-
// line text format.
package dispatch

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/lexer"
	"gwbasic/internal/program"
	"gwbasic/internal/token"
)

// parseLineRange reads LIST/DELETE's [a][-b] operand. A single number
// means that line alone; a leading or trailing '-' leaves that end
// open.
func parseLineRange(s *interp.State, cur *interp.Cursor) (from, to uint16, any bool) {
	from, to = 0, 65529
	skipSpaces(s, cur)
	if n, ok := readLineNumber(s, cur); ok {
		from, to = n, n
		any = true
	}
	skipSpaces(s, cur)
	if token.Opcode(peekByte(s, cur)) == token.Minus || peekByte(s, cur) == '-' {
		cur.Offset++
		to = 65529
		any = true
		skipSpaces(s, cur)
		if n, ok := readLineNumber(s, cur); ok {
			to = n
		}
	}
	return from, to, any
}

// doList implements LIST [a][-b] and LLIST (same output, same terminal:
// there is no separate printer device behind this build).
func (r *Runtime) doList(cur *interp.Cursor) error {
	s := r.State
	from, to, _ := parseLineRange(s, cur)
	for _, l := range s.Prog.All() {
		if l.Num < from {
			continue
		}
		if l.Num > to {
			break
		}
		r.Term.WriteString(fmt.Sprintf("%d %s\n", l.Num, lexer.List(l.Tokens)))
	}
	return nil
}

// doDelete implements DELETE a[-b]. Unlike LIST, DELETE with no operand
// is an error rather than "delete everything" (that is NEW's job).
func (r *Runtime) doDelete(cur *interp.Cursor) error {
	s := r.State
	from, to, any := parseLineRange(s, cur)
	if !any {
		return gwerror.New(gwerror.IllegalFunctionCall)
	}
	if _, _, ok := s.Prog.Find(from); !ok && from == to {
		return gwerror.New(gwerror.IllegalFunctionCall)
	}
	s.Prog.DeleteRange(from, to)
	s.Cont = interp.ContState{}
	return nil
}

// doSave implements SAVE f$[,A]. Both the default and the ,A form write
// the ASCII listing; there is no tokenized-image container format here.
func (r *Runtime) doSave(cur *interp.Cursor) error {
	s := r.State
	path, err := evalStringArg(s, cur)
	if err != nil {
		return err
	}
	skipSpaces(s, cur)
	if peekByte(s, cur) == ',' {
		cur.Offset++
		if !consumeWord(s, cur, "A") && !consumeWord(s, cur, "P") {
			return gwerror.New(gwerror.SyntaxError)
		}
	}
	f, err := os.Create(defaultBasExt(path))
	if err != nil {
		return gwerror.Wrap(gwerror.DeviceIOError, errors.Wrap(err, "save"))
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, l := range s.Prog.All() {
		fmt.Fprintf(w, "%d %s\n", l.Num, lexer.List(l.Tokens))
	}
	if err := w.Flush(); err != nil {
		return gwerror.Wrap(gwerror.DeviceIOError, errors.Wrap(err, "save"))
	}
	return nil
}

// defaultBasExt appends ".BAS" when the name has no extension,
// matching GW-BASIC's file naming.
func defaultBasExt(path string) string {
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if !strings.Contains(base, ".") {
		return path + ".BAS"
	}
	return path
}

// LoadProgramText reads a program listing from path into prog: each
// numbered line is crunched and stored (an empty body deletes), lines
// without a leading line number are ignored. It is the inverse of SAVE
// and is shared by the LOAD/MERGE statements, CHAIN, RUN "file", and
// the CLI's startup loader.
func LoadProgramText(prog *program.Program, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			f, err = os.Open(defaultBasExt(path))
		}
		if err != nil {
			return gwerror.Wrap(gwerror.FileNotFound, errors.Wrap(err, "load"))
		}
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 4096), 4096)
	for sc.Scan() {
		text := strings.TrimRight(sc.Text(), "\r")
		i := 0
		for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
			i++
		}
		start := i
		for i < len(text) && text[i] >= '0' && text[i] <= '9' {
			i++
		}
		if i == start {
			continue
		}
		var num uint32
		for _, d := range text[start:i] {
			num = num*10 + uint32(d-'0')
		}
		if num > 65529 {
			continue
		}
		body := strings.TrimLeft(text[i:], " ")
		if body == "" {
			prog.Delete(uint16(num))
			continue
		}
		toks, err := lexer.Crunch(body)
		if err != nil {
			return err
		}
		prog.Put(uint16(num), toks)
	}
	if err := sc.Err(); err != nil {
		return gwerror.Wrap(gwerror.DeviceIOError, errors.Wrap(err, "load"))
	}
	return nil
}

// doLoad implements LOAD f$[,R]: replace the program (and all runtime
// state, as NEW does) with the file's contents; with ,R the loaded
// program starts running and open files stay open.
func (r *Runtime) doLoad(cur *interp.Cursor) (Signal, error) {
	s := r.State
	path, err := evalStringArg(s, cur)
	if err != nil {
		return SigNone, err
	}
	run := false
	skipSpaces(s, cur)
	if peekByte(s, cur) == ',' {
		cur.Offset++
		if !consumeWord(s, cur, "R") {
			return SigNone, gwerror.New(gwerror.SyntaxError)
		}
		run = true
	}
	s.NewProgram()
	if !run {
		r.Files.CloseAll()
	}
	if err := LoadProgramText(s.Prog, path); err != nil {
		return SigNone, err
	}
	if !run {
		return SigEnd, nil
	}
	first, ok := s.Prog.First()
	if !ok {
		return SigEnd, nil
	}
	s.Running = true
	s.Cursor = interp.Cursor{Line: first.Num, Offset: 0}
	return SigGoto, nil
}

// doMerge implements MERGE f$: LOAD without clearing, so the file's
// lines overlay the stored program line by line.
func (r *Runtime) doMerge(cur *interp.Cursor) error {
	s := r.State
	path, err := evalStringArg(s, cur)
	if err != nil {
		return err
	}
	s.Cont = interp.ContState{}
	return LoadProgramText(s.Prog, path)
}
