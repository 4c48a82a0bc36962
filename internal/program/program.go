// Package program stores a crunched GW-BASIC program as a sequence of
// lines ordered by line number, supporting the edit operations
// (insert/replace/delete-by-number) and the sequential/jump access
// patterns RUN, LIST, GOTO and GOSUB need.
//
// GW-BASIC kept this as a singly-linked list of line nodes; a sorted
// slice gives the same ordering and O(log n) lookup with none of the
// list-node bookkeeping.
package program

import "sort"

// Line is one stored program line: its number and the crunched token
// bytes that follow it (no leading line-number bytes; the NUL
// terminator that lexer.Crunch emits is kept at the end).
type Line struct {
	Num    uint16
	Tokens []byte
}

// Program is the sorted, mutable store of a loaded listing.
type Program struct {
	lines []Line
}

// New returns an empty program.
func New() *Program {
	return &Program{}
}

func (p *Program) search(num uint16) (int, bool) {
	i := sort.Search(len(p.lines), func(i int) bool { return p.lines[i].Num >= num })
	if i < len(p.lines) && p.lines[i].Num == num {
		return i, true
	}
	return i, false
}

// Put inserts or replaces the line numbered num. Storing a line with no
// tokens deletes it instead, matching GW-BASIC's "line number alone
// removes the line" rule.
func (p *Program) Put(num uint16, tokens []byte) {
	if len(tokens) == 0 {
		p.Delete(num)
		return
	}
	i, found := p.search(num)
	if found {
		p.lines[i].Tokens = tokens
		return
	}
	p.lines = append(p.lines, Line{})
	copy(p.lines[i+1:], p.lines[i:])
	p.lines[i] = Line{Num: num, Tokens: tokens}
}

// Delete removes the line numbered num, if present.
func (p *Program) Delete(num uint16) {
	i, found := p.search(num)
	if !found {
		return
	}
	p.lines = append(p.lines[:i], p.lines[i+1:]...)
}

// DeleteRange removes every stored line with from <= Num <= to.
func (p *Program) DeleteRange(from, to uint16) {
	lo, _ := p.search(from)
	hi := lo
	for hi < len(p.lines) && p.lines[hi].Num <= to {
		hi++
	}
	p.lines = append(p.lines[:lo], p.lines[hi:]...)
}

// Clear empties the program (NEW).
func (p *Program) Clear() {
	p.lines = nil
}

// Len reports the number of stored lines.
func (p *Program) Len() int { return len(p.lines) }

// At returns the line at sequential position i (0-based), and whether i
// was in range.
func (p *Program) At(i int) (Line, bool) {
	if i < 0 || i >= len(p.lines) {
		return Line{}, false
	}
	return p.lines[i], true
}

// Find returns the stored line numbered num, if any, and its sequential
// index.
func (p *Program) Find(num uint16) (Line, int, bool) {
	i, found := p.search(num)
	if !found {
		return Line{}, 0, false
	}
	return p.lines[i], i, true
}

// IndexOrAfter returns the sequential index of the line numbered num, or
// of the first stored line with a greater number if num itself is not
// stored (GOTO/GOSUB to a line between two stored lines still needs a
// deterministic successor for error reporting, but GW-BASIC itself
// traps this as Undefined line number — callers check the exact-match
// bool before falling back to this).
func (p *Program) IndexOrAfter(num uint16) int {
	i, _ := p.search(num)
	return i
}

// All returns every stored line, in ascending order. The returned slice
// aliases internal storage and must not be mutated by the caller.
func (p *Program) All() []Line {
	return p.lines
}

// First and Last return the lowest- and highest-numbered stored lines.
func (p *Program) First() (Line, bool) {
	if len(p.lines) == 0 {
		return Line{}, false
	}
	return p.lines[0], true
}

func (p *Program) Last() (Line, bool) {
	if len(p.lines) == 0 {
		return Line{}, false
	}
	return p.lines[len(p.lines)-1], true
}
