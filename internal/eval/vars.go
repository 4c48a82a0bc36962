package eval

import (
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/value"
)

// ParseName reads LETTER[LETTER-OR-DIGIT]*[TYPE-SUFFIX], returning the
// normalized (at most 2 significant letters/digits, per GW-BASIC's
// classic name-truncation rule) name and its resolved type.
func ParseName(s *interp.State, cur *interp.Cursor) (string, value.Type) {
	toks, _ := s.LineTokens(cur.Line)
	start := cur.Offset
	for cur.Offset < len(toks) && isNameByte(toks[cur.Offset]) {
		cur.Offset++
	}
	raw := string(toks[start:cur.Offset])
	if raw == "" {
		return "", value.Sng
	}
	typ := s.DefaultType(upperByte(raw[0]))
	if cur.Offset < len(toks) {
		switch toks[cur.Offset] {
		case '%':
			typ = value.Int
			cur.Offset++
		case '!':
			typ = value.Sng
			cur.Offset++
		case '#':
			typ = value.Dbl
			cur.Offset++
		case '$':
			typ = value.Str
			cur.Offset++
		}
	}
	name := raw
	if len(name) > 2 {
		name = name[:2]
	}
	return upperName(name), typ
}

func isNameByte(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}

func upperName(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = upperByte(s[i])
	}
	return string(out)
}

// parseVariableOrCall reads a bare identifier. A trailing '(' makes it
// an array reference; otherwise it is a scalar variable, defaulting to
// the type's zero value if never assigned.
func parseVariableOrCall(s *interp.State, cur *interp.Cursor) (value.Value, error) {
	name, typ := ParseName(s, cur)
	skipSpaces(s, cur)
	if peek(s, cur) == '(' {
		return evalArrayRef(s, cur, name, typ)
	}
	key := interp.VarKey{Name: name, Typ: typ}
	if v, ok := s.Vars[key]; ok {
		return v, nil
	}
	return value.Default(typ), nil
}

func parseArgList(s *interp.State, cur *interp.Cursor) ([]value.Value, error) {
	skipSpaces(s, cur)
	if peek(s, cur) != '(' {
		return nil, gwerror.New(gwerror.SyntaxError)
	}
	cur.Offset++
	var args []value.Value
	for {
		skipSpaces(s, cur)
		if peek(s, cur) == ')' {
			cur.Offset++
			return args, nil
		}
		v, err := Eval(s, cur)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		skipSpaces(s, cur)
		if peek(s, cur) == ',' {
			cur.Offset++
			continue
		}
		if peek(s, cur) == ')' {
			cur.Offset++
			return args, nil
		}
		return nil, gwerror.New(gwerror.SyntaxError)
	}
}

// evalArrayRef evaluates A(i,j,...), auto-dimensioning A on first
// reference with an upper bound of 10 in each subscript position.
func evalArrayRef(s *interp.State, cur *interp.Cursor, name string, typ value.Type) (value.Value, error) {
	subs, err := parseArgList(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	key := interp.VarKey{Name: name, Typ: typ}
	arr, ok := s.Arrays[key]
	if !ok {
		// Implicit DIM: upper bound 10 in every subscript position.
		dims := make([]int, len(subs))
		for i := range dims {
			dims[i] = 11 - s.OptionBase
		}
		arr = &interp.Array{Dims: dims, Elements: makeDefaults(typ, dimsProduct(dims))}
		s.Arrays[key] = arr
	}
	idxs, err := subsToIndexes(s, subs)
	if err != nil {
		return value.Value{}, err
	}
	flat, ok := arr.Index(idxs)
	if !ok {
		return value.Value{}, gwerror.New(gwerror.SubscriptOutOfRange)
	}
	return arr.Elements[flat], nil
}

func subsToIndexes(s *interp.State, subs []value.Value) ([]int, error) {
	idxs := make([]int, len(subs))
	for i, v := range subs {
		if v.IsString() {
			return nil, gwerror.New(gwerror.TypeMismatch)
		}
		n, err := value.CInt(value.ToDbl(v))
		if err != nil {
			return nil, err
		}
		idxs[i] = int(n) - s.OptionBase
	}
	return idxs, nil
}

func dimsProduct(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func makeDefaults(typ value.Type, n int) []value.Value {
	out := make([]value.Value, n)
	def := value.Default(typ)
	for i := range out {
		out[i] = def
	}
	return out
}

// parseFnCall evaluates FN letter(arg), binding the parameter for the
// duration of the call and restoring it afterward.
func parseFnCall(s *interp.State, cur *interp.Cursor) (value.Value, error) {
	cur.Offset++ // consume FN
	skipSpaces(s, cur)
	toks, _ := s.LineTokens(cur.Line)
	if cur.Offset >= len(toks) || !isAlphaByte(toks[cur.Offset]) {
		return value.Value{}, gwerror.New(gwerror.SyntaxError)
	}
	letter := upperByte(toks[cur.Offset])
	// Consume the function's own name characters the way a variable
	// name would be consumed; DEF FN definitions are keyed by a 26-entry
	// letter table, so only the leading letter matters.
	for cur.Offset < len(toks) && isNameByte(toks[cur.Offset]) {
		cur.Offset++
	}
	def := s.DefFns[letter-'A']
	if !def.Defined {
		return value.Value{}, gwerror.New(gwerror.UndefinedUserFunction)
	}
	args, err := parseArgList(s, cur)
	if err != nil {
		return value.Value{}, err
	}
	if len(args) != 1 {
		return value.Value{}, gwerror.New(gwerror.SyntaxError)
	}
	paramKey := interp.VarKey{Name: def.ParamName, Typ: def.ParamType}
	saved, hadSaved := s.Vars[paramKey]
	s.Vars[paramKey] = args[0]

	bodyCur := def.BodyCursor
	result, evalErr := Eval(s, &bodyCur)

	if hadSaved {
		s.Vars[paramKey] = saved
	} else {
		delete(s.Vars, paramKey)
	}
	if evalErr != nil {
		return value.Value{}, evalErr
	}
	return result, nil
}
