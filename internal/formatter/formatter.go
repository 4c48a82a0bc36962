// Package formatter implements PRINT USING's template language: a
// format string of numeric fields (#, ., comma, **, $$, ^^^^, leading
// or trailing signs), string fields (!, \  \, &) and literal text,
// applied cyclically to the printed values.
package formatter

import (
	"math"
	"strconv"
	"strings"

	"gwbasic/internal/gwerror"
	"gwbasic/internal/value"
)

// Formatter walks one format string, emitting literal runs and applying
// one field per value handed to it.
type Formatter struct {
	spec   string
	pos    int
	output strings.Builder
}

func NewFormatter(spec string) *Formatter {
	return &Formatter{spec: spec}
}

// Apply formats vals against the template. The template restarts from
// the beginning when values remain after its last field; trailing
// literal text after the final value is emitted up to the next field.
func Apply(spec string, vals []value.Value) (string, error) {
	f := NewFormatter(spec)
	for _, v := range vals {
		if err := f.applyOne(v); err != nil {
			return "", err
		}
	}
	f.emitTrailingLiterals()
	return f.output.String(), nil
}

// applyOne scans to the next field and formats v with it, wrapping
// around the spec when it is exhausted.
func (f *Formatter) applyOne(v value.Value) error {
	for wrapped := false; ; {
		if f.pos >= len(f.spec) {
			if wrapped || !f.hasField() {
				return gwerror.New(gwerror.IllegalFunctionCall)
			}
			f.pos = 0
			wrapped = true
		}
		if fld, ok := f.scanNumericField(); ok {
			if v.IsString() {
				return gwerror.New(gwerror.TypeMismatch)
			}
			f.output.WriteString(fld.format(value.ToDbl(v)))
			return nil
		}
		if width, exact, ok := f.scanStringField(); ok {
			if !v.IsString() {
				return gwerror.New(gwerror.TypeMismatch)
			}
			s := string(v.Str)
			if exact {
				if len(s) > width {
					s = s[:width]
				}
				for len(s) < width {
					s += " "
				}
			}
			f.output.WriteString(s)
			return nil
		}
		if f.spec[f.pos] == '_' && f.pos+1 < len(f.spec) {
			f.output.WriteByte(f.spec[f.pos+1])
			f.pos += 2
			continue
		}
		f.output.WriteByte(f.spec[f.pos])
		f.pos++
	}
}

// emitTrailingLiterals copies literal characters following the last
// formatted value, stopping where the next field would begin.
func (f *Formatter) emitTrailingLiterals() {
	for f.pos < len(f.spec) {
		save := f.pos
		if _, ok := f.scanNumericField(); ok {
			f.pos = save
			return
		}
		if _, _, ok := f.scanStringField(); ok {
			f.pos = save
			return
		}
		if f.spec[f.pos] == '_' && f.pos+1 < len(f.spec) {
			f.output.WriteByte(f.spec[f.pos+1])
			f.pos += 2
			continue
		}
		f.output.WriteByte(f.spec[f.pos])
		f.pos++
	}
}

// hasField reports whether the spec contains at least one field at all,
// guarding the wrap-around against a fieldless template.
func (f *Formatter) hasField() bool {
	probe := &Formatter{spec: f.spec}
	for probe.pos < len(probe.spec) {
		if _, ok := probe.scanNumericField(); ok {
			return true
		}
		if _, _, ok := probe.scanStringField(); ok {
			return true
		}
		if probe.spec[probe.pos] == '_' {
			probe.pos++
		}
		probe.pos++
	}
	return false
}

// numField is one parsed numeric template: digit counts plus the
// modifier flags that change fill, sign and notation.
type numField struct {
	leftDigits  int
	rightDigits int
	hasPoint    bool
	comma       bool
	asterisk    bool
	dollar      bool
	leadPlus    bool
	trailSign   byte // '+', '-' or 0
	exponent    bool
}

// scanNumericField tries to parse a numeric field at the current
// position, leaving the position unchanged when none starts here.
func (f *Formatter) scanNumericField() (numField, bool) {
	s, i := f.spec, f.pos
	var fld numField

	if i < len(s) && s[i] == '+' {
		fld.leadPlus = true
		i++
	}
	if i+1 < len(s) && s[i] == '*' && s[i+1] == '*' {
		fld.asterisk = true
		fld.leftDigits += 2
		i += 2
		if i < len(s) && s[i] == '$' {
			fld.dollar = true
			i++
		}
	} else if i+1 < len(s) && s[i] == '$' && s[i+1] == '$' {
		fld.dollar = true
		fld.leftDigits++
		i += 2
	}
	for i < len(s) && (s[i] == '#' || s[i] == ',') {
		if s[i] == ',' {
			fld.comma = true
		}
		fld.leftDigits++
		i++
	}
	if i < len(s) && s[i] == '.' {
		// a bare '.' with no '#' on either side is literal text
		if fld.leftDigits > 0 || (i+1 < len(s) && s[i+1] == '#') {
			fld.hasPoint = true
			i++
			for i < len(s) && s[i] == '#' {
				fld.rightDigits++
				i++
			}
		}
	}
	if fld.leftDigits == 0 && !fld.hasPoint {
		return numField{}, false
	}
	if i+3 < len(s) && s[i] == '^' && s[i+1] == '^' && s[i+2] == '^' && s[i+3] == '^' {
		fld.exponent = true
		i += 4
	}
	if !fld.leadPlus && i < len(s) && (s[i] == '+' || s[i] == '-') {
		fld.trailSign = s[i]
		i++
	} else if fld.leadPlus && i < len(s) && s[i] == '-' {
		fld.trailSign = '-'
		i++
	}
	f.pos = i
	return fld, true
}

// scanStringField recognizes ! (one char), & (as-is) and \..\ (two
// more than the space count between the backslashes).
func (f *Formatter) scanStringField() (width int, exact, ok bool) {
	s, i := f.spec, f.pos
	switch {
	case i < len(s) && s[i] == '!':
		f.pos = i + 1
		return 1, true, true
	case i < len(s) && s[i] == '&':
		f.pos = i + 1
		return 0, false, true
	case i < len(s) && s[i] == '\\':
		j := i + 1
		for j < len(s) && s[j] == ' ' {
			j++
		}
		if j < len(s) && s[j] == '\\' {
			f.pos = j + 1
			return j - i + 1, true, true
		}
	}
	return 0, false, false
}

// format renders one number into the field, falling back to a
// %-prefixed plain rendering when the value does not fit.
func (fld numField) format(x float64) string {
	if fld.exponent {
		return fld.formatExponent(x)
	}
	neg := math.Signbit(x)
	abs := math.Abs(x)

	digits := strconv.FormatFloat(abs, 'f', fld.rightDigits, 64)
	intPart := digits
	fracPart := ""
	if dot := strings.IndexByte(digits, '.'); dot >= 0 {
		intPart, fracPart = digits[:dot], digits[dot+1:]
	}
	if fld.comma {
		intPart = groupThousands(intPart)
	}
	if intPart == "0" && fld.hasPoint && fld.leftDigits == 0 {
		intPart = ""
	}

	body := intPart
	if fld.hasPoint {
		body += "." + fracPart
	}

	signLead := ""
	signTrail := ""
	switch {
	case fld.leadPlus && fld.trailSign == 0:
		if neg {
			signLead = "-"
		} else {
			signLead = "+"
		}
	case fld.trailSign == '+':
		if neg {
			signTrail = "-"
		} else {
			signTrail = "+"
		}
	case fld.trailSign == '-':
		if neg {
			signTrail = "-"
		} else {
			signTrail = " "
		}
	default:
		if neg {
			signLead = "-"
		}
	}

	if fld.dollar {
		body = "$" + body
	}
	body = signLead + body

	width := fld.leftDigits
	if fld.dollar {
		width++
	}
	if fld.hasPoint {
		width += 1 + fld.rightDigits
	}
	if fld.leadPlus && fld.trailSign == 0 {
		width++
	}

	if len(body) > width {
		return "%" + body + signTrail
	}
	fill := byte(' ')
	if fld.asterisk {
		fill = '*'
	}
	var b strings.Builder
	for n := width - len(body); n > 0; n-- {
		b.WriteByte(fill)
	}
	b.WriteString(body)
	b.WriteString(signTrail)
	return b.String()
}

// formatExponent renders the ^^^^ notation: the mantissa shifted so its
// integer part fills the '#' positions, with a 2-digit exponent.
func (fld numField) formatExponent(x float64) string {
	mantDigits := fld.rightDigits
	s := strconv.FormatFloat(x, 'E', mantDigits, 64)
	// Go renders 1.23E+03; GW-BASIC pads the front to the field's digit
	// count and keeps the same E+nn shape.
	width := fld.leftDigits + 4
	if fld.hasPoint {
		width += 1 + fld.rightDigits
	}
	if !math.Signbit(x) {
		s = " " + s
	}
	for len(s) < width {
		s = " " + s
	}
	return s
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
