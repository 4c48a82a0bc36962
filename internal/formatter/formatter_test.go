package formatter

import (
	"testing"

	"gwbasic/internal/value"
)

func TestApplyNumericFields(t *testing.T) {
	tests := []struct {
		spec string
		vals []float64
		want string
	}{
		{"###", []float64{5}, "  5"},
		{"###", []float64{-5}, " -5"},
		{"##.##", []float64{3.456}, " 3.46"},
		{"#.#", []float64{0.06}, "0.1"},
		{"####", []float64{12345}, "%12345"},
		{"##,###", []float64{12345}, "12,345"},
		{"**###", []float64{12}, "***12"},
		{"$$###", []float64{12}, "  $12"},
		{"+###", []float64{5}, "  +5"},
		{"###-", []float64{-5}, "  5-"},
		{"###-", []float64{5}, "  5 "},
		{"A# B", []float64{3}, "A3 B"},
		{"#  #", []float64{1, 2}, "1  2"},
	}
	for _, tt := range tests {
		vals := make([]value.Value, len(tt.vals))
		for i, f := range tt.vals {
			vals[i] = value.DblVal(f)
		}
		got, err := Apply(tt.spec, vals)
		if err != nil {
			t.Fatalf("Apply(%q): %v", tt.spec, err)
		}
		if got != tt.want {
			t.Errorf("Apply(%q, %v) = %q, want %q", tt.spec, tt.vals, got, tt.want)
		}
	}
}

func TestApplyStringFields(t *testing.T) {
	tests := []struct {
		spec string
		vals []string
		want string
	}{
		{"!", []string{"hello"}, "h"},
		{"&", []string{"hello"}, "hello"},
		{`\  \`, []string{"hello"}, "hell"},
		{`\  \`, []string{"ab"}, "ab  "},
		{"<&>", []string{"x"}, "<x>"},
	}
	for _, tt := range tests {
		vals := make([]value.Value, len(tt.vals))
		for i, s := range tt.vals {
			vals[i] = value.StrValString(s)
		}
		got, err := Apply(tt.spec, vals)
		if err != nil {
			t.Fatalf("Apply(%q): %v", tt.spec, err)
		}
		if got != tt.want {
			t.Errorf("Apply(%q, %v) = %q, want %q", tt.spec, tt.vals, got, tt.want)
		}
	}
}

func TestApplyTypeMismatch(t *testing.T) {
	if _, err := Apply("###", []value.Value{value.StrValString("x")}); err == nil {
		t.Error("numeric field with string value: want Type mismatch")
	}
	if _, err := Apply("!", []value.Value{value.IntVal(1)}); err == nil {
		t.Error("string field with numeric value: want Type mismatch")
	}
}

func TestApplyReusesTemplate(t *testing.T) {
	got, err := Apply("#;", []value.Value{value.IntVal(1), value.IntVal(2)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "1;2;" {
		t.Errorf("cyclic reuse = %q, want %q", got, "1;2;")
	}
}

func TestApplyLiteralUnderscore(t *testing.T) {
	got, err := Apply("_!#", []value.Value{value.IntVal(7)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "!7" {
		t.Errorf("underscore escape = %q, want %q", got, "!7")
	}
}
