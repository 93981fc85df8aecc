package span

import "testing"

func TestMergeTakesEarlierStartAndLaterEnd(t *testing.T) {
	a := Span{Start: 10, End: 15, Line: 2, Column: 3}
	b := Span{Start: 5, End: 12, Line: 1, Column: 1}

	m := a.Merge(b)
	if m.Start != 5 || m.End != 15 {
		t.Errorf("want [5,15], got [%d,%d]", m.Start, m.End)
	}
	if m.Line != 1 || m.Column != 1 {
		t.Errorf("want merged Line/Column to come from the earlier-starting span, got %d:%d", m.Line, m.Column)
	}
}

func TestMergeWithInvalidSpanReturnsOther(t *testing.T) {
	var zero Span
	other := Span{Start: 1, End: 2, Line: 1, Column: 1}
	if got := zero.Merge(other); got != other {
		t.Errorf("want %v, got %v", other, got)
	}
	if got := other.Merge(zero); got != other {
		t.Errorf("want %v, got %v", other, got)
	}
}

func TestErrorContextCaretAtColumn(t *testing.T) {
	src := "let x = (\n"
	out := ErrorContext(src, Span{Start: 8, End: 9, Line: 1, Column: 9})
	want := "let x = (\n        ^"
	if out != want {
		t.Errorf("want %q, got %q", want, out)
	}
}

func TestErrorContextOutOfRangeLine(t *testing.T) {
	if got := ErrorContext("a\nb\n", Span{Line: 99, Column: 1}); got != "" {
		t.Errorf("want empty string for out-of-range line, got %q", got)
	}
}
