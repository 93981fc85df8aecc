package diag

import (
	"strings"
	"testing"

	"github.com/nyashlang/nyashc/internal/span"
)

func TestBag_ErrorsAndWarnings(t *testing.T) {
	var bag Bag
	bag.Add(Errorf("parse", span.Span{Line: 1, Column: 1}, "unexpected token %q", "}"))
	bag.Add(Warnf("lint", span.Span{Line: 2, Column: 1}, "unused variable %q", "x"))

	if !bag.HasErrors() {
		t.Fatal("expected HasErrors to be true")
	}
	if len(bag.Errors()) != 1 {
		t.Fatalf("Errors() = %d, want 1", len(bag.Errors()))
	}
	if len(bag.Warnings()) != 1 {
		t.Fatalf("Warnings() = %d, want 1", len(bag.Warnings()))
	}
	if len(bag.All()) != 2 {
		t.Fatalf("All() = %d, want 2", len(bag.All()))
	}
}

func TestRender_PlainNoSource(t *testing.T) {
	d := Errorf("parse", span.Span{}, "boom")
	out := Render(d, "", false)
	if !strings.Contains(out, "error[parse]: boom") {
		t.Fatalf("unexpected render: %q", out)
	}
}

func TestRender_CaretExcerpt(t *testing.T) {
	d := Errorf("parse", span.Span{Line: 2, Column: 3}, "unexpected token")
	out := Render(d, "first\nsecond line\nthird", false)
	if !strings.Contains(out, "second line") {
		t.Fatalf("expected source line in output:\n%s", out)
	}
	if !strings.Contains(out, "  ^") {
		t.Fatalf("expected caret in output:\n%s", out)
	}
}
