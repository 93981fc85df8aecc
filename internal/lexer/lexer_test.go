package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func tokenTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	return types
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	got := tokenTypes(t, "box Point birth weak")
	want := []TokenType{BOX, IDENT, BIRTH, WEAK, EOF}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestNumericLiterals(t *testing.T) {
	toks, err := Tokenize("10 3.14 0")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []Token{
		{Type: INTEGER, Literal: "10", Line: 1, Column: 1},
		{Type: FLOAT, Literal: "3.14", Line: 1, Column: 4},
		{Type: INTEGER, Literal: "0", Line: 1, Column: 9},
		{Type: EOF, Line: 1, Column: 10},
	}
	if diff := cmp.Diff(want, toks, cmpopts.IgnoreFields(Token{}, "Offset")); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb\t\"c\\"`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Type != STRING || toks[0].Literal != "a\nb\t\"c\\" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := Tokenize(`"abc`)
	var lexErr *Error
	if err == nil {
		t.Fatal("expected error")
	}
	if e, ok := err.(*Error); !ok || e.Kind != UnterminatedString {
		t.Fatalf("got %#v, want UnterminatedString %#v", err, lexErr)
	}
}

func TestInvalidNumber(t *testing.T) {
	_, err := Tokenize("12abc")
	if e, ok := err.(*Error); !ok || e.Kind != InvalidNumber {
		t.Fatalf("got %#v, want InvalidNumber", err)
	}
}

func TestMultiCharOperatorsGreedy(t *testing.T) {
	got := tokenTypes(t, "a >> b == c != d <= e >= f && g || h")
	want := []TokenType{
		IDENT, ARROW, IDENT, EQ, IDENT, NE, IDENT, LE, IDENT, GE, IDENT,
		ANDAND, IDENT, OROR, IDENT, EOF,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLineCommentsAndNewlines(t *testing.T) {
	got := tokenTypes(t, "x = 1 // comment\n# also a comment\ny = 2")
	want := []TokenType{
		IDENT, ASSIGN, INTEGER, NEWLINE, NEWLINE, IDENT, ASSIGN, INTEGER, EOF,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

// TestLexRoundTripStability verifies property 1 from spec.md §8 for token
// kinds: the kind sequence is stable under whitespace-only reformatting.
// Columns shift with the added spaces, so positions are not compared.
func TestLexRoundTripStability(t *testing.T) {
	a := "x=10+32"
	b := "x =  10 + 32"
	ta, err := Tokenize(a)
	if err != nil {
		t.Fatal(err)
	}
	tb, err := Tokenize(b)
	if err != nil {
		t.Fatal(err)
	}
	typesOf := func(toks []Token) []TokenType {
		var out []TokenType
		for _, tok := range toks {
			out = append(out, tok.Type)
		}
		return out
	}
	if diff := cmp.Diff(typesOf(ta), typesOf(tb)); diff != "" {
		t.Fatalf("reformatted source produced different token kinds (-a +b):\n%s", diff)
	}
}
