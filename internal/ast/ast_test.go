package ast

import (
	"testing"

	"github.com/nyashlang/nyashc/internal/span"
)

// TestClassifyThreeWaySplit covers spec.md §2 item 2 and §3: every node
// kind reports exactly one of Structure/Expression/Statement via
// Classify().
func TestClassifyThreeWaySplit(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want Class
	}{
		{"Program", &Program{}, ClassStructure},
		{"Literal", &Literal{}, ClassExpression},
		{"Variable", &Variable{}, ClassExpression},
		{"BinaryOp", &BinaryOp{}, ClassExpression},
		{"MethodCall", &MethodCall{}, ClassExpression},
		{"Assignment", &Assignment{}, ClassStatement},
		{"If", &If{}, ClassStatement},
		{"Loop", &Loop{}, ClassStatement},
		{"Return", &Return{}, ClassStatement},
	}
	for _, c := range cases {
		if got := c.node.Classify(); got != c.want {
			t.Errorf("%s.Classify() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSpanAttachedToEveryNode(t *testing.T) {
	sp := span.Span{Start: 1, End: 5, Line: 1, Column: 1}
	lit := &Literal{Base: Base{Sp: sp}, Kind: LitInteger, Int: 42}
	if lit.Span() != sp {
		t.Errorf("want literal's span to round-trip, got %v", lit.Span())
	}
}
