// Package calculator implements a built-in Tool that evaluates simple
// arithmetic expressions: +, -, *, /, ^, parentheses, and unary minus, over
// floating-point numbers.
package calculator

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/nexusrun/agentcore/internal/agent"
)

// Name is the tool name registered with an agent.
const Name = "calculator"

// New builds the calculator Tool.
func New() agent.Tool {
	return agent.NewFuncTool(Name, "Evaluates an arithmetic expression and returns the numeric result.",
		agent.InputSchema{
			Properties: map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "An arithmetic expression, e.g. \"(3 + 4) * 2\"",
				},
			},
			Required: []string{"expression"},
		},
		handle,
	)
}

func handle(ctx context.Context, input map[string]any) (any, error) {
	expr, _ := input["expression"].(string)
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	result, err := Evaluate(expr)
	if err != nil {
		return nil, err
	}
	return strconv.FormatFloat(result, 'g', -1, 64), nil
}

// Evaluate parses and computes expr using a small recursive-descent
// parser over the standard arithmetic grammar (lowest to highest
// precedence: + -, * /, unary -, ^, parentheses/numbers).
func Evaluate(expr string) (float64, error) {
	p := &parser{input: []rune(expr)}
	p.skipSpace()
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

type parser struct {
	input []rune
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *parser) peek() (rune, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

// parseExpr handles + and -.
func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok || (c != '+' && c != '-') {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if c == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

// parseTerm handles * and /.
func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok || (c != '*' && c != '/') {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if c == '*' {
			v *= rhs
		} else {
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= rhs
		}
	}
}

// parseUnary handles a leading unary minus.
func (p *parser) parseUnary() (float64, error) {
	p.skipSpace()
	if c, ok := p.peek(); ok && c == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePow()
}

// parsePow handles right-associative exponentiation, binding tighter than
// unary minus and multiplication: "2^3^2" is 2^(3^2), "-2^2" is -(2^2).
func (p *parser) parsePow() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	c, ok := p.peek()
	if !ok || c != '^' {
		return base, nil
	}
	p.pos++
	exp, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

// parsePrimary handles parenthesized sub-expressions and numeric literals.
func (p *parser) parsePrimary() (float64, error) {
	p.skipSpace()
	c, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	if c == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		c, ok := p.peek()
		if !ok || c != ')' {
			return 0, fmt.Errorf("expected closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected a number at position %d", start)
	}
	return strconv.ParseFloat(string(p.input[start:p.pos]), 64)
}
