package query

import (
	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/pkg/apperror"
)

const rootName = "artifex"

type parser struct {
	tz      *tokenizer
	tok     token
	nparams int
}

// parseExpression parses a full query string into its selector, predicate
// tree (nil when absent), and positional parameter count.
func parseExpression(src string) (Selector, Node, int, error) {
	p := &parser{tz: newTokenizer(src)}
	if err := p.advance(); err != nil {
		return Selector{}, nil, 0, err
	}

	sel, err := p.parsePath()
	if err != nil {
		return Selector{}, nil, 0, err
	}

	var pred Node
	if p.tok.kind == tokLBracket {
		if err := p.advance(); err != nil {
			return Selector{}, nil, 0, err
		}
		pred, err = p.parseExpr()
		if err != nil {
			return Selector{}, nil, 0, err
		}
		if err := p.expect(tokRBracket, "]"); err != nil {
			return Selector{}, nil, 0, err
		}
	}

	if p.tok.kind != tokEOF {
		return Selector{}, nil, 0, p.errorf("unexpected %s after end of query", p.tok)
	}
	return sel, pred, p.nparams, nil
}

func (p *parser) advance() error {
	tok, err := p.tz.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return apperror.ErrQuerySyntax.WithMessagef("query syntax error: "+format, args...)
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.tok.kind != kind {
		return p.errorf("expected %s, got %s", what, p.tok)
	}
	return p.advance()
}

func (p *parser) expectIdent() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.errorf("expected name, got %s", p.tok)
	}
	name := p.tok.text
	return name, p.advance()
}

func (p *parser) parsePath() (Selector, error) {
	switch p.tok.kind {
	case tokDoubleSlash:
		if err := p.advance(); err != nil {
			return Selector{}, err
		}
		typeName, err := p.expectIdent()
		if err != nil {
			return Selector{}, err
		}
		sel := Selector{Type: typeName}
		// Built-in type names pin the model; unknown names match the
		// type name across all models.
		if t, ok := artifact.TypeForName(typeName); ok {
			sel.Model = t.Model
		}
		return sel, nil

	case tokSlash:
		if err := p.advance(); err != nil {
			return Selector{}, err
		}
		root, err := p.expectIdent()
		if err != nil {
			return Selector{}, err
		}
		if root != rootName {
			return Selector{}, p.errorf("query root must be /%s, got /%s", rootName, root)
		}
		var sel Selector
		if p.tok.kind == tokSlash {
			if err := p.advance(); err != nil {
				return Selector{}, err
			}
			if sel.Model, err = p.expectIdent(); err != nil {
				return Selector{}, err
			}
		}
		if p.tok.kind == tokSlash {
			if err := p.advance(); err != nil {
				return Selector{}, err
			}
			if sel.Type, err = p.expectIdent(); err != nil {
				return Selector{}, err
			}
		}
		return sel, nil
	}
	return Selector{}, p.errorf("query must start with / or //, got %s", p.tok)
}

// parseExpr parses a disjunction: and-expr { "or" and-expr }.
func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Node{left}
	for p.tok.kind == tokIdent && p.tok.text == "or" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &Or{Terms: terms}, nil
}

// parseAnd parses a conjunction: unary { "and" unary }.
func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []Node{left}
	for p.tok.kind == tokIdent && p.tok.text == "and" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &And{Terms: terms}, nil
}

func (p *parser) parseUnary() (Node, error) {
	switch {
	case p.tok.kind == tokIdent && p.tok.text == "not":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &Not{Term: inner}, nil

	case p.tok.kind == tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil

	case p.tok.kind == tokAt:
		return p.parseComparison()

	case p.tok.kind == tokIdent:
		return p.parseFunction()
	}
	return nil, p.errorf("expected predicate term, got %s", p.tok)
}

// parseComparison parses @name with an optional operator and operand. A
// bare @name is a presence test.
func (p *parser) parseComparison() (Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokOp {
		return &Exists{Property: name}, nil
	}
	op := Op(p.tok.text)
	if err := p.advance(); err != nil {
		return nil, err
	}
	val, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &Compare{Property: name, Op: op, Value: val}, nil
}

func (p *parser) parseLiteral() (Literal, error) {
	switch p.tok.kind {
	case tokQuestion:
		lit := Literal{Kind: LitParam, Index: p.nparams}
		p.nparams++
		return lit, p.advance()
	case tokString:
		lit := Literal{Kind: LitString, Str: p.tok.text}
		return lit, p.advance()
	case tokNumber:
		lit := Literal{Kind: LitNumber, Num: p.tok.num, Str: p.tok.text}
		return lit, p.advance()
	}
	return Literal{}, p.errorf("expected value, got %s", p.tok)
}

func (p *parser) parseFunction() (Node, error) {
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}

	switch name {
	case "classifiedByAllOf", "classifiedByAnyOf":
		var uris []Literal
		for {
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			uris = append(uris, lit)
			if p.tok.kind != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &Classified{All: name == "classifiedByAllOf", URIs: uris}, nil

	case "matches":
		var prop string
		if p.tok.kind == tokAt {
			if err := p.advance(); err != nil {
				return nil, err
			}
			var err error
			if prop, err = p.expectIdent(); err != nil {
				return nil, err
			}
			if err := p.expect(tokComma, ","); err != nil {
				return nil, err
			}
		}
		pattern, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if pattern.Kind == LitNumber {
			return nil, p.errorf("matches() pattern must be a string")
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &Matches{Property: prop, Pattern: pattern}, nil
	}
	return nil, p.errorf("unknown function %q", name)
}
