// Package query implements the declarative artifact query language: a
// tokenizer and recursive-descent parser producing a backend-agnostic
// predicate tree, positional parameter binding, and the ArtifactSet cursor
// contract that backends fulfil.
package query

import (
	"strconv"

	"github.com/artifexhq/artifex/domain/artifact"
)

// Selector is the path part of a query. Empty fields are wildcards:
// /artifex matches everything, /artifex/xsd everything in the xsd model,
// //XsdDocument any model with that type name.
type Selector struct {
	Model string
	Type  string
}

// Matches reports whether an artifact type falls under the selector.
func (s Selector) Matches(t artifact.Type) bool {
	if s.Model != "" && s.Model != t.Model {
		return false
	}
	if s.Type != "" && s.Type != t.Type {
		return false
	}
	return true
}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// LiteralKind tags what a literal operand holds.
type LiteralKind int

const (
	// LitString is a quoted string value.
	LitString LiteralKind = iota
	// LitNumber is a numeric value compared numerically.
	LitNumber
	// LitParam is an unbound positional placeholder.
	LitParam
)

// Literal is one comparison operand. Param literals carry the positional
// index assigned at parse time and are replaced during Resolve.
type Literal struct {
	Kind  LiteralKind
	Str   string
	Num   float64
	Index int
}

func (l Literal) String() string {
	switch l.Kind {
	case LitNumber:
		return strconv.FormatFloat(l.Num, 'f', -1, 64)
	case LitParam:
		return "?"
	}
	return "'" + l.Str + "'"
}

// Node is one node of the predicate tree.
type Node interface {
	isNode()
}

// And is a conjunction of two or more terms.
type And struct {
	Terms []Node
}

// Or is a disjunction of two or more terms.
type Or struct {
	Terms []Node
}

// Not negates its whole subtree: not(a and b) negates the conjunction,
// not each term.
type Not struct {
	Term Node
}

// Exists tests that a property is present with a non-empty value. Under
// Not this inverts to "absent or empty".
type Exists struct {
	Property string
}

// Compare tests a property value against a literal.
type Compare struct {
	Property string
	Op       Op
	Value    Literal
}

// Classified tests the artifact's normalized classifier set. All requires
// every URI to be present; otherwise any one suffices.
type Classified struct {
	All  bool
	URIs []Literal
}

// Matches is the full-text function: over one property value when Property
// is set, over content-derived text otherwise.
type Matches struct {
	Property string
	Pattern  Literal
}

func (*And) isNode()        {}
func (*Or) isNode()         {}
func (*Not) isNode()        {}
func (*Exists) isNode()     {}
func (*Compare) isNode()    {}
func (*Classified) isNode() {}
func (*Matches) isNode()    {}
