package query

import (
	"context"
	"strconv"
	"time"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/pkg/apperror"
)

// Query is a parsed, parameterizable query. Create binds parameters with
// the Set methods in positional order, then Execute against a backend.
type Query struct {
	expression string
	selector   Selector
	predicate  Node

	nparams int
	bound   []*Literal

	orderBy   string
	ascending bool
}

// New parses an expression into a Query, validating syntax immediately.
func New(expression, orderBy string, ascending bool) (*Query, error) {
	sel, pred, nparams, err := parseExpression(expression)
	if err != nil {
		return nil, err
	}
	return &Query{
		expression: expression,
		selector:   sel,
		predicate:  pred,
		nparams:    nparams,
		bound:      make([]*Literal, nparams),
		orderBy:    orderBy,
		ascending:  ascending,
	}, nil
}

// Expression returns the original query text.
func (q *Query) Expression() string { return q.expression }

// ParamCount returns how many positional placeholders the query declares.
func (q *Query) ParamCount() int { return q.nparams }

func (q *Query) bind(lit Literal) error {
	for i := range q.bound {
		if q.bound[i] == nil {
			q.bound[i] = &lit
			return nil
		}
	}
	return apperror.ErrValidation.WithMessagef("query declares %d parameters, all already bound", q.nparams)
}

// SetString binds the next positional parameter as a string.
func (q *Query) SetString(v string) error {
	return q.bind(Literal{Kind: LitString, Str: v})
}

// SetNumber binds the next positional parameter as a number.
func (q *Query) SetNumber(v float64) error {
	return q.bind(Literal{Kind: LitNumber, Num: v, Str: strconv.FormatFloat(v, 'f', -1, 64)})
}

// SetDate binds the next positional parameter as a UTC RFC 3339 timestamp.
// The textual form orders lexicographically, so date comparisons work as
// string comparisons in every backend.
func (q *Query) SetDate(v time.Time) error {
	return q.bind(Literal{Kind: LitString, Str: v.UTC().Format(time.RFC3339)})
}

// Resolve returns the request for this query with every parameter literal
// replaced by its bound value. Unbound parameters are a validation error.
func (q *Query) Resolve(offset, limit int, propertyNames []string) (Request, error) {
	for i, b := range q.bound {
		if b == nil {
			return Request{}, apperror.ErrValidation.WithMessagef("query parameter %d is not bound", i+1)
		}
	}
	pred, err := substitute(q.predicate, q.bound)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Selector:      q.selector,
		Predicate:     pred,
		OrderBy:       q.orderBy,
		Ascending:     q.ascending,
		Offset:        offset,
		Limit:         limit,
		PropertyNames: propertyNames,
	}, nil
}

// substitute deep-copies the predicate tree, replacing param literals with
// their bound values. Snapshots never alias the query's own tree.
func substitute(n Node, bound []*Literal) (Node, error) {
	if n == nil {
		return nil, nil
	}
	resolveLit := func(l Literal) (Literal, error) {
		if l.Kind != LitParam {
			return l, nil
		}
		if l.Index >= len(bound) || bound[l.Index] == nil {
			return Literal{}, apperror.ErrValidation.WithMessagef("query parameter %d is not bound", l.Index+1)
		}
		return *bound[l.Index], nil
	}

	switch v := n.(type) {
	case *And:
		terms := make([]Node, len(v.Terms))
		for i, t := range v.Terms {
			sub, err := substitute(t, bound)
			if err != nil {
				return nil, err
			}
			terms[i] = sub
		}
		return &And{Terms: terms}, nil
	case *Or:
		terms := make([]Node, len(v.Terms))
		for i, t := range v.Terms {
			sub, err := substitute(t, bound)
			if err != nil {
				return nil, err
			}
			terms[i] = sub
		}
		return &Or{Terms: terms}, nil
	case *Not:
		sub, err := substitute(v.Term, bound)
		if err != nil {
			return nil, err
		}
		return &Not{Term: sub}, nil
	case *Exists:
		c := *v
		return &c, nil
	case *Compare:
		val, err := resolveLit(v.Value)
		if err != nil {
			return nil, err
		}
		return &Compare{Property: v.Property, Op: v.Op, Value: val}, nil
	case *Classified:
		uris := make([]Literal, len(v.URIs))
		for i, u := range v.URIs {
			lit, err := resolveLit(u)
			if err != nil {
				return nil, err
			}
			uris[i] = lit
		}
		return &Classified{All: v.All, URIs: uris}, nil
	case *Matches:
		pat, err := resolveLit(v.Pattern)
		if err != nil {
			return nil, err
		}
		return &Matches{Property: v.Property, Pattern: pat}, nil
	}
	return nil, apperror.ErrInternal.WithMessage("unknown predicate node")
}

// Request is the fully-resolved, backend-agnostic form of a query: the
// selector, a parameter-free predicate tree, ordering, and the page window.
type Request struct {
	Selector  Selector
	Predicate Node

	OrderBy   string
	Ascending bool

	// Offset/Limit page the result window; Limit <= 0 means no limit.
	Offset int
	Limit  int

	// PropertyNames asks the backend to project these custom properties
	// per row without a full fetch.
	PropertyNames []string
}

// Backend renders a resolved request to its native query form and executes
// it, preserving the language's operator semantics.
type Backend interface {
	ExecuteQuery(ctx context.Context, req Request) (ArtifactSet, error)
}

// ArtifactSet is a lazy, forward-only result cursor. Restart only by
// re-querying. Callers must Close on every exit path.
type ArtifactSet interface {
	// Next advances to the next artifact, returning false at the end of
	// the page window or on error.
	Next() bool
	// Artifact returns the current row. Valid only after a true Next.
	Artifact() *artifact.Artifact
	// Err returns the first error encountered during iteration.
	Err() error
	// TotalSize returns the match count independent of the page window.
	TotalSize() int64
	// Close releases any backend cursor. Safe to call more than once.
	Close() error
}

// SliceSet adapts an already-materialized page into an ArtifactSet.
type SliceSet struct {
	items []*artifact.Artifact
	total int64
	pos   int
}

// NewSliceSet wraps a page of artifacts plus the window-independent total.
func NewSliceSet(items []*artifact.Artifact, total int64) *SliceSet {
	return &SliceSet{items: items, total: total, pos: -1}
}

func (s *SliceSet) Next() bool {
	if s.pos+1 >= len(s.items) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceSet) Artifact() *artifact.Artifact { return s.items[s.pos] }
func (s *SliceSet) Err() error                   { return nil }
func (s *SliceSet) TotalSize() int64             { return s.total }
func (s *SliceSet) Close() error                 { return nil }

// Collect drains a set into a slice, closing it. Test and facade helper.
func Collect(set ArtifactSet) ([]*artifact.Artifact, int64, error) {
	defer set.Close()
	var out []*artifact.Artifact
	for set.Next() {
		out = append(out, set.Artifact())
	}
	if err := set.Err(); err != nil {
		return nil, 0, err
	}
	return out, set.TotalSize(), nil
}
