package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/query"
	"github.com/artifexhq/artifex/pkg/apperror"
)

// ExecuteQuery evaluates the resolved predicate tree directly over the
// artifact map.
func (t *tx) ExecuteQuery(ctx context.Context, req query.Request) (query.ArtifactSet, error) {
	var matched []*artifact.Artifact
	for _, a := range t.state.artifacts {
		if a.Trashed || !req.Selector.Matches(a.Type) {
			continue
		}
		ok, err := t.eval(a, req.Predicate)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, a.Clone())
		}
	}

	orderBy := req.OrderBy
	if orderBy == "" {
		orderBy = "uuid"
	}
	sort.Slice(matched, func(i, j int) bool {
		vi := propertyValue(matched[i], orderBy)
		vj := propertyValue(matched[j], orderBy)
		if vi == vj {
			return matched[i].UUID < matched[j].UUID
		}
		if req.Ascending {
			return vi < vj
		}
		return vi > vj
	})

	total := int64(len(matched))
	if req.Offset > 0 {
		if req.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[req.Offset:]
		}
	}
	if req.Limit > 0 && req.Limit < len(matched) {
		matched = matched[:req.Limit]
	}
	return query.NewSliceSet(matched, total), nil
}

func (t *tx) eval(a *artifact.Artifact, n query.Node) (bool, error) {
	if n == nil {
		return true, nil
	}
	switch v := n.(type) {
	case *query.And:
		for _, term := range v.Terms {
			ok, err := t.eval(a, term)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *query.Or:
		for _, term := range v.Terms {
			ok, err := t.eval(a, term)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *query.Not:
		ok, err := t.eval(a, v.Term)
		return !ok, err
	case *query.Exists:
		return propertyValue(a, v.Property) != "", nil
	case *query.Compare:
		return evalCompare(a, v), nil
	case *query.Classified:
		return evalClassified(a, v), nil
	case *query.Matches:
		return t.evalMatches(a, v), nil
	}
	return false, apperror.ErrInternal.WithMessage("unknown predicate node")
}

// propertyValue resolves system properties first, then custom ones.
func propertyValue(a *artifact.Artifact, name string) string {
	if v, ok := a.SystemProperty(name); ok {
		return v
	}
	v, _ := a.Property(name)
	return v
}

func evalCompare(a *artifact.Artifact, c *query.Compare) bool {
	got, ok := a.SystemProperty(c.Property)
	if !ok {
		if got, ok = a.Property(c.Property); !ok {
			return false
		}
	}

	var cmp int
	if c.Value.Kind == query.LitNumber {
		n, err := strconv.ParseFloat(got, 64)
		if err != nil {
			return false
		}
		switch {
		case n < c.Value.Num:
			cmp = -1
		case n > c.Value.Num:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(got, c.Value.Str)
	}

	switch c.Op {
	case query.OpEq:
		return cmp == 0
	case query.OpNe:
		return cmp != 0
	case query.OpLt:
		return cmp < 0
	case query.OpLe:
		return cmp <= 0
	case query.OpGt:
		return cmp > 0
	case query.OpGe:
		return cmp >= 0
	}
	return false
}

func evalClassified(a *artifact.Artifact, c *query.Classified) bool {
	normalized := map[string]bool{}
	for _, u := range a.Normalized {
		normalized[u] = true
	}
	if c.All {
		for _, u := range c.URIs {
			if !normalized[u.Str] {
				return false
			}
		}
		return true
	}
	for _, u := range c.URIs {
		if normalized[u.Str] {
			return true
		}
	}
	return false
}

// evalMatches is a case-insensitive substring match over one property
// value, or over the raw content text when no property is named.
func (t *tx) evalMatches(a *artifact.Artifact, m *query.Matches) bool {
	pattern := strings.ToLower(m.Pattern.Str)
	if m.Property != "" {
		return strings.Contains(strings.ToLower(propertyValue(a, m.Property)), pattern)
	}
	data, ok := t.state.content[a.UUID]
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), pattern)
}
