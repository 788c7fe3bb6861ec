// Package storedquery models named, reusable query templates.
package storedquery

import (
	"strings"
	"time"

	"github.com/artifexhq/artifex/pkg/apperror"
)

// StoredQuery is a named query template. QueryExpression may contain
// positional ? parameters and ${name} placeholders; the latter are
// expanded from a caller-supplied map before parsing.
type StoredQuery struct {
	QueryName       string   `json:"queryName"`
	QueryExpression string   `json:"queryExpression"`
	PropertyNames   []string `json:"propertyNames,omitempty"`

	CreatedBy  string    `json:"createdBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	ModifiedBy string    `json:"lastModifiedBy,omitempty"`
	ModifiedAt time.Time `json:"lastModifiedAt,omitempty"`
}

// Validate checks the template is storable. Expression syntax is validated
// separately at store time by parsing with placeholders neutralized.
func (sq *StoredQuery) Validate() error {
	if sq.QueryName == "" {
		return apperror.ErrValidation.WithMessage("stored query name is required")
	}
	if sq.QueryExpression == "" {
		return apperror.ErrValidation.WithMessage("stored query expression is required")
	}
	return nil
}

// Expand substitutes ${name} placeholders from params. Every placeholder
// must be supplied; single quotes in values are doubled so a substitution
// cannot escape its enclosing string literal.
func (sq *StoredQuery) Expand(params map[string]string) (string, error) {
	var sb strings.Builder
	src := sq.QueryExpression
	for {
		i := strings.Index(src, "${")
		if i < 0 {
			sb.WriteString(src)
			return sb.String(), nil
		}
		j := strings.Index(src[i:], "}")
		if j < 0 {
			return "", apperror.ErrValidation.WithMessagef(
				"stored query %s has an unterminated ${ placeholder", sq.QueryName)
		}
		name := src[i+2 : i+j]
		val, ok := params[name]
		if !ok {
			return "", apperror.ErrValidation.WithMessagef(
				"stored query %s is missing a value for ${%s}", sq.QueryName, name)
		}
		sb.WriteString(src[:i])
		sb.WriteString(strings.ReplaceAll(val, "'", "''"))
		src = src[i+j+1:]
	}
}
