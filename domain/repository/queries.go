package repository

import (
	"context"
	"time"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/audit"
	"github.com/artifexhq/artifex/domain/query"
	"github.com/artifexhq/artifex/pkg/apperror"
)

// CreateQuery parses an expression into a bindable query. Syntax errors
// surface here, before any parameter is bound.
func (s *Service) CreateQuery(expression, orderBy string, ascending bool) (*query.Query, error) {
	return query.New(expression, orderBy, ascending)
}

// Query executes a fully-bound query and returns one page of artifacts
// plus the window-independent total. The backend cursor is drained and
// closed before the transaction ends.
func (s *Service) Query(ctx context.Context, q *query.Query, offset, limit int, propertyNames []string) (page []*artifact.Artifact, total int64, err error) {
	defer func(start time.Time) { s.observe("query", start, err) }(time.Now())

	req, err := q.Resolve(offset, limit, propertyNames)
	if err != nil {
		return nil, 0, err
	}
	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		set, err := tx.ExecuteQuery(ctx, req)
		if err != nil {
			return err
		}
		page, total, err = query.Collect(set)
		return err
	})
	if err != nil {
		return nil, 0, apperror.Wrap(err)
	}
	return page, total, nil
}

// QueryStored expands and executes a stored query: ${name} placeholders
// from params, positional ? parameters from args, in order.
func (s *Service) QueryStored(ctx context.Context, name string, params map[string]string, args []string, offset, limit int) (page []*artifact.Artifact, total int64, err error) {
	defer func(start time.Time) { s.observe("query_stored", start, err) }(time.Now())

	sq, err := s.GetStoredQuery(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	expression, err := sq.Expand(params)
	if err != nil {
		return nil, 0, err
	}
	q, err := query.New(expression, "", true)
	if err != nil {
		return nil, 0, err
	}
	for _, arg := range args {
		if err := q.SetString(arg); err != nil {
			return nil, 0, err
		}
	}
	return s.Query(ctx, q, offset, limit, sq.PropertyNames)
}

// AddAuditEntry appends a caller-supplied custom entry to an artifact's
// audit trail.
func (s *Service) AddAuditEntry(ctx context.Context, e *audit.Entry) (out *audit.Entry, err error) {
	defer func(start time.Time) { s.observe("add_audit_entry", start, err) }(time.Now())

	if e.ArtifactUUID == "" {
		return nil, apperror.ErrValidation.WithMessage("audit entry artifact uuid is required")
	}
	if e.Type == "" {
		return nil, apperror.ErrValidation.WithMessage("audit entry type is required")
	}
	if e.Who == "" {
		e.Who = Actor(ctx)
	}
	if e.When.IsZero() {
		e.When = time.Now().UTC()
	}

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetArtifact(ctx, e.ArtifactUUID); err != nil {
			return err
		}
		return tx.AddAuditEntry(ctx, e)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return e, nil
}

// ArtifactAuditEntries returns an artifact's audit trail, newest first.
func (s *Service) ArtifactAuditEntries(ctx context.Context, artifactUUID string) (out []*audit.Entry, err error) {
	defer func(start time.Time) { s.observe("artifact_audit_entries", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetArtifact(ctx, artifactUUID); err != nil {
			return err
		}
		out, err = tx.ArtifactAuditEntries(ctx, artifactUUID)
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return out, nil
}

// UserAuditEntries returns every entry recorded for a user, newest first.
func (s *Service) UserAuditEntries(ctx context.Context, who string) (out []*audit.Entry, err error) {
	defer func(start time.Time) { s.observe("user_audit_entries", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		out, err = tx.UserAuditEntries(ctx, who)
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return out, nil
}
