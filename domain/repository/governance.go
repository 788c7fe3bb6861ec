package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artifexhq/artifex/domain/ontology"
	"github.com/artifexhq/artifex/domain/query"
	"github.com/artifexhq/artifex/domain/storedquery"
	"github.com/artifexhq/artifex/pkg/apperror"
)

// CreateOntology stores a new classification taxonomy. Base URIs are
// unique across the repository.
func (s *Service) CreateOntology(ctx context.Context, o *ontology.Ontology) (out *ontology.Ontology, err error) {
	defer func(start time.Time) { s.observe("create_ontology", start, err) }(time.Now())

	if err := o.Normalize(); err != nil {
		return nil, err
	}
	who := Actor(ctx)
	now := time.Now().UTC()
	if o.UUID == "" {
		o.UUID = uuid.NewString()
	}
	o.CreatedBy, o.CreatedAt = who, now
	o.ModifiedBy, o.ModifiedAt = who, now

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		existing, err := tx.ListOntologies(ctx)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.Base == o.Base {
				return apperror.ErrConflict.WithMessagef("ontology with base %s already exists", o.Base)
			}
			if e.UUID == o.UUID {
				return apperror.ErrConflict.WithMessagef("ontology %s already exists", o.UUID)
			}
		}
		return tx.PersistOntology(ctx, o)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return o, nil
}

func (s *Service) GetOntology(ctx context.Context, uuidStr string) (out *ontology.Ontology, err error) {
	defer func(start time.Time) { s.observe("get_ontology", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		out, err = tx.GetOntology(ctx, uuidStr)
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return out, nil
}

func (s *Service) ListOntologies(ctx context.Context) (out []*ontology.Ontology, err error) {
	defer func(start time.Time) { s.observe("list_ontologies", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		out, err = tx.ListOntologies(ctx)
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return out, nil
}

// UpdateOntology replaces an ontology's classes and labels. The base URI
// is immutable; classifiers already resolved against it stay valid.
func (s *Service) UpdateOntology(ctx context.Context, o *ontology.Ontology) (out *ontology.Ontology, err error) {
	defer func(start time.Time) { s.observe("update_ontology", start, err) }(time.Now())

	if err := o.Normalize(); err != nil {
		return nil, err
	}
	who := Actor(ctx)
	now := time.Now().UTC()

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		existing, err := tx.GetOntology(ctx, o.UUID)
		if err != nil {
			return err
		}
		if existing.Base != o.Base {
			return apperror.ErrValidation.WithMessage("ontology base URI is immutable")
		}
		o.CreatedBy, o.CreatedAt = existing.CreatedBy, existing.CreatedAt
		o.ModifiedBy, o.ModifiedAt = who, now
		return tx.UpdateOntology(ctx, o)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return o, nil
}

func (s *Service) DeleteOntology(ctx context.Context, uuidStr string) (err error) {
	defer func(start time.Time) { s.observe("delete_ontology", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.DeleteOntology(ctx, uuidStr)
	})
	return apperror.Wrap(err)
}

// SeedOntologies loads any not-yet-present ontologies, keyed by base URI.
// Startup convenience; existing ontologies are never overwritten.
func (s *Service) SeedOntologies(ctx context.Context, onts []*ontology.Ontology) error {
	for _, o := range onts {
		_, err := s.CreateOntology(ctx, o)
		if err != nil && !apperror.IsConflict(err) {
			return err
		}
	}
	return nil
}

// CreateStoredQuery validates and stores a named query template. The
// expression must parse once placeholders are neutralized.
func (s *Service) CreateStoredQuery(ctx context.Context, sq *storedquery.StoredQuery) (out *storedquery.StoredQuery, err error) {
	defer func(start time.Time) { s.observe("create_stored_query", start, err) }(time.Now())

	if err := sq.Validate(); err != nil {
		return nil, err
	}
	if err := validateTemplate(sq.QueryExpression); err != nil {
		return nil, err
	}
	who := Actor(ctx)
	now := time.Now().UTC()
	sq.CreatedBy, sq.CreatedAt = who, now
	sq.ModifiedBy, sq.ModifiedAt = who, now

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetStoredQuery(ctx, sq.QueryName); err == nil {
			return apperror.ErrConflict.WithMessagef("stored query %s already exists", sq.QueryName)
		} else if !apperror.IsNotFound(err) {
			return err
		}
		return tx.PersistStoredQuery(ctx, sq)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return sq, nil
}

func (s *Service) GetStoredQuery(ctx context.Context, name string) (out *storedquery.StoredQuery, err error) {
	defer func(start time.Time) { s.observe("get_stored_query", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		out, err = tx.GetStoredQuery(ctx, name)
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return out, nil
}

func (s *Service) ListStoredQueries(ctx context.Context) (out []*storedquery.StoredQuery, err error) {
	defer func(start time.Time) { s.observe("list_stored_queries", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		out, err = tx.ListStoredQueries(ctx)
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return out, nil
}

func (s *Service) UpdateStoredQuery(ctx context.Context, sq *storedquery.StoredQuery) (out *storedquery.StoredQuery, err error) {
	defer func(start time.Time) { s.observe("update_stored_query", start, err) }(time.Now())

	if err := sq.Validate(); err != nil {
		return nil, err
	}
	if err := validateTemplate(sq.QueryExpression); err != nil {
		return nil, err
	}
	who := Actor(ctx)
	now := time.Now().UTC()

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		existing, err := tx.GetStoredQuery(ctx, sq.QueryName)
		if err != nil {
			return err
		}
		sq.CreatedBy, sq.CreatedAt = existing.CreatedBy, existing.CreatedAt
		sq.ModifiedBy, sq.ModifiedAt = who, now
		return tx.UpdateStoredQuery(ctx, sq)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return sq, nil
}

func (s *Service) DeleteStoredQuery(ctx context.Context, name string) (err error) {
	defer func(start time.Time) { s.observe("delete_stored_query", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.DeleteStoredQuery(ctx, name)
	})
	return apperror.Wrap(err)
}

// validateTemplate parses a stored-query expression with every ${name}
// placeholder replaced by a dummy value, catching syntax errors at store
// time instead of first execution.
func validateTemplate(expression string) error {
	neutralized := expression
	for {
		i := strings.Index(neutralized, "${")
		if i < 0 {
			break
		}
		j := strings.Index(neutralized[i:], "}")
		if j < 0 {
			return apperror.ErrQuerySyntax.WithMessage("unterminated ${ placeholder in stored query expression")
		}
		neutralized = neutralized[:i] + "x" + neutralized[i+j+1:]
	}
	_, err := query.New(neutralized, "", true)
	return err
}
