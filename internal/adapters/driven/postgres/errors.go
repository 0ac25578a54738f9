package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// SQLSTATE codes raised by schema.sql triggers and constraints
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeStructural          = "SR001"
	codeFrozenSnapshot      = "SR002"
)

// mapErr translates driver errors into domain errors. Errors that carry no
// domain meaning are wrapped with what.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", what, err)
	}
	switch string(pqErr.Code) {
	case codeUniqueViolation:
		switch pqErr.Constraint {
		case "dom_posts_document_key":
			return domain.ErrAlreadyIngested
		case "dom_snapshots_post_stage":
			return domain.ErrDuplicateStage
		case "idx_dom_nodes_one_root":
			return fmt.Errorf("%w: more than one root", domain.ErrInvalidTreeShape)
		}
		return fmt.Errorf("%s: %w", what, domain.ErrAlreadyExists)
	case codeForeignKeyViolation:
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	case codeCheckViolation:
		return fmt.Errorf("%s: %w: %s", what, domain.ErrInvalidInput, pqErr.Message)
	case codeStructural:
		return fmt.Errorf("%s: %w", what, domain.ErrStructuralImmutability)
	case codeFrozenSnapshot:
		return fmt.Errorf("%s: %w", what, domain.ErrImmutableSnapshot)
	}
	return fmt.Errorf("%s: %w", what, err)
}
