package relational

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/mitchellh/mapstructure"
)

// pqIntegrityClass is the SQLSTATE class of integrity constraint violations.
const pqIntegrityClass = "23"

// Translate maps bun, driver, decoding and validation failures onto the
// service error taxonomy. Anything it does not recognize is wrapped as is.
func Translate(op service.Operation, id any, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return service.NewNotFoundError(id, err)
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			if ferr != nil {
				details[field] = ferr.Error()
			}
		}
		return service.NewValidationError(details, err)
	}

	var decodeErr *mapstructure.Error
	if errors.As(err, &decodeErr) {
		return service.NewValidationError(map[string]string{
			"fields": strings.Join(decodeErr.Errors, "; "),
		}, err)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		return service.NewValidationError(map[string]string{
			"constraint": liteErr.Error(),
		}, err)
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code.Class() == pqIntegrityClass {
		field := pgErr.Column
		if field == "" {
			field = "constraint"
		}
		return service.NewValidationError(map[string]string{
			field: pgErr.Message,
		}, err)
	}

	return fmt.Errorf("relational %s: %w", op, err)
}
