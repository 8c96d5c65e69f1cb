package database

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a name or identifier resolves to no row.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous is returned when a display name matches more than one row.
	ErrAmbiguous = errors.New("ambiguous name")

	// ErrInvalidInput wraps validation and constraint failures on writes.
	ErrInvalidInput = errors.New("invalid input")
)

var zipCodePattern = regexp.MustCompile(`^[0-9]{5}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return zipCodePattern.MatchString(fl.Field().String())
	})
	return v
}

func validateInput(in interface{}) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// IsPermanent reports whether retrying the failed operation cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAmbiguous) ||
		errors.Is(err, ErrInvalidInput)
}

// translateWriteError maps constraint violations reported by the store to
// ErrInvalidInput.
func translateWriteError(err error) error {
	var (
		sqliteErr sqlite3.Error
		pgErr     *pgconn.PgError
	)
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: record already exists", ErrInvalidInput)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: referenced record does not exist", ErrInvalidInput)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint:
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23"):
		// class 23: integrity constraint violation
		return fmt.Errorf("%w: %s", ErrInvalidInput, pgErr.Message)
	}
	return err
}
