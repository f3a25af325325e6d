package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = errors.New("auth: incorrect email or password")

// loginInput is the posted login form.
type loginInput struct {
	Email    string `form:"email"    validate:"required,email,max=254"`
	Password string `form:"password" validate:"required,max=128"`
}

var check = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("form") })
	return v
}()

// validate returns field messages, or nil when the input is acceptable.
func (in loginInput) validate() map[string]string {
	err := check.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"email": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "This field is required."
		case "email":
			out[fe.Field()] = "Enter a valid email address."
		default:
			out[fe.Field()] = "Ensure this value is shorter."
		}
	}
	return out
}

// checkCredentials returns the id of the active user matching email and
// password.
func checkCredentials(ctx context.Context, db *sqlx.DB, email, password string) (int64, error) {
	var row struct {
		ID       int64  `db:"id"`
		Password string `db:"password"`
	}
	err := db.GetContext(ctx, &row,
		"SELECT id, password FROM `user` WHERE email = ? AND is_active = TRUE", email)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn comparable time so unknown emails are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return 0, errBadCredentials
	}
	if err != nil {
		return 0, fmt.Errorf("auth: load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(row.Password), []byte(password)) != nil {
		return 0, errBadCredentials
	}
	return row.ID, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("adeptbill-dummy"), bcrypt.DefaultCost)
