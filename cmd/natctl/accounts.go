package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"

	"github.com/samber/oops"

	"github.com/redmonkez12/natours-api/cmd/natctl/ui"
	"github.com/redmonkez12/natours-api/internal/auth"
	"github.com/redmonkez12/natours-api/internal/user"
)

// accountCreator is the part of auth.Service the account commands use
type accountCreator interface {
	Signup(ctx context.Context, in auth.SignupInput) (*auth.AuthResult, error)
}

// seedAccount is one entry of an import file
type seedAccount struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     user.Role `json:"role"`
}

type importReport struct {
	Created int
	Skipped int
}

// importAccounts creates every account listed in the JSON array read from r.
// Emails that are already registered are skipped and reported. Any other
// failure stops the import.
func importAccounts(ctx context.Context, svc accountCreator, r io.Reader, out io.Writer) (importReport, error) {
	var report importReport
	errb := oops.In("natctl").With("command", "import-users")

	var seeds []seedAccount
	if err := json.NewDecoder(r).Decode(&seeds); err != nil {
		return report, errb.Code("IMPORT_BAD_FILE").Wrapf(err, "decode accounts file")
	}

	for i, seed := range seeds {
		_, err := svc.Signup(ctx, auth.SignupInput{
			Email:           seed.Email,
			Password:        seed.Password,
			PasswordConfirm: seed.Password,
			Role:            seed.Role,
		})
		switch {
		case err == nil:
			report.Created++
			ui.PrintDetail(out, "created "+user.NormalizeEmail(seed.Email))
		case errors.Is(err, auth.ErrDuplicateEmail):
			report.Skipped++
			ui.PrintSkipped(out, user.NormalizeEmail(seed.Email)+" already exists")
		default:
			return report, errb.Code("IMPORT_FAILED").With("index", i).With("email", seed.Email).Wrap(err)
		}
	}

	return report, nil
}

// createAdmin registers an account with the admin role
func createAdmin(ctx context.Context, svc accountCreator, email, password string) (*user.User, error) {
	result, err := svc.Signup(ctx, auth.SignupInput{
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
		Role:            user.RoleAdmin,
	})
	if err != nil {
		return nil, oops.In("natctl").With("command", "create-admin").Wrap(err)
	}
	return result.Account, nil
}

// generateKey returns 32 printable characters drawn from 24 random bytes,
// usable as AUTH_TOKEN_KEY for either token strategy
func generateKey(random io.Reader) (string, error) {
	buf := make([]byte, 24)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", oops.In("natctl").Code("KEYGEN_FAILED").Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

var randomSource io.Reader = rand.Reader
