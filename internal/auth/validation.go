package auth

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/taskhub/taskhub/internal/shared"
)

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Name     string `json:"name" validate:"min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6,bcryptlen"`
}

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is the body of PUT /auth/profile. Absent fields stay untouched.
type ProfileInput struct {
	Name  shared.Optional[string] `json:"name"`
	Email shared.Optional[string] `json:"email"`
}

var userMessages = map[string]string{
	"name":               "Name must be at least 2 characters",
	"email":              "Please enter a valid email",
	"password":           "Password must be at least 6 characters",
	"password.bcryptlen": "Password cannot be longer than 72 bytes",
}

var loginMessages = map[string]string{
	"email":    "Please enter a valid email",
	"password": "Password is required",
}

// normalizeEmail trims and lower-cases an address so lookups and the unique
// index agree.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeName trims and composes a display name so length checks count
// what the user sees.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func (s *Service) validateRegister(in *RegisterInput) error {
	in.Name = normalizeName(in.Name)
	in.Email = normalizeEmail(in.Email)
	errs := &shared.ValidationError{}
	if err := s.validator.Struct(errs, *in, userMessages); err != nil {
		return err
	}
	return errs.Err()
}

func (s *Service) validateLogin(in *LoginInput) error {
	in.Email = normalizeEmail(in.Email)
	errs := &shared.ValidationError{}
	if err := s.validator.Struct(errs, *in, loginMessages); err != nil {
		return err
	}
	return errs.Err()
}

func (s *Service) validateProfile(in ProfileInput) (ProfileChanges, error) {
	var changes ProfileChanges
	errs := &shared.ValidationError{}

	if in.Name.Set {
		name := normalizeName(in.Name.Value)
		if !in.Name.Present() {
			errs.Add("name", userMessages["name"])
		} else {
			s.validator.Var(errs, "name", name, "min=2", userMessages["name"])
			changes.Name = &name
		}
	}
	if in.Email.Set {
		email := normalizeEmail(in.Email.Value)
		if !in.Email.Present() {
			errs.Add("email", userMessages["email"])
		} else {
			s.validator.Var(errs, "email", email, "required,email", userMessages["email"])
			changes.Email = &email
		}
	}
	if err := errs.Err(); err != nil {
		return ProfileChanges{}, err
	}
	return changes, nil
}
