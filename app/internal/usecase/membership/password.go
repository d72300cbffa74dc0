package membership

import (
	"fmt"
	"strings"
	"unicode"

	domuser "github.com/akurin/identity-server-demo/app/internal/domain/user"
)

// PasswordPolicy mirrors the usual identity-framework defaults.
type PasswordPolicy struct {
	RequiredLength         int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		RequiredLength:         6,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
	}
}

// Validate returns ErrPasswordPolicy wrapped with every violated rule.
func (p PasswordPolicy) Validate(password string) error {
	var problems []string
	if len([]rune(password)) < p.RequiredLength {
		problems = append(problems, fmt.Sprintf("must be at least %d characters", p.RequiredLength))
	}

	var digit, lower, upper, other bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r):
			other = true
		}
	}
	if p.RequireDigit && !digit {
		problems = append(problems, "must contain a digit")
	}
	if p.RequireLowercase && !lower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if p.RequireUppercase && !upper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if p.RequireNonAlphanumeric && !other {
		problems = append(problems, "must contain a non-alphanumeric character")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domuser.ErrPasswordPolicy, strings.Join(problems, ", "))
	}
	return nil
}
