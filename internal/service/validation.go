package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	app_errors "chatbox/web/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once

	emailPattern = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)

	allowedEmailEndings = map[string]bool{
		"com": true, "net": true, "org": true, "edu": true, "gov": true,
		"io": true, "co": true, "ph": true,
		"com.ph": true, "net.ph": true, "org.ph": true, "edu.ph": true, "gov.ph": true,
	}
)

// fieldMessages are the user-facing texts for failed validation tags.
var fieldMessages = map[string]string{
	"allowed_email":   "Enter a valid email address with an allowed domain (.com, .net, .org, .edu, .gov, .io, .co, .ph)",
	"strong_password": "Password must be at least 6 characters and include upper and lower case letters, a number and a symbol",
	"eqfield":         "Passwords do not match",
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("allowed_email", func(fl validator.FieldLevel) bool {
			return AllowedEmail(fl.Field().String())
		})
		_ = validate.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
			return StrongPassword(fl.Field().String())
		})
	})
	return validate
}

// AllowedEmail reports whether addr is well formed and ends in one of the
// accepted top-level domains.
func AllowedEmail(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if !emailPattern.MatchString(addr) {
		return false
	}
	domain := addr[strings.LastIndex(addr, "@")+1:]
	var parts []string
	for _, p := range strings.Split(domain, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return false
	}
	last1 := parts[len(parts)-1]
	last2 := strings.Join(parts[len(parts)-2:], ".")
	return allowedEmailEndings[last1] || allowedEmailEndings[last2]
}

// StrongPassword requires six characters with at least one upper case letter,
// one lower case letter, one digit and one character outside [A-Za-z0-9].
func StrongPassword(pw string) bool {
	if utf8.RuneCountInString(pw) < 6 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

// validateInput checks payload against its validate tags and folds every
// failure into one ErrValidation.
func validateInput(payload any) error {
	err := getValidator().Struct(payload)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %s", app_errors.ErrValidation, err.Error())
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		if msg, ok := fieldMessages[fe.Tag()]; ok {
			msgs = append(msgs, msg)
			continue
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", app_errors.ErrValidation, strings.Join(msgs, "; "))
}
