package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// mediaURLPattern accepts youtube.com, youtube-nocookie.com and youtu.be hosts.
// The scheme is optional.
var mediaURLPattern = regexp.MustCompile(
	`(?i)^(https?://)?((www\.|m\.|music\.)?youtube\.com|(www\.)?youtube-nocookie\.com|(www\.)?youtu\.be)/`,
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("media_url", validateMediaURL)
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return humanize(err)
	}
	return nil
}

// ValidateURL checks that u is a supported media URL.
func ValidateURL(u string) error {
	if err := validate.Var(u, "required,media_url"); err != nil {
		return fmt.Errorf("invalid URL %q: %w", u, humanize(err))
	}
	return nil
}

// IsMediaURL reports whether u points at a supported host.
func IsMediaURL(u string) bool {
	u = strings.TrimSpace(u)
	if u == "" || strings.ContainsAny(u, " \t\r\n") {
		return false
	}
	return mediaURLPattern.MatchString(u)
}

func validateMediaURL(fl validator.FieldLevel) bool {
	return IsMediaURL(fl.Field().String())
}

// humanize turns validator errors into one readable message.
func humanize(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "media_url":
			msgs = append(msgs, "please provide a valid YouTube URL")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
