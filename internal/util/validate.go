package util

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every struct validation failure.
var ErrInvalid = errors.New("invalid")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct checks the validate tags on s and flattens field errors into
// one readable error.
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (value: %v)", e.Namespace(), e.Tag(), e.Param(), e.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("%w %s", ErrInvalid, strings.Join(msgs, "; "))
}
