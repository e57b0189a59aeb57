// Package validator reports request binding failures per JSON field.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"staybook/internal/pkg/apperr"
)

var once sync.Once

// Register makes gin's validator name fields after their json tags. Safe to
// call more than once.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonName)
	})
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Fields maps each failed field to the rule it broke, or returns nil when err
// is not a validation failure.
func Fields(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// BindError converts a ShouldBind* failure into a validation error. Rule
// violations are listed per field; malformed payloads carry the decoder message.
func BindError(message string, err error) error {
	if fields := Fields(err); fields != nil {
		return apperr.Validation("VALIDATION_ERROR", message, map[string]any{"fields": fields})
	}
	return apperr.Validation("VALIDATION_ERROR", message, map[string]any{"reason": err.Error()})
}
