package contracts

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	minQualityScore = 0
	maxQualityScore = 100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("arg"), ",", 2)[0]
		if name == "" {
			return field.Name
		}
		return name
	})
	// score is reported as INVALID_SCORE instead of INVALID_INPUT
	_ = v.RegisterValidation("score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= minQualityScore && score <= maxQualityScore
	})
	return v
}

// Argument structs cap input lengths in characters. Ids, batch and tracking
// numbers take 64; identities, names, locations, carriers and signatures 128;
// notes and reasons 512; procedures and test results 1024. Component lists
// hold at most 100 ids.

// validateArgs checks a transaction's argument struct and reports the first
// violated rule as a ledger error.
func validateArgs(args interface{}) error {
	err := validate.Struct(args)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return wrapError(err, CodeInvalidInput, "invalid arguments")
	}

	fe := fieldErrs[0]
	if fe.Tag() == "score" {
		return newError(CodeInvalidScore, "%s must be between %d and %d, got %v",
			fe.Field(), minQualityScore, maxQualityScore, fe.Value())
	}
	if fe.Param() != "" {
		return newError(CodeInvalidInput, "%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return newError(CodeInvalidInput, "%s failed %s", fe.Field(), fe.Tag())
}

// uniqueIDs rejects a list that names the same id twice.
func uniqueIDs(field string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return newError(CodeInvalidInput, "%s contains %s more than once", field, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
