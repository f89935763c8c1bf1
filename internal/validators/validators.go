// Package validators provides the small value checks used by the tag
// catalog. Each factory takes its configuration and returns a Validator;
// Run applies several validators to one value and reports every failure
// together.
package validators

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hbomb79/ffmeta/internal/errs"
)

// Validator checks a single tag value, returning a descriptive error when
// the value is not acceptable.
type Validator func(value string) error

// ValidationError lists every problem found with a value.
type ValidationError struct {
	Value    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%q is invalid: %s", e.Value, strings.Join(e.Problems, "; "))
}

// Is allows errors.Is(err, errs.ErrValidation) to match.
func (e *ValidationError) Is(target error) bool { return target == errs.ErrValidation }

// Run applies all validators to value. Validation does not stop at the
// first failure; if any fail, a *ValidationError holding each message (in
// validator order) is returned.
func Run(value string, validators ...Validator) error {
	var problems []string
	for _, validate := range validators {
		if err := validate(value); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) == 0 {
		return nil
	}

	return &ValidationError{Value: value, Problems: problems}
}

// Pattern requires the value to match the regular expression from its
// first character. The match need not consume the whole value unless the
// pattern itself is anchored with '$'.
func Pattern(pattern string) Validator {
	matcher := regexp.MustCompile(`^(?:` + pattern + `)`)
	return func(value string) error {
		if matcher.MatchString(value) {
			return nil
		}

		return fmt.Errorf("%q does not match pattern %q", value, pattern)
	}
}

// Choice requires the value to be exactly one of the choices given.
func Choice(choices ...string) Validator {
	allowed := slices.Clone(choices)
	slices.Sort(allowed)
	return func(value string) error {
		if _, found := slices.BinarySearch(allowed, value); found {
			return nil
		}

		return fmt.Errorf("%q is not a valid choice, available are %s", value, strings.Join(allowed, ", "))
	}
}

// DateFormat requires the value to parse using the time layout given
// (for example "2006-01-02").
func DateFormat(layout string) Validator {
	return func(value string) error {
		if _, err := time.Parse(layout, value); err != nil {
			return fmt.Errorf("%q does not match date format %q", value, layout)
		}

		return nil
	}
}

// MaxLength limits the value to max characters (runes, not bytes).
func MaxLength(max int) Validator {
	return func(value string) error {
		if utf8.RuneCountInString(value) > max {
			return fmt.Errorf("%q is longer than %d characters", value, max)
		}

		return nil
	}
}
