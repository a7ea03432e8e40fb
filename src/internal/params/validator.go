// Package params validates caller input against an API's field rules.
package params

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
)

// FieldError describes one failing field.
type FieldError struct {
	Field    string `json:"field"`
	Position int    `json:"position"`
	Message  string `json:"message"`
}

// FieldErrors lists every failing field of one request.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		if e.Position > 0 {
			parts[i] = fmt.Sprintf("%s (#%d): %s", e.Field, e.Position, e.Message)
		} else {
			parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// Validate checks input against rules and returns the parameters in rule order.
//
// Input keys are field names or positions. Positions count from 1 in rule
// order, whatever the gaps between the declared indexes. A field that is
// absent or empty takes its default. Every failing field is reported; if any
// fails the whole input is rejected with a VALIDATION_ERROR whose cause is
// FieldErrors.
func Validate(rules []domain.FieldRule, input map[string]string) (domain.ValidatedParams, error) {
	ordered := append([]domain.FieldRule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	var failures FieldErrors
	consumed := make(map[string]bool, len(input))
	result := make(domain.ValidatedParams, 0, len(ordered))

	for i, rule := range ordered {
		position := i + 1
		value, supplied, conflict := lookup(rule, position, input, consumed)
		if conflict {
			failures = append(failures, FieldError{
				Field:    rule.Name,
				Position: position,
				Message:  "supplied both by name and by position with different values",
			})
			continue
		}
		if value == "" {
			value, supplied = rule.Default, false
		}

		if rule.Matcher != nil && !rule.Matcher.Match(value) {
			msg := fmt.Sprintf("value %q does not satisfy %s", value, rule.Matcher.Description())
			if value == "" {
				msg = "value is required"
			}
			failures = append(failures, FieldError{Field: rule.Name, Position: position, Message: msg})
			continue
		}

		result = append(result, domain.Param{
			Position:  position,
			Name:      rule.Name,
			Value:     value,
			Defaulted: !supplied,
		})
	}

	for _, key := range sortedKeys(input) {
		if !consumed[key] {
			failures = append(failures, FieldError{Field: key, Message: "unknown field"})
		}
	}

	if len(failures) > 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("%d invalid parameter(s)", len(failures)), failures)
	}
	return result, nil
}

// lookup finds the value for rule by name (exact, then case-insensitive) and by position.
func lookup(rule domain.FieldRule, position int, input map[string]string, consumed map[string]bool) (value string, supplied, conflict bool) {
	byName, nameKey, hasName := "", "", false
	if v, ok := input[rule.Name]; ok {
		byName, nameKey, hasName = v, rule.Name, true
	} else {
		for key, v := range input {
			if !consumed[key] && strings.EqualFold(key, rule.Name) {
				byName, nameKey, hasName = v, key, true
				break
			}
		}
	}

	posKey := strconv.Itoa(position)
	byPos, hasPos := input[posKey]

	if hasName {
		consumed[nameKey] = true
	}
	if hasPos {
		consumed[posKey] = true
	}

	switch {
	case hasName && hasPos && byName != "" && byPos != "" && byName != byPos:
		return "", false, true
	case hasName && byName != "":
		return byName, true, false
	case hasPos:
		return byPos, true, false
	case hasName:
		return byName, true, false
	}
	return "", false, false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
