package params

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
)

const validatePrefix = "validate:"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// CompileRule turns REG_DESC text into a matcher.
//
// Recognised forms:
//   - "/expr/": regular expression between slashes
//   - "^expr", "expr$": anchored regular expression
//   - "validate:tags": go-playground/validator tags, e.g. "validate:numeric,len=6"
//
// Any other text is a free-form description and yields a nil matcher.
func CompileRule(rule string) (domain.ValueMatcher, error) {
	text := strings.TrimSpace(rule)
	switch {
	case text == "":
		return nil, nil
	case strings.HasPrefix(text, validatePrefix):
		return compileTags(strings.TrimSpace(strings.TrimPrefix(text, validatePrefix)))
	case len(text) >= 2 && strings.HasPrefix(text, "/") && strings.HasSuffix(text, "/"):
		return compileRegexp(text[1 : len(text)-1])
	case strings.HasPrefix(text, "^") || strings.HasSuffix(text, "$"):
		return compileRegexp(text)
	}
	return nil, nil
}

type regexpMatcher struct {
	re *regexp.Regexp
}

func compileRegexp(expr string) (domain.ValueMatcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return &regexpMatcher{re: re}, nil
}

func (m *regexpMatcher) Match(value string) bool {
	return m.re.MatchString(value)
}

func (m *regexpMatcher) Description() string {
	return "pattern " + m.re.String()
}

type tagMatcher struct {
	tags string
}

func compileTags(tags string) (matcher domain.ValueMatcher, err error) {
	if tags == "" {
		return nil, fmt.Errorf("empty validator tags")
	}
	// validator panics on unknown tags; surface that as a compile error
	defer func() {
		if r := recover(); r != nil {
			matcher, err = nil, fmt.Errorf("invalid validator tags %q: %v", tags, r)
		}
	}()
	_ = validatorInstance().Var("", tags)
	return &tagMatcher{tags: tags}, nil
}

func (m *tagMatcher) Match(value string) bool {
	return validatorInstance().Var(value, m.tags) == nil
}

func (m *tagMatcher) Description() string {
	return "rule " + m.tags
}
