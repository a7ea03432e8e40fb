package assembler

import (
	"encoding/base64"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/jhsoft/ws02-gateway/src/internal/config"
)

// Encoder transforms one output value.
type Encoder func(string) string

var schemes = map[string]Encoder{
	config.EncodingHTML:   html.EscapeString,
	config.EncodingBase64: func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) },
	config.EncodingURL:    url.QueryEscape,
	config.EncodingNone:   func(s string) string { return s },
}

// Strategy is the encoding applied to an IS_ENCODE API.
type Strategy struct {
	Scheme string
	encode Encoder
	// fields limits encoding to these upper-cased names; nil means all.
	fields map[string]bool
}

// Applies reports whether field is encoded.
func (s Strategy) Applies(field string) bool {
	return s.fields == nil || s.fields[strings.ToUpper(field)]
}

func (s Strategy) Encode(v string) string {
	return s.encode(v)
}

// Encodings selects a Strategy by syntax-configuration key.
type Encodings struct {
	byKey    map[string]Strategy
	fallback Strategy
}

// NewEncodings builds the strategies from the [[encoding]] sections. Keys
// without an entry use defaultScheme on every field.
func NewEncodings(defaultScheme string, entries []*config.EncodingConfig) (*Encodings, error) {
	fallback, err := newStrategy(defaultScheme, nil)
	if err != nil {
		return nil, err
	}

	e := &Encodings{byKey: make(map[string]Strategy, len(entries)), fallback: fallback}
	for _, entry := range entries {
		s, err := newStrategy(entry.Scheme, entry.Fields)
		if err != nil {
			return nil, fmt.Errorf("encoding for %s: %w", entry.SyntaxKey, err)
		}
		e.byKey[entry.SyntaxKey] = s
	}
	return e, nil
}

func newStrategy(scheme string, fields []string) (Strategy, error) {
	if scheme == "" {
		scheme = config.EncodingHTML
	}
	enc, ok := schemes[strings.ToLower(scheme)]
	if !ok {
		return Strategy{}, fmt.Errorf("unknown encoding scheme %q", scheme)
	}

	s := Strategy{Scheme: strings.ToLower(scheme), encode: enc}
	if len(fields) > 0 {
		s.fields = make(map[string]bool, len(fields))
		for _, f := range fields {
			s.fields[strings.ToUpper(strings.TrimSpace(f))] = true
		}
	}
	return s, nil
}

// For returns the strategy of syntaxKey.
func (e *Encodings) For(syntaxKey string) Strategy {
	if s, ok := e.byKey[syntaxKey]; ok {
		return s
	}
	return e.fallback
}

// IsKnownScheme reports whether name is a supported encoding scheme.
func IsKnownScheme(name string) bool {
	_, ok := schemes[strings.ToLower(name)]
	return ok
}
