// Package salvage recovers structured JSON from free-text agent responses.
//
// Recovery is an ordered list of independent strategies, from strict to
// permissive. The first strategy that yields a value wins; when all of them
// fail the caller gets a *ParseError wrapping ErrNoJSON.
package salvage

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// DefaultPrefixLen bounds the diagnostic excerpt carried by ParseError.
const DefaultPrefixLen = 200

// ErrNoJSON signals that no strategy could recover a JSON value.
var ErrNoJSON = errors.New("no recoverable JSON found")

// ParseError reports an exhausted salvage attempt.
type ParseError struct {
	// Target is "object" or "array".
	Target string
	// Prefix is the leading part of the offending text.
	Prefix string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("salvage: no recoverable JSON %s in response starting with %q", e.Target, e.Prefix)
}

func (e *ParseError) Unwrap() error {
	return ErrNoJSON
}

// Strategy is one recovery attempt. Attempt must not panic on any input.
type Strategy[T any] struct {
	Name    string
	Attempt func(text string) (T, bool)
}

// Parser runs the object and array strategy chains.
type Parser struct {
	objects   []Strategy[map[string]any]
	arrays    []Strategy[[]any]
	prefixLen int
	logger    *slog.Logger
}

// Option customises a Parser.
type Option func(*Parser)

// WithLogger reports which strategy recovered each value at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// WithPrefixLen overrides the diagnostic excerpt length.
func WithPrefixLen(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.prefixLen = n
		}
	}
}

// NewParser builds a parser with the default strategy chains.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		objects:   ObjectStrategies(),
		arrays:    ArrayStrategies(),
		prefixLen: DefaultPrefixLen,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Object returns the first JSON object recovered from text.
func (p *Parser) Object(text string) (map[string]any, error) {
	v, name, ok := run(p.objects, text)
	if !ok {
		return nil, &ParseError{Target: "object", Prefix: excerpt(text, p.prefixLen)}
	}
	p.debug("salvaged json object", "strategy", name)
	return v, nil
}

// Array returns the first JSON array recovered from text.
func (p *Parser) Array(text string) ([]any, error) {
	v, name, ok := run(p.arrays, text)
	if !ok {
		return nil, &ParseError{Target: "array", Prefix: excerpt(text, p.prefixLen)}
	}
	p.debug("salvaged json array", "strategy", name)
	return v, nil
}

func run[T any](strategies []Strategy[T], text string) (T, string, bool) {
	for _, s := range strategies {
		if v, ok := s.Attempt(text); ok {
			return v, s.Name, true
		}
	}
	var zero T
	return zero, "", false
}

func (p *Parser) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}
