package harness

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Guardrails validates extracted command arguments and masks secrets in replies.
type Guardrails struct {
	mu            sync.RWMutex
	schemas       map[string]*gojsonschema.Schema // per action kind
	outputFilters []*regexp.Regexp
}

// NewGuardrails creates guardrails with the default secret filters.
func NewGuardrails() *Guardrails {
	return &Guardrails{
		schemas: make(map[string]*gojsonschema.Schema),
		outputFilters: []*regexp.Regexp{
			regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`),
			regexp.MustCompile(`\bhf_[A-Za-z0-9]{10,}\b`),
			regexp.MustCompile(`(?i)password[:=]\s*\S+`),
			regexp.MustCompile(`(?i)api[_-]?key[:=]\s*\S+`),
			regexp.MustCompile(`(?i)secret[:=]\s*\S+`),
		},
	}
}

// AddOutputFilter masks every match of pattern in sanitized output.
func (g *Guardrails) AddOutputFilter(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid redact pattern %q: %w", pattern, err)
	}
	g.mu.Lock()
	g.outputFilters = append(g.outputFilters, re)
	g.mu.Unlock()
	return nil
}

// RegisterSchema compiles a JSON schema for the arguments of a named action.
func (g *Guardrails) RegisterSchema(name string, schema []byte) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", name, err)
	}
	g.mu.Lock()
	g.schemas[name] = compiled
	g.mu.Unlock()
	return nil
}

// ValidateArgs checks args against the schema registered for name.
// Names without a schema always pass.
func (g *Guardrails) ValidateArgs(name string, args any) error {
	g.mu.RLock()
	schema, ok := g.schemas[name]
	g.mu.RUnlock()
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("invalid %s arguments: %s", name, strings.Join(errs, "; "))
	}

	return nil
}

// SanitizeOutput masks sensitive information in text shown or spoken to the user.
func (g *Guardrails) SanitizeOutput(output string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sanitized := output
	for _, filter := range g.outputFilters {
		sanitized = filter.ReplaceAllString(sanitized, "[REDACTED]")
	}
	return sanitized
}
