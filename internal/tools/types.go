// Package tools provides the assistant's executable capabilities: a
// registry of named tools, per-tool risk classification, and the security
// gate enforcing the confirmation protocol before anything runs.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RiskTier classifies a tool's potential for harm.
type RiskTier string

const (
	// TierSafe tools run without restriction.
	TierSafe RiskTier = "safe"
	// TierModerate tools run directly but are logged prominently.
	TierModerate RiskTier = "moderate"
	// TierHighRisk tools require explicit user confirmation per request.
	TierHighRisk RiskTier = "high_risk"
	// TierForbidden tools never execute, no confirmation path exists.
	TierForbidden RiskTier = "forbidden"
)

// Common errors
var (
	ErrUnknownTool           = errors.New("unknown tool")
	ErrInvalidParameters     = errors.New("invalid tool parameters")
	ErrForbiddenAction       = errors.New("action forbidden by security policy")
	ErrConfirmationRequired  = errors.New("action requires user confirmation")
	ErrConfirmationDenied    = errors.New("action denied by user")
	ErrConfirmationTimeout   = errors.New("confirmation window elapsed")
	ErrDuplicateRegistration = errors.New("tool already registered")
)

// Param describes one tool parameter.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, int, float, bool
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
}

// Descriptor is the immutable registration record for a tool.
type Descriptor struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []Param  `json:"params"`
	Tier        RiskTier `json:"tier"`
}

// Result is the outcome of one tool invocation.
type Result struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Err     string `json:"error,omitempty"`
}

// Failure builds a failed Result from an error.
func Failure(err error) Result {
	return Result{Success: false, Err: err.Error()}
}

// Handler executes a tool. Implementations receive validated parameters
// with defaults applied; they must not be invoked any other way.
type Handler interface {
	Execute(ctx context.Context, params map[string]string) Result
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, params map[string]string) Result

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx context.Context, params map[string]string) Result {
	return f(ctx, params)
}

// validateParams checks params against the descriptor: required present,
// typed values parseable, defaults applied. Returns the validated map or
// an ErrInvalidParameters-wrapped error; the handler is never called with
// anything else.
func validateParams(desc Descriptor, params map[string]string) (map[string]string, error) {
	validated := make(map[string]string, len(desc.Params))

	for _, p := range desc.Params {
		value, ok := params[p.Name]
		if !ok || strings.TrimSpace(value) == "" {
			if p.Required {
				return nil, fmt.Errorf("%w: missing required parameter %q", ErrInvalidParameters, p.Name)
			}
			if p.Default != "" {
				validated[p.Name] = p.Default
			}
			continue
		}

		switch p.Type {
		case "int":
			if _, err := strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("%w: parameter %q must be an integer", ErrInvalidParameters, p.Name)
			}
		case "float":
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return nil, fmt.Errorf("%w: parameter %q must be a number", ErrInvalidParameters, p.Name)
			}
		case "bool":
			if _, err := strconv.ParseBool(value); err != nil {
				return nil, fmt.Errorf("%w: parameter %q must be a boolean", ErrInvalidParameters, p.Name)
			}
		}

		validated[p.Name] = value
	}

	return validated, nil
}
