package types

import "fmt"

// ParseError reports an undecodable weather token. The field is treated as
// missing by the caller.
type ParseError struct {
	Field string
	Token string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s token %q", e.Field, e.Token)
}

// DataQualityError describes a row that was dropped. It is never fatal; the
// pipeline counts these by Reason.
type DataQualityError struct {
	Stage  string
	Reason string
	Key    string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("%s: dropped %s: %s", e.Stage, e.Key, e.Reason)
}

// DegenerateFitError records a regression scope with no usable observations.
// The scope is still emitted, with undefined parameters.
type DegenerateFitError struct {
	Scope   ModelScope
	ScopeID string
	Samples int
	Reason  string
}

func (e *DegenerateFitError) Error() string {
	return fmt.Sprintf("degenerate %s fit for %s (%d samples): %s", e.Scope, e.ScopeID, e.Samples, e.Reason)
}

// ConfigurationError is the only fatal error class. It aborts a run before any
// fitting begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
