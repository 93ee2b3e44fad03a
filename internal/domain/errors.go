// Package domain holds the core types shared across the assistant engine.
package domain

import (
	"errors"
	"fmt"
)

// ConfigError indicates a deployment defect: a routing rule pointing at a
// model key that has no descriptor, an unrecognized provider prefix, and
// so on. These abort the request loudly rather than degrade.
type ConfigError struct {
	Component string // which table or resolver detected the defect
	Ref       string // the offending key or token
	Message   string
}

func (e *ConfigError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s: %s (%q)", e.Component, e.Message, e.Ref)
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Message)
}

// NewConfigError creates a configuration-class error.
func NewConfigError(component, ref, message string) *ConfigError {
	return &ConfigError{Component: component, Ref: ref, Message: message}
}

// IsConfigError reports whether err is configuration-class.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
