package parser

import (
	"github.com/google/uuid"
)

// Context describes one parse call. OperationID and ModelName are used for
// diagnostics only and never influence decoding.
type Context struct {
	// OperationID correlates log lines of one call. A UUID is generated when empty.
	OperationID string
	// ModelName is the model that produced the response.
	ModelName string
	// OperationType names the calling operation, e.g. "analyze" or "check".
	OperationType string
	// Strategy defaults to Adaptive.
	Strategy Strategy
	// DetailedLogging enables DEBUG detail in every stage of the call.
	DetailedLogging bool
}

func (c Context) withDefaults() Context {
	if c.OperationID == "" {
		c.OperationID = uuid.NewString()
	}
	if c.Strategy == nil {
		c.Strategy = Adaptive
	}
	return c
}
