// Package model defines the records shared between the service and
// repository layers.
package model

import "time"

// Conversion statuses.
const (
	ConversionSucceeded = "succeeded"
	ConversionFailed    = "failed"
)

// Conversion is one attempt of the render service to turn a stored card into
// a PDF. Only metadata is kept; the PDF itself is returned to the caller.
type Conversion struct {
	ID        string        `json:"id"`
	CardID    string        `json:"cardId"`
	Converter string        `json:"converter"`
	Status    string        `json:"status"`
	Bytes     int           `json:"bytes"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}
