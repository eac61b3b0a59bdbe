// Package converter defines the HTML-to-PDF conversion contract.
//
// The converter binary is an external collaborator: implementations invoke it
// with an explicit argument list (never through a shell), so user-controlled
// text such as the document title is passed as a single argument.
package converter

import (
	"context"
	"errors"
	"time"
)

// ErrConversion marks a converter process that failed or exited non-zero.
var ErrConversion = errors.New("converter: conversion failed")

// Request describes one card conversion.
type Request struct {
	CardID string `json:"cardId"`
	// Title is set as the PDF document title.
	Title string `json:"title"`
	// HTMLPath is the absolute path of the stored card document.
	HTMLPath string `json:"htmlPath"`
}

// Result is a finished conversion.
type Result struct {
	PDF      []byte        `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Converter renders a stored card document as PDF.
type Converter interface {
	Convert(ctx context.Context, req Request) (*Result, error)
	// Name identifies the implementation in logs and the audit trail.
	Name() string
}
