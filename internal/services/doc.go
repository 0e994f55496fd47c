// Package services provides the shared error taxonomy and context annotation
// helpers used across the workflow engine, roles, and the audio pipeline.
//
// Errors are classified by wrapping sentinel markers (ErrValidation,
// ErrTransient, ErrProvider, ...) via Wrap so callers can branch with
// errors.Is without string matching.
package services
