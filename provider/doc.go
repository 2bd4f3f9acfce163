// Package provider calls OpenAI-compatible chat completion APIs.
//
// The Completer interface is the seam between the meeting collaborators and
// the upstream model. Client implements it over HTTP; tests substitute a
// CompleterFunc.
//
// Non-2xx responses surface as *StatusError, which reports 429 and 5xx as
// retryable so the resilience layer can classify them.
package provider
