package identifier

import (
	"context"
	"errors"
)

// Failure classes for the remote identifier resolution call. The
// onboarding flow surfaces all three as a single "could not resolve
// identifier" outcome; the distinction exists for logs and tests.
var (
	// ErrUnavailable reports a transport-level failure that persisted
	// through every retry attempt.
	ErrUnavailable = errors.New("identifier resolver unavailable")
	// ErrRejected reports a non-success HTTP status from the resolver.
	ErrRejected = errors.New("identifier resolver rejected the image")
	// ErrMalformedResponse reports a success status whose body lacks a
	// usable identifier field.
	ErrMalformedResponse = errors.New("identifier resolver returned a malformed response")
)

// Photo carries an uploaded image toward the resolver.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Resolver maps a photo to the identifier predicted by the remote
// classification service.
type Resolver interface {
	Resolve(ctx context.Context, requestID string, photo Photo) (string, error)
}
