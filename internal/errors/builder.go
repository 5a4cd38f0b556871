package errors

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder accumulates hints and details on an error until Mark attaches
// the sentinel that decides its HTTP status. It is not an error itself, so a
// chain that forgets Mark does not compile into a return statement.
type ErrorBuilder struct {
	err error
}

// NewError starts a chain from an internal message. The message is logged,
// never shown to clients.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a chain from an error returned by a collaborator
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithHint sets the client-facing message
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches ids and other non-secret fields that are
// returned to clients and sent to Sentry. Empty maps are skipped.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	if len(details) == 0 {
		return b
	}
	marshaled, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, "__json__:%s", errors.Safe(string(marshaled)))
	return b
}

// Mark ends the chain
func (b *ErrorBuilder) Mark(reference error) error {
	return errors.Mark(b.err, reference)
}
