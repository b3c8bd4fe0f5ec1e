package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to react to the category
// rather than the message: exit codes in the CLI, status codes in the API.
type Kind string

const (
	InvalidRequest        Kind = "invalid_request"
	NotFound              Kind = "not_found"
	MissingVariable       Kind = "missing_variable"
	CompletionUnreachable Kind = "completion_unreachable"
	CompletionTimeout     Kind = "completion_timeout"
	ModelNotFound         Kind = "model_not_found"
	CompletionMalformed   Kind = "completion_malformed"
	CorruptProfile        Kind = "corrupt_profile"
	CorruptTemplate       Kind = "corrupt_template"
	Internal              Kind = "internal"
)

// Error implements error so a Kind can be used directly as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// Error is the structured error surfaced across package boundaries.
type Error struct {
	Kind    Kind
	Stage   string // pipeline stage that failed, empty outside the generator
	Slot    string // offending template slot for MissingVariable
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind target, so errors.Is(err, apperr.NotFound) works
// through any number of wrapping layers.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New creates an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around err.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Missing reports a template slot without a value.
func Missing(slot string) *Error {
	return &Error{Kind: MissingVariable, Slot: slot, Message: fmt.Sprintf("missing value for slot %q", slot)}
}

// WithStage tags err with a pipeline stage. An existing *Error is copied
// with the stage set; anything else becomes an Internal error.
func WithStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		cp := *ae
		cp.Stage = stage
		return &cp
	}
	return &Error{Kind: Internal, Stage: stage, Err: err}
}

// KindOf returns the Kind carried by err, or Internal when err has none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Internal
}

// StageOf returns the stage carried by err, if any.
func StageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}

// IsCompletion reports whether err is any completion service failure.
func IsCompletion(err error) bool {
	switch KindOf(err) {
	case CompletionUnreachable, CompletionTimeout, ModelNotFound, CompletionMalformed:
		return true
	}
	return false
}

// Exit codes used by the command line.
const (
	ExitOK         = 0
	ExitInternal   = 1
	ExitInvalid    = 2
	ExitNotFound   = 3
	ExitCompletion = 4
	ExitMissing    = 5
	ExitCorrupt    = 6
)

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case InvalidRequest:
		return ExitInvalid
	case NotFound:
		return ExitNotFound
	case CompletionUnreachable, CompletionTimeout, ModelNotFound, CompletionMalformed:
		return ExitCompletion
	case MissingVariable:
		return ExitMissing
	case CorruptProfile, CorruptTemplate:
		return ExitCorrupt
	default:
		return ExitInternal
	}
}

// HTTPStatus maps err to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case InvalidRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case MissingVariable:
		return http.StatusUnprocessableEntity
	case CompletionTimeout:
		return http.StatusGatewayTimeout
	case CompletionUnreachable, ModelNotFound, CompletionMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Hint returns a short remediation message for user-facing output.
func Hint(err error) string {
	switch KindOf(err) {
	case CompletionUnreachable:
		return "is the local model server running? try: ollama serve"
	case CompletionTimeout:
		return "the model took too long; raise completion.timeout or use a smaller model"
	case ModelNotFound:
		return "pull the model first, e.g. ollama pull <model>"
	case MissingVariable:
		return "the template and the model output disagree on slots; check the template variables"
	case CorruptProfile:
		return "the stored profile could not be read; delete it with: draftsmith profile delete <user>"
	case CorruptTemplate:
		return "fix the template front matter or remove the file"
	}
	return ""
}
