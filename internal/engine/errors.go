package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kalambet/draftsmith/internal/apperr"
)

// ErrPullUnsupported is returned by backends that cannot download models.
var ErrPullUnsupported = errors.New("backend does not support pulling models")

// classify maps a backend failure onto the completion error kinds. status is
// the HTTP status when the server answered, 0 otherwise; msg is the server's
// error text if any.
func classify(backend, model string, err error, status int, msg string) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(msg)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(err, apperr.CompletionTimeout, "%s did not answer in time", backend)
	case errors.Is(err, context.Canceled):
		return err
	case status == http.StatusNotFound || (status != 0 && strings.Contains(lower, "not found")):
		return apperr.Wrap(err, apperr.ModelNotFound, "model %q not available on %s", model, backend)
	case status >= 500:
		return apperr.Wrap(err, apperr.CompletionUnreachable, "%s server error", backend)
	case status != 0:
		return apperr.Wrap(err, apperr.CompletionMalformed, "%s rejected the request", backend)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Wrap(err, apperr.CompletionTimeout, "%s did not answer in time", backend)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperr.Wrap(err, apperr.CompletionMalformed, "%s returned an unreadable response", backend)
	}
	return apperr.Wrap(err, apperr.CompletionUnreachable, "cannot reach %s", backend)
}
