package domain

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ClassifyGeneratorError maps a failed generator call onto the generator error
// codes. status is the HTTP status reported by the provider SDK, or 0 when the
// call never produced a response.
func ClassifyGeneratorError(status int, err error) *DomainError {
	if err == nil {
		return nil
	}

	var de *DomainError
	if errors.As(err, &de) {
		return de
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Wrap(ErrCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(ErrGeneratorTimeout, err)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return Wrap(ErrGeneratorQuota, err)
	case status >= 500:
		return Wrap(ErrGeneratorUnavailable, err)
	case status >= 400:
		return Wrap(ErrGeneratorRejected, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(ErrGeneratorTimeout, err)
		}
		return Wrap(ErrGeneratorUnavailable, err)
	}

	return Wrap(ErrGeneratorUnavailable, err)
}
