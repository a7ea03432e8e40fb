package executor

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jhsoft/ws02-gateway/src/internal/errors"
)

// Substrings of driver errors that mean the backend was never reached or
// dropped the connection.
var connectionErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"no route to host",
	"dial",
	"i/o timeout",
	"use of closed network connection",
	"bad connection",
	"login failed",
	"handshake failed",
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr *net.OpError
	if stderrors.As(err, &netErr) {
		return true
	}
	if stderrors.Is(err, io.EOF) ||
		stderrors.Is(err, syscall.ECONNREFUSED) ||
		stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, syscall.EPIPE) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range connectionErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// classify turns a backend error into an ExecutionError. A deadline on ctx
// always wins over what the driver reported.
func classify(ctx context.Context, host string, err error) error {
	var execErr *errors.ExecutionError
	if stderrors.As(err, &execErr) {
		return err
	}

	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded),
		stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewTimeoutError(host, err)
	case stderrors.Is(ctx.Err(), context.Canceled):
		return errors.NewTimeoutError(host, ctx.Err())
	case isConnectionError(err):
		return errors.NewConnectionFailureError(host, err)
	}
	return errors.NewRemoteFailureError(host, 0, err)
}
