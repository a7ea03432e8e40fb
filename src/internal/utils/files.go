package utils

import (
	"io"

	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

// CloseOrWarn closes c and logs a warning naming what on failure.
func CloseOrWarn(c io.Closer, what string) {
	if err := c.Close(); err != nil {
		log.Warnf("Failed to close %s: %v", what, err)
	}
}
