package app

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger builds the root logger at the given level ("debug", "info",
// "warn", "error"). A nil w writes to stderr.
func NewLogger(level string, w io.Writer) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "relaychat",
		Level:           lvl,
	})
	return logger, nil
}
