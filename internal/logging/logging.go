// Package logging builds the process logger.
package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Open returns a timestamped logger writing to the given file, or to
// stderr when path is empty. The cleanup function closes the file and is
// always safe to call.
func Open(path, level string) (zerolog.Logger, func(), error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	w := os.Stderr
	cleanup := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("logging: open %s: %w", path, err)
		}
		w = f
		cleanup = func() { f.Close() }
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), cleanup, nil
}
