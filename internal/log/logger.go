package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Options configures the process logger
type Options struct {
	Out     *os.File // defaults to stderr
	Verbose bool     // debug level and stage timings
	JSON    bool     // force JSON lines even on a terminal
	RunID   string
}

// Setup installs the global zerolog logger. A terminal gets the
// human-readable console writer, anything else gets JSON lines.
func Setup(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	var w io.Writer = out
	if !opts.JSON && term.IsTerminal(int(out.Fd())) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if opts.RunID != "" {
		ctx = ctx.Str("run_id", opts.RunID)
	}
	logger := ctx.Logger()

	log.Logger = logger
	zerolog.SetGlobalLevel(level)
	return logger
}

// Stage logs the start of a pipeline stage at debug level and returns a
// func that logs its outcome with the elapsed time. A non-nil error is
// logged as a failed stage.
func Stage(logger zerolog.Logger, name string) func(error) {
	start := time.Now()
	logger.Debug().Str("stage", name).Msg("stage started")
	return func(err error) {
		if err != nil {
			logger.Warn().
				Err(err).
				Str("stage", name).
				Dur("elapsed", time.Since(start)).
				Msg("stage failed")
			return
		}
		logger.Debug().
			Str("stage", name).
			Dur("elapsed", time.Since(start)).
			Msg("stage completed")
	}
}
