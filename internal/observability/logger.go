// Package observability holds the process-wide logger and Prometheus
// metrics shared by the cube packages and the command line tools.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Advisory kinds carried in the "warning" field of non-fatal warnings.
const (
	WarnLargeMaterialize    = "large_materialize"
	WarnVarianceMoment      = "variance_moment"
	WarnUndersampled        = "undersampled_resample"
	WarnMixedAxesProjection = "mixed_axes_projection"
	WarnMaskDropped         = "mask_dropped"
	WarnIdenticalBeam       = "identical_beam"
	WarnRotatedBeamKernel   = "rotated_beam_kernel"
)

func InitLogger(app string) zerolog.Logger {
	return InitLoggerTo(os.Stdout, app)
}

// InitLoggerTo installs a console logger writing to out.
func InitLoggerTo(out io.Writer, app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// SetLogger replaces the global logger. Tests use it to capture warnings.
func SetLogger(l zerolog.Logger) {
	log.Logger = l
}

func Logger() *zerolog.Logger {
	return &log.Logger
}

// SetLevel parses level ("debug", "info", "warn", ...) and applies it
// globally. An empty level leaves the current setting alone.
func SetLevel(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// Warn starts a warn-level event tagged with the advisory kind.
func Warn(kind string) *zerolog.Event {
	return log.Logger.Warn().Str("warning", kind)
}
