package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchmesh/internal/config"
)

var (
	sinkMu sync.RWMutex
	sink   io.Writer = os.Stdout
)

// Init installs the global zerolog logger. When cfg.File is set, output goes
// to stdout and a size-capped file.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var raw io.Writer = os.Stdout
	if cfg.File != "" {
		fw, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB, cfg.Backups)
		if err != nil {
			return err
		}
		raw = io.MultiWriter(os.Stdout, fw)
	}
	setWriter(raw)

	output := raw
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: raw}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer returns the raw sink used by the global logger, for slog handlers
// that should land in the same place.
func Writer() io.Writer {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink
}

func setWriter(w io.Writer) {
	sinkMu.Lock()
	sink = w
	sinkMu.Unlock()
}
