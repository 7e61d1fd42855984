package serialization_test

import (
	"io"
	"log/slog"

	"github.com/born-ml/gradcheck/internal/gradcheck"
)

func quietConfig() gradcheck.Config {
	cfg := gradcheck.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}
