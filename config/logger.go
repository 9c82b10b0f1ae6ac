package config

import (
	"errors"
	"log"
	"syscall"

	"go.uber.org/zap"
)

// InitLogger installs the global zap logger and returns a flush function
// to defer in main.
func InitLogger(env string) (*zap.Logger, func()) {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "dev" || env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			log.Printf("Failed to sync logger: %v\n", err)
		}
	}
	return logger, cleanup
}

// Sync on a terminal stderr fails with EINVAL or ENOTTY.
func isIgnorableSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
