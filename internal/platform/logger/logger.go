package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. Production config (JSON, ISO timestamps)
// unless SUCI_DEV_LOG asks for the human-readable console encoder.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
