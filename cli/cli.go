// Package cli implements the roadlens-cli commands.
package cli

import (
	"log/slog"

	"github.com/absmach/roadlens"
	"github.com/absmach/roadlens/pkg/sdk"
)

var (
	rsdk   sdk.SDK
	cfg    = roadlens.DefaultConfig()
	logger = slog.New(slog.DiscardHandler)
)

// SetSDK sets the client used by commands that call the server.
func SetSDK(s sdk.SDK) {
	rsdk = s
}

// SetConfig sets the defaults commands fall back to when a flag is unset.
func SetConfig(c roadlens.Config) {
	cfg = c
}

// SetLogger sets the logger used by commands that run pipelines locally.
func SetLogger(l *slog.Logger) {
	logger = l
}
