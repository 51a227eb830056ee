// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"log/slog"
	"os"

	"github.com/fabricctl/controller/internal/logging"
)

// LoggerConfig converts to a logging.Config. Syslog forwarding is left
// disabled when no syslog block is declared.
func (c *Config) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Output = os.Stderr

	if c.Logging != nil {
		if c.Logging.JSON != nil {
			lc.JSON = *c.Logging.JSON
		}
		lc.Level = parseLevel(c.Logging.Level)

		if sb := c.Logging.Syslog; sb != nil && sb.Enabled {
			lc.Syslog = logging.SyslogConfig{
				Enabled:  true,
				Host:     sb.Host,
				Port:     sb.Port,
				Protocol: sb.Protocol,
				Tag:      sb.Tag,
			}
		}
	}
	return lc
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
