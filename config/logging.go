package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEncoder defines a log encoder kind.
type LogEncoder = string

const (
	defaultLoggingLevel = zapcore.InfoLevel
	// ConsoleLogEncoder represents logging with plain text.
	ConsoleLogEncoder LogEncoder = "console"
	// JSONLogEncoder represents logging with JSON.
	JSONLogEncoder LogEncoder = "json"
)

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	Encoder                 LogEncoder `mapstructure:"log-encoder"`
	AppLoggerLevel          string     `mapstructure:"app"`
	GatewayLoggerLevel      string     `mapstructure:"gateway"`
	OrchestratorLoggerLevel string     `mapstructure:"orchestrator"`
	SigningLoggerLevel      string     `mapstructure:"signing"`
}

func defaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:                 ConsoleLogEncoder,
		AppLoggerLevel:          defaultLoggingLevel.String(),
		GatewayLoggerLevel:      defaultLoggingLevel.String(),
		OrchestratorLoggerLevel: defaultLoggingLevel.String(),
		SigningLoggerLevel:      defaultLoggingLevel.String(),
	}
}

// Build constructs the app root logger. Module loggers are derived from it
// with Named plus the module's own level.
func (c LoggerConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.AppLoggerLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", c.AppLoggerLevel, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	switch c.Encoder {
	case JSONLogEncoder:
		zcfg.Encoding = "json"
	case ConsoleLogEncoder, "":
		zcfg.Encoding = "console"
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("unknown log encoder %q", c.Encoder)
	}
	return zcfg.Build()
}

// Module returns a named child of root capped at the module's configured
// level. An unparsable or empty level falls back to the root level.
func (c LoggerConfig) Module(root *zap.Logger, name, level string) *zap.Logger {
	logger := root.Named(name)
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return logger
	}
	return logger.WithOptions(zap.IncreaseLevel(parsed))
}
