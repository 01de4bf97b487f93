package config

import (
	"go.uber.org/zap/zapcore"

	"github.com/shardnet/go-shard/log"
)

const defaultLoggingLevel = zapcore.InfoLevel

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	Encoder             string `mapstructure:"log-encoder"`
	AppLoggerLevel      string `mapstructure:"app"`
	IngestLoggerLevel   string `mapstructure:"ingest"`
	VMLoggerLevel       string `mapstructure:"vm"`
	DALoggerLevel       string `mapstructure:"da"`
	LocalDALoggerLevel  string `mapstructure:"localda"`
	APILoggerLevel      string `mapstructure:"api"`
	SubmitLoggerLevel   string `mapstructure:"submit"`
	DatabaseLoggerLevel string `mapstructure:"db"`
	MetricsLoggerLevel  string `mapstructure:"metrics"`
}

// DefaultLoggingConfig logs every module at info level to the console.
func DefaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:             log.ConsoleEncoder,
		AppLoggerLevel:      defaultLoggingLevel.String(),
		IngestLoggerLevel:   defaultLoggingLevel.String(),
		VMLoggerLevel:       defaultLoggingLevel.String(),
		DALoggerLevel:       defaultLoggingLevel.String(),
		LocalDALoggerLevel:  defaultLoggingLevel.String(),
		APILoggerLevel:      defaultLoggingLevel.String(),
		SubmitLoggerLevel:   defaultLoggingLevel.String(),
		DatabaseLoggerLevel: zapcore.WarnLevel.String(),
		MetricsLoggerLevel:  defaultLoggingLevel.String(),
	}
}
