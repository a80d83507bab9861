package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

/*
newLogger returns a logger writing to stderr, so that it never mixes
with the results written to stdout. Debug messages are only logged
if verbose is true.
*/
func newLogger(verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(config), zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}

func (rcc *rootCmdConfig) Logf(format string, a ...interface{}) {
	if rcc.logger == nil {
		return
	}
	rcc.logger.Sugar().Debugf(format, a...)
}
