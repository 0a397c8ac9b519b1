/*
	Copyright (c) 2023 Adrian Batzill
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	logging.go: Console and rotating file logging for sensortest.
*/

package main

import (
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/ricochet2200/go-disk-usage/du"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// File logging is skipped when the log directory has less free space.
var minLogFreeBytes uint64 = 50 * 1024 * 1024 // leave 50mb free

const (
	logMaxSizeMB  = 10
	logMaxBackups = 9
)

// newLogger logs to stderr and, if s.LogFile is set and the disk has room,
// to a rotating log file. The returned func flushes and closes the file.
func newLogger(s settings) (golog.Logger, func() error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if s.DEBUG {
		level.SetLevel(zap.DebugLevel)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	var (
		rotator  *lumberjack.Logger
		noRoomIn string
	)
	if s.LogFile != "" {
		dir := filepath.Dir(s.LogFile)
		if free := du.NewDiskUsage(dir).Free(); free < minLogFreeBytes {
			noRoomIn = dir
		} else {
			rotator = &lumberjack.Logger{
				Filename:   s.LogFile,
				MaxSize:    logMaxSizeMB,
				MaxBackups: logMaxBackups,
			}
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotator), level))
		}
	}

	base := zap.New(zapcore.NewTee(cores...))
	logger := base.Sugar()
	if noRoomIn != "" {
		logger.Warnf("not logging to %s: less than %d bytes free in %s", s.LogFile, minLogFreeBytes, noRoomIn)
	}

	closeFn := func() error {
		// Syncing stderr fails on some terminals; only the file matters.
		_ = base.Sync()
		if rotator != nil {
			return rotator.Close()
		}
		return nil
	}
	return logger, closeFn
}
