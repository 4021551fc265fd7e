// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/gem-network/gem/internal/miner"
	"github.com/gem-network/gem/internal/network"
	"github.com/gem-network/gem/internal/pow"
	"github.com/gem-network/gem/internal/rpc"
	"github.com/gem-network/gem/internal/state"
	"github.com/gem-network/gem/internal/store"
)

// logRotator writes to a rotated log file under <directory>/gemd.log;
// logWriter copies each line to stdout as well.
var logRotator *rotator.Rotator

// subsystemLoggers maps each package's tagged logger to its Log variable.
var subsystemLoggers = map[string]*slog.Logger{
	"STOR": &store.Log,
	"STAT": &state.Log,
	"NTWK": &network.Log,
	"MINR": &miner.Log,
	"POWX": &pow.Log,
	"RPCS": &rpc.Log,
}

func initLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// logWriter splits log output to both stdout and the rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	logRotator.Write(p)
	return len(p), nil
}

func setupLogging(logFile string, level slog.Level) error {
	if err := initLogRotator(logFile); err != nil {
		return err
	}
	backend := slog.NewBackend(io.Writer(logWriter{}))
	for tag, logVar := range subsystemLoggers {
		l := backend.Logger(tag)
		l.SetLevel(level)
		*logVar = l
	}
	return nil
}
