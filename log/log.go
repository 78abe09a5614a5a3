// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log defines the logger interface used throughout depcheck. By default
// it writes through the Go standard logger but it can be replaced with a
// user-defined implementation.
package log

import (
	"fmt"
	"log"
	"sync"
)

// Logger is the logging interface used by the engine, the analyzers and the
// extraction service.
type Logger interface {
	Errorf(format string, args ...any)
	Error(args ...any)
	Warnf(format string, args ...any)
	Warn(args ...any)
	Infof(format string, args ...any)
	Info(args ...any)
	Debugf(format string, args ...any)
	Debug(args ...any)
}

var (
	mu     sync.RWMutex
	logger Logger = &DefaultLogger{}

	onceMu sync.Mutex
	seen   = map[string]bool{}
)

// SetLogger replaces the package logger.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func current() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Errorf logs a formatted error.
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Warnf logs a formatted warning.
func Warnf(format string, args ...any) { current().Warnf(format, args...) }

// Infof logs a formatted info message.
func Infof(format string, args ...any) { current().Infof(format, args...) }

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) { current().Debugf(format, args...) }

// Error logs an error.
func Error(args ...any) { current().Error(args...) }

// Warn logs a warning.
func Warn(args ...any) { current().Warn(args...) }

// Info logs an info message.
func Info(args ...any) { current().Info(args...) }

// Debug logs a debug message.
func Debug(args ...any) { current().Debug(args...) }

// WarnOnce logs a formatted warning the first time it is called with a given
// key and is a no-op afterwards. Used for conditions that hold for the rest of
// the process, e.g. an analyzer that got disabled.
func WarnOnce(key string, format string, args ...any) {
	onceMu.Lock()
	if seen[key] {
		onceMu.Unlock()
		return
	}
	seen[key] = true
	onceMu.Unlock()
	current().Warnf(format, args...)
}

// DefaultLogger is the Logger used unless SetLogger is called.
type DefaultLogger struct {
	Verbose bool // Whether debug logs should be shown.
}

func (DefaultLogger) printf(level, format string, args ...any) {
	log.Printf("%s %s", level, fmt.Sprintf(format, args...))
}

func (DefaultLogger) println(level string, args ...any) {
	log.Println(append([]any{level}, args...)...)
}

// Errorf implements Logger.
func (l DefaultLogger) Errorf(format string, args ...any) { l.printf("E", format, args...) }

// Warnf implements Logger.
func (l DefaultLogger) Warnf(format string, args ...any) { l.printf("W", format, args...) }

// Infof implements Logger.
func (l DefaultLogger) Infof(format string, args ...any) { l.printf("I", format, args...) }

// Debugf implements Logger.
func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.Verbose {
		l.printf("D", format, args...)
	}
}

// Error implements Logger.
func (l DefaultLogger) Error(args ...any) { l.println("E", args...) }

// Warn implements Logger.
func (l DefaultLogger) Warn(args ...any) { l.println("W", args...) }

// Info implements Logger.
func (l DefaultLogger) Info(args ...any) { l.println("I", args...) }

// Debug implements Logger.
func (l *DefaultLogger) Debug(args ...any) {
	if l.Verbose {
		l.println("D", args...)
	}
}
