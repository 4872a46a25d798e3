// Package logger provides logging implementations for counselgo
package logger

import (
	"fmt"
	"log"
	"os"

	"github.com/maumtalk/counselgo/pkg/interfaces"
)

// ConsoleLogger is a simple structured logger writing to the standard log
type ConsoleLogger struct {
	Level  string
	fields map[string]interface{}
}

// Debug logs debug level messages
func (l *ConsoleLogger) Debug(msg string, fields ...map[string]interface{}) {
	if l.Level == "debug" {
		l.logWithFields("DEBUG", msg, fields...)
	}
}

// Info logs info level messages
func (l *ConsoleLogger) Info(msg string, fields ...map[string]interface{}) {
	l.logWithFields("INFO", msg, fields...)
}

// Warn logs warning level messages
func (l *ConsoleLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.logWithFields("WARN", msg, fields...)
}

// Error logs error level messages
func (l *ConsoleLogger) Error(msg string, err error, fields ...map[string]interface{}) {
	var allFields []map[string]interface{}
	if err != nil {
		allFields = append(allFields, map[string]interface{}{"error": err.Error()})
	}
	allFields = append(allFields, fields...)
	l.logWithFields("ERROR", msg, allFields...)
}

// Fatal logs fatal level messages and exits
func (l *ConsoleLogger) Fatal(msg string, err error, fields ...map[string]interface{}) {
	l.Error(msg, err, fields...)
	os.Exit(1)
}

// WithFields returns a logger carrying additional fields on every line
func (l *ConsoleLogger) WithFields(fields map[string]interface{}) interfaces.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &ConsoleLogger{Level: l.Level, fields: merged}
}

func (l *ConsoleLogger) logWithFields(level, msg string, fields ...map[string]interface{}) {
	logMsg := fmt.Sprintf("[%s] %s", level, msg)

	for k, v := range l.fields {
		logMsg += fmt.Sprintf(" %s=%v", k, v)
	}
	for _, fieldMap := range fields {
		for key, value := range fieldMap {
			logMsg += fmt.Sprintf(" %s=%v", key, value)
		}
	}

	log.Println(logMsg)
}

// NewConsoleLogger creates a new console logger
func NewConsoleLogger(level string) interfaces.Logger {
	return &ConsoleLogger{Level: level}
}

// NewTestLogger creates a logger for testing
func NewTestLogger() interfaces.Logger {
	return &ConsoleLogger{Level: "debug"}
}

// NewLogger creates a new logger with default settings
func NewLogger() interfaces.Logger {
	return &ConsoleLogger{Level: "info"}
}
