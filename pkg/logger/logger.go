package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger initializes the structured logger with proper configuration
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			if isDevelopment {
				logLevel = "debug"
			} else {
				logLevel = "info"
			}
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
	}

	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	log.SetOutput(os.Stdout)

	Logger = log

	return log
}

// NewDiscardLogger returns a logger that drops everything. Used by tests and
// by components constructed without an explicit logger.
func NewDiscardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

// WithOptimizationContext tags base with the fields carried by every log
// line of one optimization run. A nil base uses the global logger.
func WithOptimizationContext(base *logrus.Logger, optimizationID, strategy, mode string) *logrus.Entry {
	if base == nil {
		base = GetLogger()
	}
	return base.WithFields(logrus.Fields{
		"optimization_id": optimizationID,
		"strategy":        strategy,
		"solver_mode":     mode,
	})
}

// WithHTTPContext creates a logger with HTTP request context
func WithHTTPContext(base *logrus.Logger, method, path, userAgent string) *logrus.Entry {
	if base == nil {
		base = GetLogger()
	}
	return base.WithFields(logrus.Fields{
		"http_method":     method,
		"http_path":       path,
		"http_user_agent": userAgent,
	})
}

// WithRequestContext adds request correlation ids to entry. Empty ids are
// left out.
func WithRequestContext(entry *logrus.Entry, requestID, optimizationID string) *logrus.Entry {
	fields := logrus.Fields{}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if optimizationID != "" {
		fields["optimization_id"] = optimizationID
	}
	return entry.WithFields(fields)
}
