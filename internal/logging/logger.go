// ABOUTME: logrus setup with optional rotating file output via lumberjack.
// ABOUTME: Console output goes to stderr so stdout stays free for CLI and MCP traffic.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Params struct {
	File    string
	Level   string
	JSON    bool
	Console bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup configures log. The returned closer releases the log file.
func Setup(log *logrus.Logger, p Params) io.Closer {
	if p.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.SetLevel(GetLevel(p.Level))

	if p.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}
	if !strings.HasSuffix(p.File, ".log") {
		p.File += ".log"
	}

	rotating := &lumberjack.Logger{
		Filename:   p.File,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     90, // days
		Compress:   true,
	}
	if p.Console {
		log.SetOutput(io.MultiWriter(os.Stderr, rotating))
	} else {
		log.SetOutput(rotating)
	}
	return rotating
}

func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
