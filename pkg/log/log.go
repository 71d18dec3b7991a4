package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

const RequestIDKey = "request_id"

type Fields = logrus.Fields

func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetLevel(levelFromEnv())

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        os.Getenv("LOG_NO_COLOR") != "",
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}

		if os.Getenv("APP_ENV") != "test" {
			dir := os.Getenv("LOG_DIR")
			if dir == "" {
				dir = "./storage/logs"
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   filepath.Join(dir, fmt.Sprintf("hawkvision-%s.log", time.Now().Format("2006-01-02"))),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     7,
				MaxBackups: 3,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

func levelFromEnv() logrus.Level {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func Debug(fields Fields, msg string) {
	NewLogger().WithFields(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	NewLogger().WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	NewLogger().WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	NewLogger().WithFields(fields).Error(msg)
}

// ErrorWithTraceID logs msg and returns an id the user can quote back. The
// request id is reused when fields carry one.
func ErrorWithTraceID(fields Fields, msg string) string {
	if fields == nil {
		fields = Fields{}
	}

	traceID, _ := fields[RequestIDKey].(string)
	if traceID == "" || traceID == "unknown" {
		id, err := uuid.NewRandom()
		if err != nil {
			traceID = "unknown"
		} else {
			traceID = id.String()
		}
	}

	fields["trace_id"] = traceID
	NewLogger().WithFields(fields).Error(msg)

	return traceID
}

func WithRequestID(ctx context.Context) *logrus.Entry {
	requestID := "unknown"
	if ctx != nil {
		if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
			requestID = id
		}
	}

	return NewLogger().WithField(RequestIDKey, requestID)
}
