package pulsar

import (
	"context"
	"fmt"

	pulsarlog "github.com/apache/pulsar-client-go/pulsar/log"

	"github.com/klwxsrx/event-booking/pkg/log"
)

// clientLogger routes pulsar client logs to log.Logger.
// The client reports every reconnect and producer lifecycle change at info, those are written at debug.
type clientLogger struct {
	logger log.Logger
}

func newClientLogger(logger log.Logger) clientLogger {
	return clientLogger{logger: logger}
}

func (l clientLogger) SubLogger(fields pulsarlog.Fields) pulsarlog.Logger {
	return clientLogger{l.logger.With(log.Fields(fields))}
}

func (l clientLogger) WithFields(fields pulsarlog.Fields) pulsarlog.Entry {
	return clientLogger{l.logger.With(log.Fields(fields))}
}

func (l clientLogger) WithField(name string, value any) pulsarlog.Entry {
	return clientLogger{l.logger.WithField(name, value)}
}

func (l clientLogger) WithError(err error) pulsarlog.Entry {
	return clientLogger{l.logger.WithError(err)}
}

func (l clientLogger) Debug(args ...any) { l.write(log.LevelDebug, fmt.Sprint(args...)) }
func (l clientLogger) Info(args ...any)  { l.write(log.LevelDebug, fmt.Sprint(args...)) }
func (l clientLogger) Warn(args ...any)  { l.write(log.LevelWarn, fmt.Sprint(args...)) }
func (l clientLogger) Error(args ...any) { l.write(log.LevelError, fmt.Sprint(args...)) }

func (l clientLogger) Debugf(format string, args ...any) {
	l.write(log.LevelDebug, fmt.Sprintf(format, args...))
}

func (l clientLogger) Infof(format string, args ...any) {
	l.write(log.LevelDebug, fmt.Sprintf(format, args...))
}

func (l clientLogger) Warnf(format string, args ...any) {
	l.write(log.LevelWarn, fmt.Sprintf(format, args...))
}

func (l clientLogger) Errorf(format string, args ...any) {
	l.write(log.LevelError, fmt.Sprintf(format, args...))
}

func (l clientLogger) write(level log.Level, msg string) {
	l.logger.Log(context.Background(), level, msg)
}
