package rabbitmq

import (
	"context"
	"fmt"

	"github.com/klwxsrx/event-booking/pkg/log"
)

type loggerAdapter struct {
	logger log.Logger
}

func newLoggerAdapter(logger log.Logger) loggerAdapter {
	return loggerAdapter{logger.WithField("component", "amqp091")}
}

func (l loggerAdapter) Printf(format string, v ...any) {
	l.logger.Warn(context.Background(), fmt.Sprintf(format, v...))
}
