package badgerdb_logger

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/pietroski-software-company/golang/devex/slogx"
)

type (
	Logger interface {
		Errorf(format string, v ...interface{})
		Infof(format string, v ...interface{})
		Warningf(format string, v ...interface{})
		Debugf(format string, v ...interface{})
	}

	// SLogger forwards badger's printf style logs to a slogx logger.
	SLogger struct {
		ctx    context.Context
		logger slogx.SLogger
		source string
	}
)

func NewBadgerDBSLogger(ctx context.Context, logger slogx.SLogger, source string) *SLogger {
	return &SLogger{
		ctx:    ctx,
		logger: logger,
		source: source,
	}
}

func (l *SLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(l.ctx, l.msg(format, v...), "source", l.source)
}

func (l *SLogger) Infof(format string, v ...interface{}) {
	l.logger.Info(l.ctx, l.msg(format, v...), "source", l.source)
}

func (l *SLogger) Warningf(format string, v ...interface{}) {
	l.logger.Warn(l.ctx, l.msg(format, v...), "source", l.source)
}

func (l *SLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(l.ctx, l.msg(format, v...), "source", l.source)
}

func (l *SLogger) msg(format string, v ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
