// Package logrus adapts a *logrus.Entry to relcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/relcache"
)

var _ relcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every entry with component=relcache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "relcache")}
}

func (l LogrusLogger) Debug(msg string, f relcache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f relcache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f relcache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f relcache.Fields) { l.with(f).Error(msg) }

// with moves an "err" field to logrus' error key.
func (l LogrusLogger) with(f relcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
