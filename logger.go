package subscription

import "go.uber.org/zap"

// Logger is the minimal logging surface used by subscriptions.
type Logger interface {
	Log(v ...any)
	Logf(format string, v ...any)
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// ZapLogger adapts a zap logger. Subscription output is debug level.
func ZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{l: l.WithOptions(zap.AddCallerSkip(2)).Sugar()}
}

func (z *zapLogger) Log(v ...any) {
	z.l.Debug(v...)
}

func (z *zapLogger) Logf(format string, v ...any) {
	z.l.Debugf(format, v...)
}
