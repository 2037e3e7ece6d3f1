package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// discard используется, пока Init не вызван (например, в тестах).
var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// WithFields возвращает запись с полями; до Init логи отбрасываются.
func WithFields(fields logrus.Fields) *logrus.Entry {
	if Log == nil {
		return discard.WithFields(fields)
	}
	return Log.WithFields(fields)
}

// Errorf нужен для goroutine.RecoveryHandler.
type errorfAdapter struct{}

func (errorfAdapter) Errorf(format string, args ...interface{}) {
	if Log == nil {
		discard.Errorf(format, args...)
		return
	}
	Log.Errorf(format, args...)
}

// Recovery возвращает логгер для обработчика panic в горутинах.
func Recovery() interface {
	Errorf(format string, args ...interface{})
} {
	return errorfAdapter{}
}
