package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// discard используется, пока Init не вызван (тесты, CLI без логов).
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

// L возвращает активный логгер или заглушку.
func L() *logrus.Logger {
	if Log != nil {
		return Log
	}
	return discard
}

// Op возвращает запись с полем операции.
func Op(op string) *logrus.Entry {
	return L().WithField("op", op)
}

// BugReport фиксирует нарушение инварианта, которое не должно случаться.
func BugReport(op string, fields logrus.Fields) {
	L().WithFields(fields).WithField("op", op).WithField("bug_report", true).Error("invariant violated")
}
