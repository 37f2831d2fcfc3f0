package usecase

import (
	"io"

	"github.com/sirupsen/logrus"
)

var discardLog = func() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}()

func logOrDiscard(l *logrus.Entry) *logrus.Entry {
	if l == nil {
		return discardLog
	}
	return l
}
