package tspaths

import (
	"io"

	"github.com/sirupsen/logrus"
)

// discardLogger is the sink used when the caller does not provide one.
func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
