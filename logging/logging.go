// Package logging holds the process-wide logrus logger used by every wgcompute package.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	mu   sync.Mutex
	log  *logrus.Logger
	file *os.File // opened by the last Init, closed when the logger is replaced
)

// Init replaces the logger. level falls back to info when it does not parse. Output goes
// to stderr when console is set and is appended to logFile when one is named; with
// neither it is discarded.
func Init(level, logFile string, console bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	var (
		out []io.Writer
		f   *os.File
	)
	if console {
		out = append(out, os.Stderr)
	}
	if logFile != "" {
		if f, err = openLogFile(logFile); err != nil {
			return err
		}
		out = append(out, f)
	}

	l := logrus.New()
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	l.SetOutput(combine(out))

	mu.Lock()
	prev := file
	log, file = l, f
	mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			return errors.Wrap(err, "close previous log file")
		}
	}
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create log directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", path)
	}
	return f, nil
}

func combine(w []io.Writer) io.Writer {
	switch len(w) {
	case 0:
		return io.Discard
	case 1:
		return w[0]
	default:
		return io.MultiWriter(w...)
	}
}

// Get returns the current logger. Before Init it is a warn-level logger on stderr.
func Get() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// SetOutput redirects the current logger.
func SetOutput(w io.Writer) {
	Get().SetOutput(w)
}

func Debugf(format string, args ...interface{}) { Get().Debugf(format, args...) }

func Infof(format string, args ...interface{}) { Get().Infof(format, args...) }

func Warnf(format string, args ...interface{}) { Get().Warnf(format, args...) }

func Errorf(format string, args ...interface{}) { Get().Errorf(format, args...) }
