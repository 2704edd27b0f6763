package log

import "github.com/sirupsen/logrus"

// BadgerLogrusAdapter implements badger.Logger on top of a logrus entry.
// Badger's info output (compactions, value log replay) is logged at debug level.
type BadgerLogrusAdapter struct {
	entry *logrus.Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry: entry}
}

// Errorf logs an error message
func (l *BadgerLogrusAdapter) Errorf(f string, v ...any) { l.entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogrusAdapter) Warningf(f string, v ...any) { l.entry.Warnf(f, v...) }

// Infof logs at debug level
func (l *BadgerLogrusAdapter) Infof(f string, v ...any) { l.entry.Debugf(f, v...) }

// Debugf logs at trace level
func (l *BadgerLogrusAdapter) Debugf(f string, v ...any) { l.entry.Tracef(f, v...) }
