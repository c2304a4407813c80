package imagestore

import (
	"log"

	"github.com/dgraph-io/badger/v4"
)

// logger routes badger's internal logging through the standard logger.
type logger struct {
	l     *log.Logger
	debug bool
}

// NewLogger returns a badger.Logger that writes to l with an [imagestore]
// prefix. Debug messages are dropped unless debug is set.
func NewLogger(l *log.Logger, debug bool) badger.Logger {
	if l == nil {
		l = log.Default()
	}
	return &logger{l: l, debug: debug}
}

func (g *logger) Errorf(format string, args ...interface{}) {
	g.l.Printf("[imagestore] ERROR: "+format, args...)
}

func (g *logger) Warningf(format string, args ...interface{}) {
	g.l.Printf("[imagestore] WARN: "+format, args...)
}

func (g *logger) Infof(format string, args ...interface{}) {
	g.l.Printf("[imagestore] "+format, args...)
}

func (g *logger) Debugf(format string, args ...interface{}) {
	if g.debug {
		g.l.Printf("[imagestore] DEBUG: "+format, args...)
	}
}
