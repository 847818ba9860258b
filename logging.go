package session

import (
	"github.com/goliatone/go-logger/glog"
)

// NewLogger returns a structured logger for the given component name,
// suitable for WithLogger and friends. Apps embedding the library will
// usually pass their own logger instead.
func NewLogger(name string) Logger {
	base := glog.NewLogger(
		glog.WithName("session"),
	)

	return base.GetLogger(name)
}
