package gate

import (
	"strings"
	"sync/atomic"
)

// DefaultTargetApp is the application whose notifications are relayed.
const DefaultTargetApp = "Firefox"

// AppFilter accepts records whose app name contains the target substring
// (case-sensitive). The target may be swapped while the pipeline runs.
type AppFilter struct {
	target atomic.Pointer[string]
}

func NewAppFilter(target string) *AppFilter {
	f := &AppFilter{}
	f.SetTarget(target)
	return f
}

func (f *AppFilter) SetTarget(target string) {
	f.target.Store(&target)
}

func (f *AppFilter) Target() string {
	if t := f.target.Load(); t != nil {
		return *t
	}
	return ""
}

func (f *AppFilter) Accept(app string) bool {
	return strings.Contains(app, f.Target())
}
