package ir

import (
	"fmt"
	"strings"
)

// Hook identifies one advice entry point of an aspect.
type Hook uint8

const (
	HookEntry Hook = iota + 1
	HookSuccess
	HookException
	HookExit
	HookYield
	HookResume
	HookInvoke
	HookInvokeAsync
)

var hookNames = [...]string{
	HookEntry:       "entry",
	HookSuccess:     "success",
	HookException:   "exception",
	HookExit:        "exit",
	HookYield:       "yield",
	HookResume:      "resume",
	HookInvoke:      "invoke",
	HookInvokeAsync: "invoke-async",
}

func (h Hook) String() string {
	if h > 0 && int(h) < len(hookNames) {
		return hookNames[h]
	}
	return fmt.Sprintf("hook(%d)", h)
}

// ParseHook parses the textual hook name.
func ParseHook(s string) (Hook, bool) {
	for i, n := range hookNames {
		if i > 0 && n == s {
			return Hook(i), true
		}
	}
	return 0, false
}

// HookSet is a set of hooks.
type HookSet uint16

// Common hook sets.
const (
	BoundaryHooks     = HookSet(1<<HookEntry | 1<<HookSuccess | 1<<HookException | 1<<HookExit | 1<<HookYield | 1<<HookResume)
	InterceptionHooks = HookSet(1<<HookInvoke | 1<<HookInvokeAsync)
)

// Hooks builds a set from individual hooks.
func Hooks(hs ...Hook) HookSet {
	var s HookSet
	for _, h := range hs {
		s = s.With(h)
	}
	return s
}

func (s HookSet) Has(h Hook) bool {
	return s&(1<<h) != 0
}

func (s HookSet) With(h Hook) HookSet {
	return s | 1<<h
}

func (s HookSet) Without(h Hook) HookSet {
	return s &^ (1 << h)
}

// Boundary reports whether s contains any boundary hook.
func (s HookSet) Boundary() bool { return s&BoundaryHooks != 0 }

// Interception reports whether s contains an interception hook.
func (s HookSet) Interception() bool { return s&InterceptionHooks != 0 }

// List returns the hooks in s in declaration order.
func (s HookSet) List() []Hook {
	var out []Hook
	for h := HookEntry; h <= HookInvokeAsync; h++ {
		if s.Has(h) {
			out = append(out, h)
		}
	}
	return out
}

func (s HookSet) String() string {
	hs := s.List()
	names := make([]string, len(hs))
	for i, h := range hs {
		names[i] = h.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}
