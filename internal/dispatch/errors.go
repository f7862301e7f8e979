package dispatch

import (
	"fmt"
	"strings"
)

// ParseError reports a URL that cannot be dispatched.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse url %q: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LookupKind classifies a LookupError.
type LookupKind int

const (
	NoSuchProtocol LookupKind = iota + 1
	NoSuchHost
)

func (k LookupKind) String() string {
	switch k {
	case NoSuchProtocol:
		return "no such protocol"
	case NoSuchHost:
		return "no such host"
	default:
		return fmt.Sprintf("LookupKind(%d)", int(k))
	}
}

// LookupError reports a URL whose scheme or host has no registration.
type LookupError struct {
	Kind   LookupKind
	Scheme string
	Host   string
	URL    string
	Err    error
}

func (e *LookupError) Error() string {
	switch e.Kind {
	case NoSuchProtocol:
		return fmt.Sprintf("no hostnames registered for protocol %q (url %q)", e.Scheme, e.URL)
	case NoSuchHost:
		return fmt.Sprintf("hostname %q not registered for protocol %q (url %q)", e.Host, e.Scheme, e.URL)
	default:
		return fmt.Sprintf("lookup %s://%s (url %q): %v", e.Scheme, e.Host, e.URL, e.Err)
	}
}

func (e *LookupError) Unwrap() error { return e.Err }

// DispatchKind classifies a DispatchError.
type DispatchKind int

const (
	EmptyCommand DispatchKind = iota + 1
	SpawnFailed
	NonZeroExit
)

func (k DispatchKind) String() string {
	switch k {
	case EmptyCommand:
		return "empty command"
	case SpawnFailed:
		return "spawn failed"
	case NonZeroExit:
		return "non-zero exit"
	default:
		return fmt.Sprintf("DispatchKind(%d)", int(k))
	}
}

// DispatchError reports a failure to run a resolved command, or a command
// that ran and exited unsuccessfully. ExitCode is set for NonZeroExit only.
type DispatchError struct {
	Kind     DispatchKind
	Scheme   string
	Host     string
	URL      string
	Command  []string
	ExitCode int
	Err      error
}

func (e *DispatchError) Error() string {
	switch e.Kind {
	case EmptyCommand:
		return fmt.Sprintf("empty command registered for hostname %q of protocol %q (url %q)", e.Host, e.Scheme, e.URL)
	case SpawnFailed:
		return fmt.Sprintf("spawn %s for url %q: %v", strings.Join(e.Command, " "), e.URL, e.Err)
	case NonZeroExit:
		return fmt.Sprintf("%s exited with status %d (url %q)", strings.Join(e.Command, " "), e.ExitCode, e.URL)
	default:
		return fmt.Sprintf("dispatch %s (url %q): %v", strings.Join(e.Command, " "), e.URL, e.Err)
	}
}

func (e *DispatchError) Unwrap() error { return e.Err }
