// Package command maps the tool's operations onto registration and dispatch.
//
// Operation is a closed set; Executor.Execute handles each member in one
// switch. Every failure Execute returns maps to a process exit code through
// ExitCode.
package command

// Operation is one of Open, Register, RegisterHost, Unregister or
// UnregisterHost.
type Operation interface {
	operation()
}

// Open dispatches URL to its registered command.
type Open struct {
	URL string
}

// Register points Protocol at this executable.
type Register struct {
	Protocol string
	// Debugging bakes the configured debug argument into the open command.
	Debugging bool
}

// RegisterHost maps Protocol://Hostname to CommandLine, registering
// Protocol as well.
type RegisterHost struct {
	Protocol    string
	Hostname    string
	CommandLine []string
	Debugging   bool
}

// Unregister removes Protocol and all of its hosts.
type Unregister struct {
	Protocol string
}

// UnregisterHost removes one host, and the protocol with it when it was
// the last one.
type UnregisterHost struct {
	Protocol string
	Hostname string
}

func (Open) operation()           {}
func (Register) operation()       {}
func (RegisterHost) operation()   {}
func (Unregister) operation()     {}
func (UnregisterHost) operation() {}
