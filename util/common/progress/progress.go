// Package progress provides progress reporting functionality
package progress

import (
	"sync"

	"github.com/pterm/pterm"
)

// Reporter defines the interface for reporting progress.
// It provides methods to report different stages of an operation
// and its status. Implementations must be safe for concurrent use.
type Reporter interface {
	// Start begins progress reporting with an initial message
	Start(message string)

	// Step reports a new step in the operation
	Step(message string)

	// Warn reports a condition that was tolerated
	Warn(message string)

	// Error reports an error condition
	Error(message string)

	// Success reports successful completion
	Success(message string)

	// End finalizes progress reporting
	End()
}

// ConsoleReporter implements Reporter by printing pterm prefixed messages
type ConsoleReporter struct {
	mu sync.Mutex
}

// NewConsoleReporter creates a new ConsoleReporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

func (r *ConsoleReporter) Start(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Info.Println(message)
}

func (r *ConsoleReporter) Step(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Println("  - " + message)
}

func (r *ConsoleReporter) Warn(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Warning.Println(message)
}

func (r *ConsoleReporter) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Error.Println(message)
}

func (r *ConsoleReporter) Success(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Success.Println(message)
}

func (r *ConsoleReporter) End() {}

// NopReporter implements Reporter with no-op operations
type NopReporter struct{}

// NewNopReporter creates a new NopReporter
func NewNopReporter() *NopReporter {
	return &NopReporter{}
}

func (r *NopReporter) Start(message string)   {}
func (r *NopReporter) Step(message string)    {}
func (r *NopReporter) Warn(message string)    {}
func (r *NopReporter) Error(message string)   {}
func (r *NopReporter) Success(message string) {}
func (r *NopReporter) End()                   {}
