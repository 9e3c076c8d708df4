package cli

import (
	"fmt"
	"io"
)

// Status prints the stepwise progress lines the atrium commands emit
// while they work: a check mark per completed step, a cross per
// failure, a warning for conditions worth a second look.
type Status struct {
	out io.Writer
}

// NewStatus returns a Status writing to out.
func NewStatus(out io.Writer) *Status {
	return &Status{out: out}
}

// Step reports a completed step.
func (s *Status) Step(format string, args ...any) {
	fmt.Fprintf(s.out, "✓ "+format+"\n", args...)
}

// Fail reports a failed step.
func (s *Status) Fail(format string, args ...any) {
	fmt.Fprintf(s.out, "✗ "+format+"\n", args...)
}

// Warn reports a condition that does not stop the command.
func (s *Status) Warn(format string, args ...any) {
	fmt.Fprintf(s.out, "⚠ "+format+"\n", args...)
}

// Info prints an unprefixed line.
func (s *Status) Info(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

// Blank prints an empty line between sections.
func (s *Status) Blank() {
	fmt.Fprintln(s.out)
}
