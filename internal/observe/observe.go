// Package observe provides coverage observers for probing. The device
// acknowledges nothing about how much of a frame it rendered, so the
// only ground truth is something watching the strip. The interactive
// observer asks a person; the func adapter plugs in anything
// programmatic (a camera rig, a test script).
package observe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Func adapts a plain function to the prober's observer contract.
type Func func(ctx context.Context, requested int) (float64, error)

// Observe calls f.
func (f Func) Observe(ctx context.Context, requested int) (float64, error) {
	return f(ctx, requested)
}

// Static reports a fixed coverage regardless of what was sent. Useful
// for dry runs and tests.
func Static(coverage float64) Func {
	return func(context.Context, int) (float64, error) {
		return coverage, nil
	}
}

// PromptObserver asks a human whether the whole strip lit up. It is
// the oracle for devices with no feedback channel at all: a pattern
// was just sent, the person looks at the strip and answers.
type PromptObserver struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

// NewPromptObserver reads answers from in and writes prompts to out.
func NewPromptObserver(in io.Reader, out io.Writer) *PromptObserver {
	return &PromptObserver{In: in, Out: out, scanner: bufio.NewScanner(in)}
}

// Observe prompts until it gets a usable answer. "y" means the full
// strip rendered (coverage 1.0), "n" means it did not; "n" may be
// followed by a fraction, e.g. "n 0.5" when roughly half the strip lit.
// Context cancellation is only noticed between prompts; a blocked read
// on a terminal cannot be interrupted portably.
func (p *PromptObserver) Observe(ctx context.Context, requested int) (float64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		fmt.Fprintf(p.Out, "sent %d segments; did the whole strip light up? [y/n]: ", requested)
		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return 0, fmt.Errorf("observe: read answer: %w", err)
			}
			return 0, fmt.Errorf("observe: input closed")
		}
		answer := strings.ToLower(strings.TrimSpace(p.scanner.Text()))
		switch {
		case answer == "y" || answer == "yes":
			return 1.0, nil
		case answer == "n" || answer == "no":
			return 0.0, nil
		case strings.HasPrefix(answer, "n "):
			var frac float64
			if _, err := fmt.Sscanf(answer, "n %f", &frac); err == nil && frac >= 0 && frac <= 1 {
				return frac, nil
			}
			fmt.Fprintf(p.Out, "could not parse %q as a fraction in [0,1]\n", answer)
		default:
			fmt.Fprintln(p.Out, "please answer y or n")
		}
	}
}
