package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/replyparse/core/record"
)

// Strategy selects how much recovery a parse attempts. The set is closed:
// Direct, Resilient and Adaptive are the only values.
type Strategy interface {
	fmt.Stringer
	run(ctx context.Context, p *Parser, c *call) record.Outcome[record.Record]
}

type (
	direct    struct{}
	resilient struct{}
	adaptive  struct{}
)

var (
	// Direct decodes the cleaned text as-is and reports any failure. Use it
	// for trusted, well-formed input.
	Direct Strategy = direct{}

	// Resilient repairs what it can and answers any remaining failure with
	// the fallback record. It always succeeds.
	Resilient Strategy = resilient{}

	// Adaptive also rewrites alias keys, recovers individual fields from
	// broken objects and may learn new aliases. It always succeeds.
	Adaptive Strategy = adaptive{}
)

func (direct) String() string    { return "direct" }
func (resilient) String() string { return "resilient" }
func (adaptive) String() string  { return "adaptive" }

// Strategies lists the strategies from least to most forgiving.
func Strategies() []Strategy {
	return []Strategy{Direct, Resilient, Adaptive}
}

// ParseStrategy resolves a strategy by name, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Strategies() {
		if strings.EqualFold(strings.TrimSpace(name), s.String()) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown strategy %q (want direct, resilient or adaptive)", name)
}
