package service

import (
	"fmt"
	"strings"
)

// DefaultContextBudgetChars bounds the assembled grounding block.
const DefaultContextBudgetChars = 4000

// ContextAssembler formats retrieved fragments into a single grounding block
// for a downstream language model prompt. An empty retrieval result yields an
// empty block; the consumer treats that as "insufficient grounding context",
// not an error.
type ContextAssembler struct {
	budgetChars int
}

// NewContextAssembler creates an assembler with the default budget.
func NewContextAssembler() *ContextAssembler {
	return NewContextAssemblerWithBudget(DefaultContextBudgetChars)
}

// NewContextAssemblerWithBudget creates an assembler with an explicit
// character budget.
func NewContextAssemblerWithBudget(budgetChars int) *ContextAssembler {
	if budgetChars <= 0 {
		budgetChars = DefaultContextBudgetChars
	}
	return &ContextAssembler{budgetChars: budgetChars}
}

// Assemble renders fragments, highest similarity first, until the character
// budget is spent. Fragments are assumed pre-ranked by the retriever.
func (a *ContextAssembler) Assemble(fragments []ScoredFragment) string {
	if len(fragments) == 0 {
		return ""
	}

	var b strings.Builder
	used := 0

	for _, sf := range fragments {
		block := renderFragment(sf)
		blockLen := len([]rune(block))

		if used > 0 && used+blockLen > a.budgetChars {
			break
		}

		if used > 0 {
			b.WriteString("\n\n")
			used += 2
		}
		b.WriteString(block)
		used += blockLen
	}

	return b.String()
}

func renderFragment(sf ScoredFragment) string {
	f := sf.Fragment

	header := fmt.Sprintf("[%s %s]", f.ContentType, f.Source)
	if title, ok := f.Metadata["title"].(string); ok && title != "" {
		header = fmt.Sprintf("[%s %s: %s]", f.ContentType, f.Source, title)
	}

	return header + "\n" + f.Text
}
