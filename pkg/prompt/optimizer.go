package prompt

import "strings"

// EstimateTokens approximates the token cost of a text as its whitespace
// word count plus a quarter of its byte length. The approximation runs
// hot on every turn, so it stays allocation-free.
func EstimateTokens(text string) int {
	return len(strings.Fields(text)) + len(text)/4
}

// EstimateAssembly returns the total estimated token cost of an assembly
func EstimateAssembly(a *Assembly) int {
	total := 0
	for _, b := range a.Blocks {
		total += EstimateTokens(b.Content)
	}
	return total
}

// Optimize trims an assembly to the token budget. Instruction blocks are
// always kept; conversational turns are re-admitted newest first until
// the remaining budget runs out, then restored to chronological order.
func Optimize(a *Assembly, budget int) *Assembly {
	if EstimateAssembly(a) <= budget {
		return a
	}

	out := &Assembly{}
	remaining := budget
	var turns []Block

	for _, b := range a.Blocks {
		if b.IsInstruction() {
			out.Blocks = append(out.Blocks, b)
			remaining -= EstimateTokens(b.Content)
		} else {
			turns = append(turns, b)
		}
	}

	var kept []Block
	for i := len(turns) - 1; i >= 0; i-- {
		cost := EstimateTokens(turns[i].Content)
		if remaining <= cost {
			break
		}
		kept = append([]Block{turns[i]}, kept...)
		remaining -= cost
	}

	out.Blocks = append(out.Blocks, kept...)
	return out
}
