// Package prompt assembles the ordered context window for one counseling
// turn and trims it to the token budget.
package prompt

import "github.com/maumtalk/counselgo/pkg/types"

// BlockKind identifies the purpose of one assembled block. Tests assert
// the structure of an assembly by kind rather than by string matching.
type BlockKind string

const (
	// BlockPolicy is the counseling policy and persona system prompt,
	// including known user information and emotion guidance
	BlockPolicy BlockKind = "policy"

	// BlockEmotionGuide is the per-emotion counseling guideline
	BlockEmotionGuide BlockKind = "emotion_guide"

	// BlockExemplars carries the few-shot demonstration pairs
	BlockExemplars BlockKind = "exemplars"

	// BlockReasoning is the internal reasoning scaffold
	BlockReasoning BlockKind = "reasoning"

	// BlockCrossSummaries summarizes recent other conversations
	BlockCrossSummaries BlockKind = "cross_summaries"

	// BlockOtherExcerpts quotes concrete messages from other conversations
	BlockOtherExcerpts BlockKind = "other_excerpts"

	// BlockCurrentSummary summarizes earlier parts of this conversation
	BlockCurrentSummary BlockKind = "current_summary"

	// BlockTurn is one conversational turn of the current history
	BlockTurn BlockKind = "turn"
)

// Block is one unit of assembled context
type Block struct {
	Kind    BlockKind
	Role    types.MessageRole
	Content string
}

// IsInstruction reports whether a block survives budget trimming
// unconditionally. Everything except conversational turns does.
func (b Block) IsInstruction() bool {
	return b.Kind != BlockTurn
}

// Assembly is the ordered block list for one turn
type Assembly struct {
	Blocks []Block
}

// Messages flattens the assembly into the wire-format message list
func (a *Assembly) Messages() types.MessageList {
	out := make(types.MessageList, 0, len(a.Blocks))
	for _, b := range a.Blocks {
		out = append(out, types.MessageDict{Role: b.Role, Content: b.Content})
	}
	return out
}

// KindsInOrder returns the block kinds in assembly order
func (a *Assembly) KindsInOrder() []BlockKind {
	out := make([]BlockKind, len(a.Blocks))
	for i, b := range a.Blocks {
		out[i] = b.Kind
	}
	return out
}
