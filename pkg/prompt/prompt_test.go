package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumtalk/counselgo/pkg/types"
)

func turn(role types.MessageRole, content string) *types.Message {
	return &types.Message{Role: role, Content: content}
}

func TestAssembleFullContext(t *testing.T) {
	in := &Input{
		Persona: &types.Persona{
			Name:        "하늘이",
			Personality: "따뜻하고 차분한 상담사",
		},
		Emotion: types.EmotionResult{
			PrimaryEmotion: "불안",
			Category:       types.EmotionCategoryNegative,
			Intensity:      0.8,
		},
		EmotionGuidance: "**현재 사용자 감정**: 불안 (강도: 0.8)",
		UserContext:     "**알려진 사실**:\n- 간호사로 3교대 근무 중",
		Exemplars: []types.Exemplar{
			{Emotion: "불안", UserMessage: "시험이 너무 걱정돼요", AssistantResponse: "걱정되시는 게 당연해요."},
		},
		UseReasoning: true,
		CrossSummaries: []*types.ConversationSummary{
			{Text: "지난 대화에서 직장 스트레스를 다뤘다."},
		},
		OtherExcerpts: []OtherConversation{
			{Title: "근무 고민", Messages: []*types.Message{
				turn(types.MessageRoleUser, "야간 근무가 힘들어요"),
				turn(types.MessageRoleAssistant, "많이 지치셨겠어요."),
			}},
		},
		CurrentSummary: "사용자가 불면을 호소했다.",
		RecentHistory: []*types.Message{
			turn(types.MessageRoleUser, "요즘 잠을 잘 못 자요"),
			turn(types.MessageRoleAssistant, "잠들기가 어려우신가요?"),
			turn(types.MessageRoleUser, "네, 내일이 걱정돼서요"),
		},
	}

	asm := NewAssembler().Assemble(in)

	assert.Equal(t, []BlockKind{
		BlockPolicy,
		BlockEmotionGuide,
		BlockExemplars,
		BlockReasoning,
		BlockCrossSummaries,
		BlockOtherExcerpts,
		BlockCurrentSummary,
		BlockTurn,
		BlockTurn,
		BlockTurn,
	}, asm.KindsInOrder())

	policy := asm.Blocks[0].Content
	assert.Contains(t, policy, "심리 상담 AI")
	assert.Contains(t, policy, "당신은 하늘이이며, 따뜻하고 차분한 상담사입니다.")
	assert.Contains(t, policy, "**사용자 정보**:\n**알려진 사실**:")
	assert.Contains(t, policy, "**현재 사용자 감정**")

	assert.Contains(t, asm.Blocks[1].Content, "불안 감정 대응 가이드")
	assert.Contains(t, asm.Blocks[2].Content, "**참고할 상담 예시**")
	assert.Contains(t, asm.Blocks[2].Content, "위 예시의 패턴과 톤을 참고하여 응답하세요.")
	assert.Contains(t, asm.Blocks[3].Content, "**응답 생성 프로세스**")
	assert.Contains(t, asm.Blocks[4].Content, "최근 다른 대화 요약")
	assert.Contains(t, asm.Blocks[5].Content, "- 사용자: 야간 근무가 힘들어요")
	assert.Contains(t, asm.Blocks[5].Content, "- AI: 많이 지치셨겠어요.")
	assert.Contains(t, asm.Blocks[6].Content, "이번 대화 요약")

	msgs := asm.Messages()
	require.Len(t, msgs, 10)
	assert.Equal(t, types.MessageRoleSystem, msgs[0].Role)
	assert.Equal(t, "요즘 잠을 잘 못 자요", msgs[7].Content)
	assert.Equal(t, types.MessageRoleUser, msgs[9].Role)
}

func TestAssembleMinimalContext(t *testing.T) {
	in := &Input{
		Emotion: types.NeutralEmotion(),
		RecentHistory: []*types.Message{
			turn(types.MessageRoleUser, "안녕하세요"),
		},
	}

	asm := NewAssembler().Assemble(in)

	// Neutral emotion still gets its guideline; everything optional is absent
	assert.Equal(t, []BlockKind{BlockPolicy, BlockEmotionGuide, BlockTurn}, asm.KindsInOrder())
	assert.Contains(t, asm.Blocks[1].Content, "중립/일반 대응 가이드")
	assert.NotContains(t, asm.Blocks[0].Content, "**사용자 정보**")
}

func TestGuidelineAliases(t *testing.T) {
	tests := []struct {
		emotion string
		expect  string
	}{
		{"슬픔", "우울 감정 대응 가이드"},
		{"스트레스", "불안 감정 대응 가이드"},
		{"행복", "기쁨 감정 대응 가이드"},
		{"짜증", "분노 감정 대응 가이드"},
	}
	for _, tt := range tests {
		t.Run(tt.emotion, func(t *testing.T) {
			assert.Contains(t, guidelineFor(tt.emotion), tt.expect)
		})
	}

	assert.Empty(t, guidelineFor("알 수 없는 감정"))
	assert.Empty(t, guidelineFor(""))
}

func TestPreferenceHintsInPolicy(t *testing.T) {
	in := &Input{
		Emotion: types.NeutralEmotion(),
		Preferences: &types.PreferenceProfile{
			PreferredLength: types.ResponseLengthShort,
			EmojiLevel:      types.EmojiLevelNone,
			Confidence:      0.75,
		},
	}
	asm := NewAssembler().Assemble(in)
	assert.Contains(t, asm.Blocks[0].Content, "응답은 1-2문장으로 짧게 유지하세요")
	assert.Contains(t, asm.Blocks[0].Content, "이모지를 사용하지 마세요")

	// Zero-confidence profiles contribute nothing
	in.Preferences.Confidence = 0.0
	asm = NewAssembler().Assemble(in)
	assert.NotContains(t, asm.Blocks[0].Content, "사용자 응답 선호")
}

func TestOtherExcerptTitleFallback(t *testing.T) {
	block := formatOtherExcerpts([]OtherConversation{
		{Messages: []*types.Message{turn(types.MessageRoleUser, "안녕")}},
	})
	assert.Contains(t, block, "**이전 대화**:")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))

	// 2 words + 11 bytes / 4
	assert.Equal(t, 4, EstimateTokens("hello world"))

	korean := "안녕하세요 반갑습니다"
	assert.Equal(t, 2+len(korean)/4, EstimateTokens(korean))
}

func TestOptimizeWithinBudgetIsIdentity(t *testing.T) {
	asm := &Assembly{Blocks: []Block{
		{Kind: BlockPolicy, Role: types.MessageRoleSystem, Content: "정책"},
		{Kind: BlockTurn, Role: types.MessageRoleUser, Content: "안녕하세요"},
	}}
	out := Optimize(asm, 4000)
	assert.Equal(t, asm.KindsInOrder(), out.KindsInOrder())
}

func TestOptimizeKeepsInstructionsAndRecentTurns(t *testing.T) {
	longText := strings.Repeat("단어 ", 400) // roughly 1100 tokens per turn

	asm := &Assembly{}
	asm.Blocks = append(asm.Blocks, Block{
		Kind:    BlockPolicy,
		Role:    types.MessageRoleSystem,
		Content: strings.Repeat("지침 ", 260), // roughly 700 tokens
	})
	for i := 0; i < 10; i++ {
		role := types.MessageRoleUser
		if i%2 == 1 {
			role = types.MessageRoleAssistant
		}
		asm.Blocks = append(asm.Blocks, Block{
			Kind:    BlockTurn,
			Role:    role,
			Content: fmt.Sprintf("턴%d %s", i, longText),
		})
	}

	out := Optimize(asm, 4000)

	require.NotEmpty(t, out.Blocks)
	assert.Equal(t, BlockPolicy, out.Blocks[0].Kind)

	kept := 0
	for _, b := range out.Blocks {
		if b.Kind == BlockTurn {
			kept++
		}
	}
	assert.Greater(t, kept, 0)
	assert.Less(t, kept, 10)

	// The most recent turn always survives and order stays chronological
	last := out.Blocks[len(out.Blocks)-1]
	assert.Contains(t, last.Content, "턴9")
	prev := out.Blocks[len(out.Blocks)-2]
	assert.Contains(t, prev.Content, "턴8")

	assert.LessOrEqual(t, EstimateAssembly(out), 4000)
}

func TestOptimizeBudgetSmallerThanInstructionsKeepsInstructions(t *testing.T) {
	asm := &Assembly{Blocks: []Block{
		{Kind: BlockPolicy, Role: types.MessageRoleSystem, Content: strings.Repeat("지침 ", 660)},
		{Kind: BlockTurn, Role: types.MessageRoleUser, Content: "안녕하세요"},
	}}

	out := Optimize(asm, 100)

	require.Len(t, out.Blocks, 1)
	assert.Equal(t, BlockPolicy, out.Blocks[0].Kind)
}
