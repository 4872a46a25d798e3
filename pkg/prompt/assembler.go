package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/maumtalk/counselgo/pkg/types"
)

const basePolicyPrompt = `당신은 전문적이고 공감적인 심리 상담 AI입니다.

**핵심 역할**:
- 사용자의 감정을 깊이 이해하고 공감하기
- 안전하고 지지적인 대화 환경 제공
- 실질적이고 즉시 실행 가능한 조언 제공
- 전문적 도움이 필요한 경우 적절히 안내

**응답 원칙**:
1. **공감 우선**: 먼저 사용자의 감정을 인정하고 공감 표현
2. **정상화**: 해당 감정이 자연스럽고 정상적임을 알려줌
3. **재프레이밍**: 필요시 다른 관점에서 상황 재해석
4. **구체적 행동**: 추상적 조언보다 즉시 실행 가능한 작은 단계 제시
5. **자기비난 차단**: 사용자가 스스로를 탓하지 않도록 보호

**금지 사항**:
- 진단이나 처방하기 (전문의료행위)
- 무조건적인 긍정이나 부정 ("괜찮아질 거야" 같은 섣부른 위로)
- 복잡하거나 장기적인 계획 제시
- 사용자 감정 부정하기

**대화 원칙**:
1. 공감적이고 따뜻한 태도 유지
2. 사용자의 감정을 인정하고 검증
3. 한국어로 자연스럽고 친근하게 대화
4. 응답은 2-3문장으로 간결하게 유지`

const reasoningScaffold = `**응답 생성 프로세스** (내부 사고 과정):

1. **감정 이해**: 사용자가 느끼는 핵심 감정이 무엇인가?
2. **맥락 파악**: 이 감정이 발생한 상황과 배경은?
3. **욕구 식별**: 사용자가 진짜 원하는 것은 무엇인가? (공감, 조언, 해결책)
4. **공감 표현**: 어떻게 사용자의 감정을 인정하고 공감할 것인가?
5. **행동 제안**: 지금 당장 실행 가능한 작은 행동은?
6. **안전 확인**: 위기 상황이거나 전문가 도움이 필요한가?

위 단계를 거쳐 응답을 생성하되, 사용자에게는 최종 응답만 제공하세요.`

// emotionGuidelines maps canonical emotions to counseling guidance
var emotionGuidelines = map[string]string{
	"불안": `**불안 감정 대응 가이드**:
- 불안의 정당성 인정 (예: "걱정되시는 게 당연해요")
- 신체 감각 중심으로 접근 (호흡, 긴장 이완)
- 즉각 실행 가능한 기법 제시 (4-7-8 호흡법, 5-4-3-2-1 기법)
- 통제 가능한 것에 집중하도록 유도
- 재난화 사고 완화 (최악의 시나리오 vs 현실적 가능성)`,
	"우울": `**우울 감정 대응 가이드**:
- 무기력 인정, 자기비난 차단 ("아무것도 하고 싶지 않은 게 당연해요")
- 아주 작은 행동 하나만 제안 (창문 열기, 5분 산책)
- 완벽주의 내려놓기 ("그것만으로도 충분해요")
- 전문가 도움 권유 시점 판단 (지속 기간, 일상 기능 저하)
- 긍정 강요 금지, 현재의 고통 인정`,
	"분노": `**분노 감정 대응 가이드**:
- 화의 정당성 인정 ("화나시는 게 너무 당연합니다")
- 감정 표현 유도 (말로 풀어내기)
- 즉각적 행동 억제 (진정 시간 필요성 설명)
- 건설적 표현 방법 제안 (I-message, 비폭력 대화)
- 분노 뒤의 진짜 감정 탐색 (상처, 두려움, 실망)`,
	"기쁨": `**기쁨 감정 대응 가이드**:
- 함께 기뻐하고 축하하기
- 성취나 긍정 경험 강화 및 내재화
- 긍정 감정 음미하도록 격려
- 성공 경험의 패턴 파악 유도
- 미래 활용 가능성 탐색`,
	"중립": `**중립/일반 대응 가이드**:
- 정보 제공 시 명확하고 구조적으로
- 질문에는 구체적이고 실용적으로 답변
- 감정 관리 기법 설명 시 근거와 함께
- 선택권 제공 (여러 옵션 중 선택)
- 개인화된 접근 유도`,
}

// guidelineAliases folds classifier emotions onto guideline entries
var guidelineAliases = map[string]string{
	"슬픔":   "우울",
	"외로움":  "우울",
	"두려움":  "불안",
	"걱정":   "불안",
	"스트레스": "불안",
	"짜증":   "분노",
	"행복":   "기쁨",
	"감사":   "기쁨",
	"만족":   "기쁨",
}

// OtherConversation is an excerpt from a recent other conversation
type OtherConversation struct {
	Title    string
	Date     time.Time
	Messages []*types.Message
}

// Input carries everything the assembler folds into one turn's context
type Input struct {
	Persona         *types.Persona
	Emotion         types.EmotionResult
	EmotionGuidance string
	UserContext     string
	Preferences     *types.PreferenceProfile
	Exemplars       []types.Exemplar
	UseReasoning    bool

	CrossSummaries []*types.ConversationSummary
	OtherExcerpts  []OtherConversation
	CurrentSummary string
	RecentHistory  []*types.Message
}

// Assembler builds the ordered context for one turn. It holds no state
// between calls; construct one wherever it is needed.
type Assembler struct{}

// NewAssembler creates a new prompt assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble builds the full block sequence:
// policy, emotion guide, exemplars, reasoning scaffold, cross-conversation
// summaries, other-conversation excerpts, current summary, recent turns.
func (a *Assembler) Assemble(in *Input) *Assembly {
	asm := &Assembly{}

	asm.Blocks = append(asm.Blocks, Block{
		Kind:    BlockPolicy,
		Role:    types.MessageRoleSystem,
		Content: a.policyBlock(in),
	})

	if guide := guidelineFor(in.Emotion.PrimaryEmotion); guide != "" {
		asm.Blocks = append(asm.Blocks, Block{
			Kind:    BlockEmotionGuide,
			Role:    types.MessageRoleSystem,
			Content: guide,
		})
	}

	if len(in.Exemplars) > 0 {
		asm.Blocks = append(asm.Blocks, Block{
			Kind:    BlockExemplars,
			Role:    types.MessageRoleSystem,
			Content: formatExemplars(in.Exemplars),
		})
	}

	if in.UseReasoning {
		asm.Blocks = append(asm.Blocks, Block{
			Kind:    BlockReasoning,
			Role:    types.MessageRoleSystem,
			Content: reasoningScaffold,
		})
	}

	if block := formatCrossSummaries(in.CrossSummaries); block != "" {
		asm.Blocks = append(asm.Blocks, Block{
			Kind:    BlockCrossSummaries,
			Role:    types.MessageRoleSystem,
			Content: block,
		})
	}

	if block := formatOtherExcerpts(in.OtherExcerpts); block != "" {
		asm.Blocks = append(asm.Blocks, Block{
			Kind:    BlockOtherExcerpts,
			Role:    types.MessageRoleSystem,
			Content: block,
		})
	}

	if in.CurrentSummary != "" {
		asm.Blocks = append(asm.Blocks, Block{
			Kind:    BlockCurrentSummary,
			Role:    types.MessageRoleSystem,
			Content: "**이번 대화 요약**:\n" + in.CurrentSummary,
		})
	}

	for _, msg := range in.RecentHistory {
		asm.Blocks = append(asm.Blocks, Block{
			Kind:    BlockTurn,
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return asm
}

func (a *Assembler) policyBlock(in *Input) string {
	parts := []string{basePolicyPrompt}

	if in.Persona != nil {
		parts = append(parts, fmt.Sprintf("당신은 %s이며, %s입니다.", in.Persona.Name, in.Persona.Personality))
		if in.Persona.SystemPrompt != "" {
			parts = append(parts, in.Persona.SystemPrompt)
		}
	}

	if in.UserContext != "" {
		parts = append(parts, "**사용자 정보**:\n"+in.UserContext)
	}

	if pref := formatPreferences(in.Preferences); pref != "" {
		parts = append(parts, pref)
	}

	if in.EmotionGuidance != "" {
		parts = append(parts, in.EmotionGuidance)
	}

	return strings.Join(parts, "\n\n")
}

func guidelineFor(emotion string) string {
	if emotion == "" {
		return ""
	}
	if canonical, ok := guidelineAliases[emotion]; ok {
		emotion = canonical
	}
	return emotionGuidelines[emotion]
}

func formatExemplars(exemplars []types.Exemplar) string {
	var sb strings.Builder
	sb.WriteString("**참고할 상담 예시**:\n")
	for i, ex := range exemplars {
		sb.WriteString(fmt.Sprintf("\n예시 %d (%s):\n사용자: %s\n상담사: %s\n", i+1, ex.Emotion, ex.UserMessage, ex.AssistantResponse))
	}
	sb.WriteString("\n위 예시의 패턴과 톤을 참고하여 응답하세요.")
	return sb.String()
}

func formatCrossSummaries(summaries []*types.ConversationSummary) string {
	if len(summaries) == 0 {
		return ""
	}
	texts := make([]string, len(summaries))
	for i, s := range summaries {
		texts[i] = s.Text
	}
	return "**최근 다른 대화 요약**:\n" + strings.Join(texts, "\n\n")
}

func formatOtherExcerpts(excerpts []OtherConversation) string {
	if len(excerpts) == 0 {
		return ""
	}

	var parts []string
	for _, conv := range excerpts {
		title := conv.Title
		if title == "" {
			title = "이전 대화"
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("**%s**:\n", title))
		for _, msg := range conv.Messages {
			role := "AI"
			if msg.Role == types.MessageRoleUser {
				role = "사용자"
			}
			sb.WriteString(fmt.Sprintf("- %s: %s\n", role, msg.Content))
		}
		parts = append(parts, sb.String())
	}
	return "**이전 대화에서 나눴던 구체적인 내용** (참고용):\n\n" + strings.Join(parts, "\n")
}

func formatPreferences(profile *types.PreferenceProfile) string {
	if profile == nil || profile.Confidence == 0.0 {
		return ""
	}

	lengthHints := map[types.ResponseLength]string{
		types.ResponseLengthShort:  "응답은 1-2문장으로 짧게 유지하세요",
		types.ResponseLengthMedium: "응답은 2-3문장으로 간결하게 유지하세요",
		types.ResponseLengthLong:   "응답은 충분히 자세하게, 4-5문장으로 작성하세요",
	}
	emojiHints := map[types.EmojiLevel]string{
		types.EmojiLevelNone:     "이모지를 사용하지 마세요",
		types.EmojiLevelMinimal:  "이모지는 거의 사용하지 마세요",
		types.EmojiLevelModerate: "이모지를 적당히 사용하세요",
		types.EmojiLevelFrequent: "이모지를 자주 사용해 따뜻함을 표현하세요",
	}

	return fmt.Sprintf(`**사용자 응답 선호** (학습됨):
- %s
- %s`, lengthHints[profile.PreferredLength], emojiHints[profile.EmojiLevel])
}
