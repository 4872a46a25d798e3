package emotion

import (
	"fmt"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/types"
)

// Guidance turns a classification into the response-style instruction
// block injected into the prompt. Empty when the signal is too weak to
// act on.
func Guidance(result types.EmotionResult, cfg *config.PipelineConfig) string {
	if result.Intensity < cfg.GuidanceMinIntensity {
		return ""
	}

	header := fmt.Sprintf("\n**현재 사용자 감정**: %s (강도: %.1f)\n", result.PrimaryEmotion, result.Intensity)

	var body string
	switch result.ResponseStyle {
	case types.ResponseStyleEmpathetic:
		body = `
**응답 지침**:
- 사용자의 감정을 깊이 공감하고 인정해주세요
- "그런 감정을 느끼시는 게 당연해요", "많이 힘드셨겠어요" 같은 표현 사용
- 따뜻하고 부드러운 어조 유지
- 성급한 조언보다는 경청과 공감에 집중
- 사용자가 자신의 감정을 표현하도록 격려`
	case types.ResponseStyleSupportive:
		body = `
**응답 지침**:
- 사용자를 지지하고 응원하는 태도
- "당신은 이겨낼 수 있어요", "함께 해결해봐요" 같은 격려
- 구체적이고 실행 가능한 작은 단계 제안
- 과거에 극복한 경험이 있다면 상기시키기
- 긍정적이지만 현실적인 관점 제시`
	case types.ResponseStyleCalming:
		body = `
**응답 지침**:
- 차분하고 안정적인 어조 유지
- 깊은 호흡이나 짧은 명상 같은 즉각적 진정 기법 제안
- "천천히 생각해봐요", "잠시 숨을 고르고" 같은 표현
- 감정을 정당화하되, 건설적인 방향으로 안내
- 급하지 않고 여유있는 대화 진행`
	case types.ResponseStyleEncouraging:
		body = `
**응답 지침**:
- 사용자의 긍정적 감정을 함께 기뻐하기
- "정말 잘하셨어요!", "축하드려요!" 같은 긍정 강화
- 이 좋은 상태를 유지하는 방법 제안
- 다른 영역으로 긍정 에너지 확장하도록 격려
- 밝고 활기찬 어조 사용`
	default:
		return appendCaution("", result, cfg)
	}

	return appendCaution(header+body, result, cfg)
}

// appendCaution adds the extra warning block for intense negative emotion
func appendCaution(instruction string, result types.EmotionResult, cfg *config.PipelineConfig) string {
	if result.Category != types.EmotionCategoryNegative || result.Intensity < cfg.GuidanceCautionMin {
		return instruction
	}

	return instruction + fmt.Sprintf(`

**⚠️ 주의**: 사용자가 강한 부정적 감정 (%s)을 느끼고 있습니다.
- 전문가 도움이 필요해 보이면 상담 권유
- 자해나 극단적 생각이 엿보이면 즉시 전문기관 안내
- 섣부른 위로보다는 진지한 경청과 공감`, result.PrimaryEmotion)
}
