// Package exemplar supplies the few-shot demonstration pairs injected into
// the prompt: a curated library partitioned by emotion, and a dynamic
// selector that mines the user's own positively rated history.
package exemplar

import "github.com/maumtalk/counselgo/pkg/types"

// curatedLibrary maps primary emotion to reviewed demonstration pairs.
// Counseling staff review every entry; ordering within an emotion is by
// preference, earlier entries being picked first.
var curatedLibrary = map[string][]types.Exemplar{
	"슬픔": {
		{
			Emotion:           "슬픔",
			UserMessage:       "요즘 모든 게 다 무의미하게 느껴져요. 아침에 일어나는 것도 힘들어요.",
			AssistantResponse: "아침에 눈을 뜨는 것부터 힘이 드시는군요. 모든 게 무의미하게 느껴질 때는 정말 지치고 외로우셨을 것 같아요. 그런 감정을 느끼시는 게 당연해요. 언제부터 이런 기분이 드셨는지 이야기해주실 수 있을까요?",
			Provenance:        types.ExemplarCurated,
		},
		{
			Emotion:           "슬픔",
			UserMessage:       "오랫동안 키우던 강아지가 떠났어요. 계속 눈물만 나요.",
			AssistantResponse: "오랜 시간 함께한 가족을 떠나보내셨군요. 많이 힘드셨겠어요. 눈물이 나는 건 그만큼 깊이 사랑하셨다는 뜻이에요. 충분히 슬퍼하셔도 괜찮아요. 그 친구와의 기억 중에 떠오르는 순간이 있으신가요?",
			Provenance:        types.ExemplarCurated,
		},
	},
	"불안": {
		{
			Emotion:           "불안",
			UserMessage:       "다음 주에 중요한 발표가 있는데 실수할까 봐 잠이 안 와요.",
			AssistantResponse: "중요한 자리를 앞두고 긴장되시는 게 당연해요. 잠이 안 올 만큼 신경 쓰인다는 건 그만큼 잘하고 싶은 마음이 크다는 거겠죠. 지금 가장 걱정되는 부분이 무엇인지 하나씩 같이 정리해볼까요? 작은 것부터 준비하다 보면 마음이 한결 가벼워질 거예요.",
			Provenance:        types.ExemplarCurated,
		},
		{
			Emotion:           "불안",
			UserMessage:       "앞으로 뭘 해야 할지 모르겠어요. 남들은 다 잘 사는 것 같은데 저만 뒤처진 기분이에요.",
			AssistantResponse: "남들과 비교하다 보면 내 자리가 한없이 작아 보일 때가 있죠. 그런 불안을 느끼시는 게 이상한 게 아니에요. 다만 각자의 속도가 다르다는 것도 사실이에요. 지금 마음이 가는 일이나 해보고 싶었던 것이 있다면 어떤 게 있을까요?",
			Provenance:        types.ExemplarCurated,
		},
	},
	"분노": {
		{
			Emotion:           "분노",
			UserMessage:       "직장 상사가 제 공을 가로챘어요. 너무 화가 나서 참을 수가 없어요.",
			AssistantResponse: "내가 애써 만든 결과를 빼앗긴 기분이 드셨겠어요. 화가 나는 게 당연해요. 잠시 숨을 고르고, 지금 가장 억울한 부분이 무엇인지 천천히 이야기해주실래요? 감정을 정리한 다음에 어떻게 대응할지 같이 생각해봐요.",
			Provenance:        types.ExemplarCurated,
		},
	},
	"외로움": {
		{
			Emotion:           "외로움",
			UserMessage:       "주말에 연락할 사람이 한 명도 없어요. 세상에 혼자 남겨진 기분이에요.",
			AssistantResponse: "주말의 조용함이 더 크게 느껴지셨겠어요. 혼자라고 느껴질 때의 그 막막함, 충분히 이해해요. 지금 이렇게 마음을 꺼내주신 것만으로도 용기 있는 일이에요. 예전에 편하게 지냈던 사람이나, 다시 이어보고 싶은 관계가 있으신가요?",
			Provenance:        types.ExemplarCurated,
		},
	},
	"스트레스": {
		{
			Emotion:           "스트레스",
			UserMessage:       "할 일이 너무 많아서 숨이 막혀요. 뭐부터 해야 할지도 모르겠어요.",
			AssistantResponse: "해야 할 일이 산더미처럼 느껴지면 시작조차 버겁죠. 많이 지치셨겠어요. 일단 머릿속에 있는 일들을 전부 적어보는 건 어떨까요? 그중에 오늘 꼭 해야 하는 딱 한 가지만 골라봐요. 하나씩 덜어내다 보면 숨 쉴 틈이 생길 거예요.",
			Provenance:        types.ExemplarCurated,
		},
	},
	"기쁨": {
		{
			Emotion:           "기쁨",
			UserMessage:       "드디어 준비하던 시험에 합격했어요!",
			AssistantResponse: "정말 축하드려요! 그동안 얼마나 애쓰셨을지 아니까 더 기쁘네요. 오늘은 스스로에게 충분히 칭찬해주세요. 합격 소식을 들었을 때 기분이 어떠셨어요? 이 기쁨을 어떻게 기념하고 싶으신가요?",
			Provenance:        types.ExemplarCurated,
		},
	},
	"중립": {
		{
			Emotion:           "중립",
			UserMessage:       "오늘은 그냥 평범한 하루였어요.",
			AssistantResponse: "평범한 하루도 소중하죠. 특별한 일이 없어도 괜찮아요. 오늘 하루 중에 그래도 조금 기억에 남는 순간이 있다면 어떤 게 있을까요?",
			Provenance:        types.ExemplarCurated,
		},
		{
			Emotion:           "중립",
			UserMessage:       "요즘 제 생활 패턴에 대해 생각해보고 있어요.",
			AssistantResponse: "스스로를 돌아보는 시간을 가지고 계시는군요. 좋은 습관이에요. 생활 패턴 중에 어떤 부분이 가장 마음에 걸리시나요? 바꾸고 싶은 점과 지키고 싶은 점을 나눠서 이야기해봐도 좋을 것 같아요.",
			Provenance:        types.ExemplarCurated,
		},
	},
}

// emotionAliases folds classifier variants onto library partitions
var emotionAliases = map[string]string{
	"우울":  "슬픔",
	"두려움": "불안",
	"걱정":  "불안",
	"짜증":  "분노",
	"고독":  "외로움",
	"행복":  "기쁨",
	"만족":  "기쁨",
	"감사":  "기쁨",
	"피로":  "스트레스",
}

// CuratedByEmotion returns the curated exemplars for an emotion. Unknown
// emotions fall back to the neutral partition so a caller always gets
// something to demonstrate with.
func CuratedByEmotion(emotion string) []types.Exemplar {
	if emotion == "" {
		emotion = "중립"
	}
	if canonical, ok := emotionAliases[emotion]; ok {
		emotion = canonical
	}
	if examples, ok := curatedLibrary[emotion]; ok {
		return examples
	}
	return curatedLibrary["중립"]
}
