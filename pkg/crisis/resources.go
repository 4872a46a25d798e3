package crisis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Resources holds the keyword tiers and response templates the detector
// runs on. Operators tune these in a YAML file without a redeploy; the
// built-in set below is the reviewed production baseline.
type Resources struct {
	// HighRisk and MediumRisk map category name to substring keyword list
	HighRisk   map[string][]string `yaml:"high_risk" json:"high_risk"`
	MediumRisk map[string][]string `yaml:"medium_risk" json:"medium_risk"`

	// IntentPhrases escalate a high-risk message straight to critical
	IntentPhrases []string `yaml:"intent_phrases" json:"intent_phrases"`

	// Templates maps level (critical/high/medium) to the safety message
	Templates map[string]string `yaml:"templates" json:"templates"`
}

// LoadResources reads a resource file. The file replaces the built-in set
// wholesale; partial files are rejected so a typo cannot silently disable
// a tier.
func LoadResources(path string) (*Resources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crisis resources: %w", err)
	}

	var res Resources
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse crisis resources: %w", err)
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &res, nil
}

// Validate checks that every tier and template is present and non-empty
func (r *Resources) Validate() error {
	if len(r.HighRisk) == 0 {
		return fmt.Errorf("crisis resources: high_risk tier is empty")
	}
	if len(r.MediumRisk) == 0 {
		return fmt.Errorf("crisis resources: medium_risk tier is empty")
	}
	if len(r.IntentPhrases) == 0 {
		return fmt.Errorf("crisis resources: intent_phrases is empty")
	}
	for _, level := range []string{"critical", "high", "medium"} {
		if r.Templates[level] == "" {
			return fmt.Errorf("crisis resources: missing %s template", level)
		}
	}
	return nil
}

// DefaultResources returns the built-in keyword tiers and templates
func DefaultResources() *Resources {
	return &Resources{
		HighRisk: map[string][]string{
			"suicide": {
				"자살", "죽고 싶", "살고 싶지 않", "죽는 게 나", "목숨을 끊",
				"삶을 끝내", "세상을 떠나", "사라지고 싶", "없어지고 싶",
				"죽어버리고 싶", "자살하고 싶", "목을 매", "투신",
			},
			"self_harm": {
				"자해", "칼로 긋", "손목을 긋", "베고 싶", "상처를 내",
				"피를 보", "몸을 해치", "스스로 다치",
			},
			"violence": {
				"죽이고 싶", "해치고 싶", "때리고 싶", "폭력", "살해",
			},
		},
		MediumRisk: map[string][]string{
			"hopelessness": {
				"희망이 없", "의미가 없", "소용이 없", "포기하고 싶",
				"끝이 없", "나아질 것 같지 않", "절망", "암담",
			},
			"isolation": {
				"혼자", "외로", "아무도 없", "버려진", "고립", "단절",
				"나를 이해해주는 사람이 없", "혼자인 것 같",
			},
			"worthlessness": {
				"쓸모가 없", "가치가 없", "존재 이유", "필요 없는 사람",
				"쓰레기 같", "한심", "무능",
			},
		},
		IntentPhrases: []string{"자살하고 싶", "죽고 싶", "목숨을 끊"},
		Templates: map[string]string{
			"critical": `당신의 안전이 가장 중요합니다. 지금 힘든 생각이 드신다면, 전문가의 도움을 받으시길 강력히 권해드립니다.

📞 **긴급 상담 연락처** (24시간 운영):
• 자살예방상담전화: ☎️ 1393
• 정신건강위기상담: ☎️ 1577-0199
• 생명의 전화: ☎️ 1588-9191

저는 AI이기 때문에 이런 위기 상황에서는 전문 상담사의 도움이 훨씬 효과적입니다.

혼자가 아니에요. 도움을 요청하는 것은 용기 있는 일입니다. 지금 당장 위 번호 중 하나로 전화해 주세요.`,
			"high": `많이 힘드신 것 같아 정말 걱정됩니다. 지금 느끼시는 고통을 전문가와 함께 나누시는 것이 중요해 보입니다.

📞 **전문 상담 연락처**:
• 자살예방상담전화: ☎️ 1393 (24시간)
• 정신건강위기상담: ☎️ 1577-0199
• 생명의 전화: ☎️ 1588-9191

제가 도움이 되고 싶지만, 전문 상담사가 더 깊이 있는 도움을 드릴 수 있을 거예요. 혼자 견디지 마시고, 도움을 받으세요.`,
			"medium": `많이 힘드신 것 같아요. 이런 감정들이 계속되신다면, 전문가와 함께 이야기 나누는 것을 고려해보시면 어떨까요?

필요하시면 상담 센터 정보를 안내해드릴 수 있어요.
• 정신건강복지센터: ☎️ 1577-0199
• 한국생명의전화: ☎️ 1588-9191

저도 최선을 다해 듣고 있지만, 전문가의 도움이 더 효과적일 수 있어요.`,
		},
	}
}
