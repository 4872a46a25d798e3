// Package validator scores a finished counseling reply on five quality
// dimensions and decides whether the turn passes. Scoring is rule-based
// and deterministic so a validation pass never depends on a model call.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/types"
)

// Dimension weights. They sum to 1.0 so the overall score stays in [0,1].
const (
	weightEmpathy         = 0.30
	weightSafety          = 0.25
	weightActionability   = 0.20
	weightProfessionalism = 0.15
	weightClarity         = 0.10
)

var (
	empathyMarkers = []string{
		"힘드시", "이해해", "느껴져", "마음", "걱정",
		"공감", "알아요", "알겠어요", "그러셨", "시겠",
	}

	// Phrases that minimize the user's emotion or push directives
	unsafePhrases = []string{
		"괜찮아요",
		"신경쓰지 마세요",
		"별거 아니에요",
		"그럴 리 없어요",
		"생각을 바꾸세요",
		"해야 해요",
		"안 하면 안 돼요",
	}

	actionMarkers = []string{
		"해보", "시도", "실천", "방법", "시작",
		"한번", "오늘", "지금", "먼저", "작은",
	}

	diagnosisTerms = []string{
		"우울증", "불안장애", "공황장애", "조울증",
		"정신분열", "조현병", "ADHD", "강박증",
	}

	medicalAdviceTerms = []string{
		"약을 드세요", "병원 가지 마세요", "약 끊으세요",
		"진단", "처방", "치료 계획",
	}

	hotlineReferences = []string{
		"1393", "1577-0199", "1588-9191", "상담전화",
	}
)

// Validator checks reply quality against the counseling policy
type Validator struct {
	cfg    *config.PipelineConfig
	logger interfaces.Logger
	md     goldmark.Markdown
}

// NewValidator creates a new response validator
func NewValidator(cfg *config.PipelineConfig, logger interfaces.Logger) *Validator {
	return &Validator{
		cfg:    cfg,
		logger: logger,
		md:     goldmark.New(),
	}
}

// Validate scores one finished reply. Any flagged issue fails the turn
// regardless of the overall score.
func (v *Validator) Validate(response string, emotion types.EmotionResult, crisisLevel types.CrisisLevel) *types.ValidationResult {
	result := &types.ValidationResult{
		Scores: map[string]float64{},
	}

	empathy := v.checkEmpathy(response, emotion)
	result.Scores["empathy"] = empathy
	if empathy < 0.5 && emotion.Category == types.EmotionCategoryNegative {
		result.Issues = append(result.Issues, "부정적 감정 상황에서 공감 표현이 부족합니다")
		result.Suggestions = append(result.Suggestions, "사용자의 감정을 먼저 인정하는 문장을 추가하세요")
	}

	safety, safetyIssues := v.checkSafety(response, crisisLevel)
	result.Scores["safety"] = safety
	result.Issues = append(result.Issues, safetyIssues...)

	actionability := v.checkActionability(response)
	result.Scores["actionability"] = actionability
	if actionability < 0.3 {
		result.Warnings = append(result.Warnings, "구체적인 실행 가능한 제안이 부족합니다")
	}

	result.Scores["professionalism"] = v.checkProfessionalism(response)

	clarity, clarityIssues := v.checkClarity(response)
	result.Scores["clarity"] = clarity
	result.Issues = append(result.Issues, clarityIssues...)

	result.OverallScore = round2(
		result.Scores["empathy"]*weightEmpathy +
			result.Scores["safety"]*weightSafety +
			result.Scores["actionability"]*weightActionability +
			result.Scores["professionalism"]*weightProfessionalism +
			result.Scores["clarity"]*weightClarity)
	result.Passed = result.OverallScore >= v.cfg.ValidationPassScore && len(result.Issues) == 0

	if !result.Passed {
		v.logger.Warn("response failed validation", map[string]interface{}{
			"overall_score": result.OverallScore,
			"issues":        result.Issues,
		})
	}
	return result
}

// checkEmpathy counts acknowledgement markers. A negative emotion with
// zero markers scores zero outright.
func (v *Validator) checkEmpathy(response string, emotion types.EmotionResult) float64 {
	count := 0
	for _, marker := range empathyMarkers {
		if strings.Contains(response, marker) {
			count++
		}
	}
	if count == 0 && emotion.Category == types.EmotionCategoryNegative {
		return 0.0
	}
	score := float64(count) * 0.3
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (v *Validator) checkSafety(response string, crisisLevel types.CrisisLevel) (float64, []string) {
	var issues []string
	score := 1.0

	for _, phrase := range unsafePhrases {
		if strings.Contains(response, phrase) {
			issues = append(issues, fmt.Sprintf("감정 최소화 표현 감지: '%s'", phrase))
			score -= 0.2
		}
	}

	if crisisLevel == types.CrisisLevelHigh || crisisLevel == types.CrisisLevelCritical {
		hasHotline := false
		for _, ref := range hotlineReferences {
			if strings.Contains(response, ref) {
				hasHotline = true
				break
			}
		}
		if !hasHotline {
			issues = append(issues, "위기 상황인데 전문가 연락처가 없습니다")
			score = 0.0
		}
	}

	for _, term := range diagnosisTerms {
		if strings.Contains(response, term) {
			issues = append(issues, fmt.Sprintf("진단 표현 감지: '%s' (금지)", term))
			score -= 0.3
		}
	}
	for _, term := range medicalAdviceTerms {
		if strings.Contains(response, term) {
			issues = append(issues, fmt.Sprintf("의료 조언 감지: '%s' (금지)", term))
			score -= 0.3
		}
	}

	if score < 0.0 {
		score = 0.0
	}
	return score, issues
}

func (v *Validator) checkActionability(response string) float64 {
	count := 0
	for _, marker := range actionMarkers {
		if strings.Contains(response, marker) {
			count++
		}
	}
	score := float64(count) * 0.25
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// checkProfessionalism is a placeholder dimension. Diagnosis and medical
// directives are already penalized under safety; nothing further is
// scored here yet.
func (v *Validator) checkProfessionalism(string) float64 {
	return 1.0
}

func (v *Validator) checkClarity(response string) (float64, []string) {
	var issues []string
	score := 1.0

	if n := v.markdownArtifacts(response); n > 0 {
		issues = append(issues, fmt.Sprintf("마크다운 형식 %d개 감지 (자연스러운 대화체 필요)", n))
		score -= 0.3
	}

	lines := 0
	for _, line := range strings.Split(response, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	if lines > 5 {
		issues = append(issues, "응답이 너무 길어요 (권장: 1-3문단)")
		score -= 0.2
	}

	if avgSentenceLength(response) > 100 {
		issues = append(issues, "문장이 너무 길어요 (권장: 문장당 50자 이내)")
		score -= 0.1
	}

	if score < 0.0 {
		score = 0.0
	}
	return score, issues
}

// markdownArtifacts parses the reply as markdown and counts structural
// nodes a conversational reply should not contain. Ordered lists are
// allowed; plain numbered advice is natural in Korean chat.
func (v *Validator) markdownArtifacts(response string) int {
	doc := v.md.Parser().Parse(text.NewReader([]byte(response)))

	count := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindThematicBreak, ast.KindBlockquote,
			ast.KindEmphasis, ast.KindCodeBlock, ast.KindFencedCodeBlock:
			count++
		case ast.KindList:
			if list, ok := n.(*ast.List); ok && !list.IsOrdered() {
				count++
			}
		}
		return ast.WalkContinue, nil
	})
	return count
}

func avgSentenceLength(response string) float64 {
	normalized := strings.NewReplacer("?", ".", "!", ".").Replace(response)
	var lengths []int
	for _, s := range strings.Split(normalized, ".") {
		if strings.TrimSpace(s) != "" {
			lengths = append(lengths, utf8.RuneCountInString(s))
		}
	}
	if len(lengths) == 0 {
		return 0
	}
	total := 0
	for _, l := range lengths {
		total += l
	}
	return float64(total) / float64(len(lengths))
}

// Augment attaches the crisis template to a reply. High and critical
// put the hotline information first; medium appends it.
func Augment(response string, crisisLevel types.CrisisLevel, crisisMessage string) string {
	switch crisisLevel {
	case types.CrisisLevelHigh, types.CrisisLevelCritical:
		return crisisMessage + "\n\n---\n\n" + response
	case types.CrisisLevelMedium:
		return response + "\n\n" + crisisMessage
	default:
		return response
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
