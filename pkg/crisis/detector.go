// Package crisis detects risk signals in user messages and supplies the
// safety responses that accompany them. Detection is a deterministic
// keyword classifier: it must produce the same assessment for the same
// message, never call out to a model, and never fail.
package crisis

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/types"
)

// Detector classifies messages into the four risk levels
type Detector struct {
	cfg    *config.PipelineConfig
	logger interfaces.Logger

	mu        sync.RWMutex
	resources *Resources
}

// NewDetector creates a detector with the built-in resources
func NewDetector(cfg *config.PipelineConfig, logger interfaces.Logger) *Detector {
	return &Detector{
		cfg:       cfg,
		logger:    logger,
		resources: DefaultResources(),
	}
}

// SetResources swaps the keyword tiers and templates. Called by the config
// watcher on file change; in-flight detections keep the old set.
func (d *Detector) SetResources(res *Resources) error {
	if err := res.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.resources = res
	d.mu.Unlock()
	d.logger.Info("crisis resources updated", map[string]interface{}{
		"high_risk_categories":   len(res.HighRisk),
		"medium_risk_categories": len(res.MediumRisk),
	})
	return nil
}

// ReloadFromFile loads a resource file and swaps it in. A broken file
// leaves the current resources untouched.
func (d *Detector) ReloadFromFile(path string) {
	res, err := LoadResources(path)
	if err != nil {
		d.logger.Error("crisis resource reload failed, keeping current set", err, map[string]interface{}{
			"path": path,
		})
		return
	}
	if err := d.SetResources(res); err != nil {
		d.logger.Error("crisis resource reload rejected", err, map[string]interface{}{
			"path": path,
		})
	}
}

// Detect classifies one message. High-risk matches shadow medium-risk
// scanning entirely; a message is judged by its most severe tier.
func (d *Detector) Detect(message string) *types.CrisisAssessment {
	d.mu.RLock()
	res := d.resources
	d.mu.RUnlock()

	normalized := strings.ToLower(strings.TrimSpace(message))

	level := types.CrisisLevelNone
	categorySet := make(map[string]struct{})
	keywordSet := make(map[string]struct{})

	for category, keywords := range res.HighRisk {
		for _, kw := range keywords {
			if strings.Contains(normalized, kw) {
				categorySet["high_risk."+category] = struct{}{}
				keywordSet[kw] = struct{}{}
				level = types.CrisisLevelHigh
			}
		}
	}

	if level == types.CrisisLevelNone {
		for category, keywords := range res.MediumRisk {
			for _, kw := range keywords {
				if strings.Contains(normalized, kw) {
					categorySet["medium_risk."+category] = struct{}{}
					keywordSet[kw] = struct{}{}
					level = types.CrisisLevelMedium
				}
			}
		}
	}

	confidence := float64(len(keywordSet)) * d.cfg.CrisisConfidencePerKeyword
	if confidence > 1.0 {
		confidence = 1.0
	}

	if level == types.CrisisLevelHigh {
		if len(keywordSet) >= d.cfg.CrisisCriticalMatchCount {
			level = types.CrisisLevelCritical
			confidence = 1.0
		} else {
			for _, phrase := range res.IntentPhrases {
				if strings.Contains(normalized, phrase) {
					level = types.CrisisLevelCritical
					confidence = 1.0
					break
				}
			}
		}
	}

	return &types.CrisisAssessment{
		Level:                level,
		Categories:           sortedKeys(categorySet),
		Keywords:             sortedKeys(keywordSet),
		Confidence:           round2(confidence),
		RequiresIntervention: level == types.CrisisLevelHigh || level == types.CrisisLevelCritical,
		DetectedAt:           time.Now().UTC(),
	}
}

// ResponseTemplate returns the safety message for a level, personalized
// with the user's name when known. Empty for none.
func (d *Detector) ResponseTemplate(level types.CrisisLevel, userName string) string {
	d.mu.RLock()
	res := d.resources
	d.mu.RUnlock()

	tpl, ok := res.Templates[string(level)]
	if !ok {
		return ""
	}
	if userName != "" {
		return fmt.Sprintf("%s님, %s", userName, tpl)
	}
	return tpl
}

// ShouldAudit reports whether an assessment goes to the audit log.
// High and critical always do; medium only at high confidence.
func (d *Detector) ShouldAudit(assessment *types.CrisisAssessment) bool {
	switch assessment.Level {
	case types.CrisisLevelHigh, types.CrisisLevelCritical:
		return true
	case types.CrisisLevelMedium:
		return assessment.Confidence >= d.cfg.CrisisAuditMediumMin
	default:
		return false
	}
}

// ReferralMessage builds the professional referral notice shown when
// symptoms persist. durationDays and severity refine the wording.
func (d *Detector) ReferralMessage(durationDays int, severity string) string {
	base := `전문가와 상담하시는 것을 고려해보시면 좋겠어요.

**상담 받을 수 있는 곳**:
• 정신건강복지센터: ☎️ 1577-0199
• 한국심리상담협회: https://krcpa.or.kr
• 지역 정신건강복지센터 (보건소 연계)

상담은 약점이 아니라 자신을 돌보는 현명한 선택이에요.`

	if durationDays >= 14 {
		base = "2주 이상 이런 감정이 계속되고 계시군요. " + base
	}
	if severity == "severe" {
		base = "일상생활이 많이 힘드실 것 같아 걱정됩니다. " + base + `

만약 지금 당장 도움이 필요하시다면:
• 자살예방상담전화: ☎️ 1393 (24시간)`
	}
	return base
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
