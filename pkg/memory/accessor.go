package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/types"
)

// Per-category caps on how many records reach the prompt
const (
	maxFactsInContext       = 5
	maxPreferencesInContext = 5
	maxPatternsInContext    = 3
)

// Categorized groups records by kind, highest confidence first within
// each category
type Categorized struct {
	Facts           []*types.MemoryRecord
	Preferences     []*types.MemoryRecord
	EmotionPatterns []*types.MemoryRecord
	TonePreferences []*types.MemoryRecord
}

// Accessor reads back stored memories for prompt assembly
type Accessor struct {
	store interfaces.MemoryStore
	cfg   *config.PipelineConfig
}

// NewAccessor creates a new memory accessor
func NewAccessor(store interfaces.MemoryStore, cfg *config.PipelineConfig) *Accessor {
	return &Accessor{store: store, cfg: cfg}
}

// Categorize returns the confident records of a pair grouped by kind
func (a *Accessor) Categorize(ctx context.Context, userID, personaID string) (*Categorized, error) {
	records, err := a.store.Records(ctx, userID, personaID, a.cfg.MemoryReadMinConfidence)
	if err != nil {
		return nil, err
	}

	out := &Categorized{}
	for _, rec := range records {
		switch rec.Kind {
		case types.MemoryKindFact:
			out.Facts = append(out.Facts, rec)
		case types.MemoryKindPreference:
			out.Preferences = append(out.Preferences, rec)
		case types.MemoryKindEmotionPattern:
			out.EmotionPatterns = append(out.EmotionPatterns, rec)
		case types.MemoryKindTonePreference:
			out.TonePreferences = append(out.TonePreferences, rec)
		}
	}
	return out, nil
}

// FormatContext renders categorized memories into the user-information
// block of the system prompt. Empty when nothing confident is known.
func FormatContext(memories *Categorized) string {
	if memories == nil {
		return ""
	}

	var parts []string

	if len(memories.Facts) > 0 {
		var lines []string
		for _, rec := range capRecords(memories.Facts, maxFactsInContext) {
			lines = append(lines, "- "+rec.Content["fact"])
		}
		parts = append(parts, "**알려진 사실**:\n"+strings.Join(lines, "\n"))
	}

	if len(memories.Preferences) > 0 {
		var lines []string
		for _, rec := range capRecords(memories.Preferences, maxPreferencesInContext) {
			lines = append(lines, "- "+rec.Content["preference"])
		}
		parts = append(parts, "**선호도**:\n"+strings.Join(lines, "\n"))
	}

	if len(memories.EmotionPatterns) > 0 {
		var lines []string
		for _, rec := range capRecords(memories.EmotionPatterns, maxPatternsInContext) {
			lines = append(lines, "- "+rec.Content["pattern"])
		}
		parts = append(parts, "**감정 패턴**:\n"+strings.Join(lines, "\n"))
	}

	if len(memories.TonePreferences) > 0 {
		// Highest confidence tone profile wins
		tone := memories.TonePreferences[0].Content
		parts = append(parts, fmt.Sprintf(`**대화 스타일 선호**:
- 격식: %s
- 따뜻함: %s
- 응답 길이: %s
- 스타일: %s`,
			valueOr(tone, "formality", "균형적"),
			valueOr(tone, "warmth", "중간"),
			valueOr(tone, "response_length", "중간"),
			valueOr(tone, "style", "공감적")))
	}

	return strings.Join(parts, "\n\n")
}

func capRecords(records []*types.MemoryRecord, limit int) []*types.MemoryRecord {
	if len(records) > limit {
		return records[:limit]
	}
	return records
}

func valueOr(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}
