package exemplar

import "strings"

// similarEmotions groups emotions whose situations transfer between each
// other well enough to reuse demonstrations across them
var similarEmotions = map[string][]string{
	"불안": {"두려움"},
	"우울": {"슬픔"},
	"분노": {"짜증"},
	"기쁨": {"행복", "만족"},
}

// TextSimilarity computes Jaccard overlap of whitespace tokens.
// Token-based on purpose: embeddings would need another model call per
// candidate pair, and the selector scans hundreds of pairs per turn.
func TextSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// EmotionSimilarity scores how transferable a demonstration recorded
// under one emotion is to another: 1.0 identical, 0.7 same family,
// 0.5 when either side is unknown, 0.3 otherwise.
func EmotionSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.5
	}
	if a == b {
		return 1.0
	}
	for emotion, family := range similarEmotions {
		for _, member := range family {
			if (a == emotion && b == member) || (b == emotion && a == member) {
				return 0.7
			}
		}
	}
	return 0.3
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(s)) {
		set[token] = struct{}{}
	}
	return set
}
