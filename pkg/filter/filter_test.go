package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanDropsScaffoldLeakage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain reply untouched",
			input:    "많이 힘드시겠어요. 오늘은 일찍 쉬어보는 건 어떨까요?",
			expected: "많이 힘드시겠어요. 오늘은 일찍 쉬어보는 건 어떨까요?",
		},
		{
			name:     "heading line dropped",
			input:    "## 응답\n많이 힘드시겠어요.",
			expected: "많이 힘드시겠어요.",
		},
		{
			name:     "bold label line dropped",
			input:    "**감정 이해**: 사용자는 불안을 느끼고 있다\n걱정되시는 게 당연해요.",
			expected: "걱정되시는 게 당연해요.",
		},
		{
			name:     "numbered scaffold step dropped",
			input:    "1. **감정 이해**: 불안\n2. **맥락 파악**: 시험\n걱정되시는 게 당연해요.",
			expected: "걱정되시는 게 당연해요.",
		},
		{
			name:     "plain numbered advice kept",
			input:    "이렇게 해보세요.\n1. 깊게 숨쉬기\n2. 짧은 산책",
			expected: "이렇게 해보세요.\n1. 깊게 숨쉬기\n2. 짧은 산책",
		},
		{
			name:     "horizontal rule dropped",
			input:    "첫 문단입니다.\n---\n둘째 문단입니다.",
			expected: "첫 문단입니다.\n둘째 문단입니다.",
		},
		{
			name:     "blank run collapses",
			input:    "첫 문단입니다.\n\n\n\n둘째 문단입니다.",
			expected: "첫 문단입니다.\n\n둘째 문단입니다.",
		},
		{
			name:     "dropped line does not create blank run",
			input:    "첫 문단입니다.\n\n## 제목\n\n둘째 문단입니다.",
			expected: "첫 문단입니다.\n\n둘째 문단입니다.",
		},
		{
			name:     "leading and trailing blanks trimmed",
			input:    "\n\n안녕하세요.\n\n",
			expected: "안녕하세요.",
		},
		{
			name:     "everything leaked yields empty",
			input:    "## 응답 생성 프로세스\n**안전 확인**: 문제 없음\n",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"## 응답\n많이 힘드시겠어요.\n\n\n1. **안전 확인**: 위기 아님\n오늘은 쉬어보세요.",
		"괜찮은 하루 보내셨나요?",
		"",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once))
	}
}

func TestChunkFilterStreamsProseImmediately(t *testing.T) {
	f := NewChunkFilter()

	// Ordinary prose is released without waiting for a newline
	out := f.Write("많이 힘드")
	assert.Equal(t, "많이 힘드", out)

	out = f.Write("시겠어요.")
	assert.Equal(t, "시겠어요.", out)

	assert.Empty(t, f.Flush())
}

func TestChunkFilterHoldsBackSuspiciousPrefix(t *testing.T) {
	f := NewChunkFilter()

	// A line starting with ** might be a scaffold label; nothing is
	// emitted until the line resolves
	assert.Empty(t, f.Write("**감정"))
	assert.Empty(t, f.Write(" 이해**: 불안함"))

	// The newline completes the line and it turns out to be leakage
	out := f.Write("\n걱정되시는 게 당연해요.")
	assert.Equal(t, "걱정되시는 게 당연해요.", out)
}

func TestChunkFilterSplitHeadingAcrossChunks(t *testing.T) {
	f := NewChunkFilter()

	total := f.Write("##")
	total += f.Write(" 다음")
	total += f.Write(" 단계\n숨을 ")
	total += f.Write("골라보세요.")
	total += f.Flush()

	assert.Equal(t, "숨을 골라보세요.", total)
}

func TestChunkFilterBlankCollapseAcrossChunks(t *testing.T) {
	f := NewChunkFilter()

	total := f.Write("첫 문단.\n")
	total += f.Write("\n")
	total += f.Write("\n")
	total += f.Write("둘째 문단.")
	total += f.Flush()

	assert.Equal(t, "첫 문단.\n\n둘째 문단.", total)
}

func TestChunkFilterMatchesClean(t *testing.T) {
	raw := "## 응답\n**공감 표현**: 인정하기\n많이 힘드시겠어요.\n\n\n1. 깊게 숨쉬기\n---\n오늘도 수고하셨어요.\n"

	f := NewChunkFilter()
	var streamed string
	for _, r := range raw {
		streamed += f.Write(string(r))
	}
	streamed += f.Flush()

	assert.Equal(t, Clean(raw), streamed)
}
