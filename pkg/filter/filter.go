// Package filter strips leaked reasoning-scaffold structure from model
// output before it reaches the user. The reasoning scaffold instructs the
// model in markdown, and weaker models echo pieces of it back: heading
// lines, bolded section labels, numbered meta-steps. Filtering runs
// chunk-wise during streaming and once more over the finished text;
// filtering already-filtered text is a no-op.
package filter

import (
	"regexp"
	"strings"
)

var (
	headingLine  = regexp.MustCompile(`^#+(\s|$)`)
	boldLabel    = regexp.MustCompile(`^\*\*[^*]+\*\*`)
	numberedStep = regexp.MustCompile(`^\d+\.\s*\*\*`)
	ruleLine     = regexp.MustCompile(`^-{3,}$`)

	// Prefixes that might still grow into a dropped line. Content matching
	// one of these is held back until the line completes.
	ambiguousPrefixes = []*regexp.Regexp{
		regexp.MustCompile(`^#`),
		regexp.MustCompile(`^\*\*?$`),
		regexp.MustCompile(`^\*\*[^*]*(\*\*?)?$`),
		regexp.MustCompile(`^-+$`),
		regexp.MustCompile(`^\d+(\.(\s*(\*\*?)?)?)?$`),
	}
)

// dropLine reports whether a completed line is scaffold leakage
func dropLine(line string) bool {
	t := strings.TrimSpace(line)
	return headingLine.MatchString(t) ||
		boldLabel.MatchString(t) ||
		numberedStep.MatchString(t) ||
		ruleLine.MatchString(t)
}

// stillAmbiguous reports whether a partial line could still become a
// dropped line as more text arrives
func stillAmbiguous(partial string) bool {
	t := strings.TrimLeft(partial, " \t")
	if t == "" {
		return true
	}
	if dropLine(t) {
		return true
	}
	for _, re := range ambiguousPrefixes {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// ChunkFilter filters a response stream incrementally. Text is released
// as soon as the current line can no longer match a leakage pattern, so
// ordinary prose streams through with no visible delay while suspicious
// prefixes are held until the line completes. Blank-line runs collapse
// to one, and leading and trailing blank lines disappear entirely.
type ChunkFilter struct {
	cur        string
	curEmitted int
	started    bool
	sepPending int
}

// NewChunkFilter creates a filter for one response stream
func NewChunkFilter() *ChunkFilter {
	return &ChunkFilter{}
}

// Write consumes the next raw chunk and returns the text now safe to
// forward to the client, possibly empty
func (f *ChunkFilter) Write(chunk string) string {
	var out strings.Builder

	f.cur += chunk
	for {
		idx := strings.IndexByte(f.cur[f.curEmitted:], '\n')
		if idx < 0 {
			break
		}
		end := f.curEmitted + idx
		line := f.cur[:end]
		f.finishLine(&out, line)
		f.cur = f.cur[end+1:]
		f.curEmitted = 0
	}

	f.emitSafePrefix(&out)
	return out.String()
}

// Flush completes the stream, returning whatever was held back from the
// final unterminated line
func (f *ChunkFilter) Flush() string {
	var out strings.Builder
	if f.cur != "" {
		f.finishLine(&out, f.cur)
		f.cur = ""
		f.curEmitted = 0
	}
	return out.String()
}

// finishLine handles a completed line: emit its remainder, drop it, or
// record a blank separator
func (f *ChunkFilter) finishLine(out *strings.Builder, line string) {
	if f.curEmitted > 0 {
		out.WriteString(line[f.curEmitted:])
		f.sepPending = 1
		return
	}
	if strings.TrimSpace(line) == "" {
		if f.started && f.sepPending < 2 {
			f.sepPending++
		}
		return
	}
	if dropLine(line) {
		return
	}
	f.emitContent(out, line)
	f.sepPending = 1
}

// emitSafePrefix releases the current partial line once it is provably
// not leakage
func (f *ChunkFilter) emitSafePrefix(out *strings.Builder) {
	if f.curEmitted == len(f.cur) {
		return
	}
	if f.curEmitted == 0 {
		if stillAmbiguous(f.cur) {
			return
		}
		f.emitContent(out, f.cur)
	} else {
		out.WriteString(f.cur[f.curEmitted:])
	}
	f.curEmitted = len(f.cur)
}

// emitContent writes the pending separator newlines, then the text
func (f *ChunkFilter) emitContent(out *strings.Builder, text string) {
	if f.started {
		out.WriteString(strings.Repeat("\n", f.sepPending))
	}
	f.sepPending = 0
	f.started = true
	out.WriteString(text)
}

// Clean filters a complete text in one call. Used for the final pass
// over the accumulated response; Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	f := NewChunkFilter()
	return f.Write(s) + f.Flush()
}
