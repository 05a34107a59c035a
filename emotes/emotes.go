// Package emotes formats and sanitizes chat text around the channel's emote
// allow-lists. One Filter carries both lists and exposes three explicit modes:
//
//   - Expand rewrites :Name: tokens from the expansion list to bare emote names
//     so the chat client renders them.
//   - AppendRandom decorates a reply with one random emote from the same list.
//   - Strip is the cleanup pass over raw LLM output: it removes emoji-slug
//     words, :token: forms outside the sanitizer list, and raw Unicode emoji.
//
// The lists are configuration data (EMOTE_LIST / SANITIZER_EMOTE_LIST); the
// package hard-codes none.
package emotes

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
)

// slugPattern matches hyphen-joined emoji description names such as
// "winking-face-with-tongue" that some models emit instead of emoji.
var slugPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b[a-z0-9]+(?:-[a-z0-9]+)+\b`)
})

// tokenPattern matches any :token: form.
var tokenPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`:([a-zA-Z0-9_]+):`)
})

// emojiRanges are the Unicode ranges removed by Strip: dingbats, private use,
// and the supplementary emoji planes.
var emojiRanges = [][2]rune{
	{0x2700, 0x27BF},
	{0xE000, 0xF8FF},
	{0x1F000, 0x1FFFF},
}

type Filter struct {
	expandList []string
	expandRx   []*regexp.Regexp
	stripAllow map[string]bool

	intn func(n int) int // test hook for AppendRandom
}

// NewFilter builds a filter from the expansion list and the sanitizer
// allow-list. Either list may be empty.
func NewFilter(expandList, stripList []string) *Filter {
	f := &Filter{
		expandList: expandList,
		expandRx:   make([]*regexp.Regexp, len(expandList)),
		stripAllow: make(map[string]bool, len(stripList)),
		//nolint:gosec // G404: emote choice, not used for security
		intn: rand.Intn,
	}
	for i, name := range expandList {
		f.expandRx[i] = regexp.MustCompile(`(?i):` + regexp.QuoteMeta(name) + `:`)
	}
	for _, name := range stripList {
		f.stripAllow[name] = true
	}
	return f
}

// Expand replaces case-insensitive :Name: occurrences with the bare Name, one
// pass per list entry, applied in list order. Tokens outside the list are left
// untouched.
func (f *Filter) Expand(text string) string {
	for i, name := range f.expandList {
		text = f.expandRx[i].ReplaceAllString(text, name)
	}
	return text
}

// AppendRandom trims trailing whitespace, strips any trailing run of ".", "!"
// or "?", then appends a space and one random emote from the expansion list.
// With an empty list the trimmed text is returned unchanged.
func (f *Filter) AppendRandom(text string) string {
	text = strings.TrimRight(strings.TrimSpace(text), ".!?")
	if len(f.expandList) == 0 {
		return text
	}
	return text + " " + f.expandList[f.intn(len(f.expandList))]
}

// Strip applies the three sanitizer passes in order and trims the result.
// Allowed :token: forms are kept as-is; Strip never expands them (that is
// Expand's job).
func (f *Filter) Strip(text string) string {
	text = slugPattern().ReplaceAllString(text, "")
	text = tokenPattern().ReplaceAllStringFunc(text, func(match string) string {
		name := strings.Trim(match, ":")
		if f.stripAllow[name] {
			return match
		}
		return ""
	})
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if !isEmoji(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}
