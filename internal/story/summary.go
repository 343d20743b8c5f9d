package story

import (
	"strings"
	"unicode/utf8"
)

// maxSummaryLen bounds the carry-forward context summary. The summary only
// needs to preserve names, dates, and facts for later chapters, not prose.
const maxSummaryLen = 600

// DeriveSummary produces the compact context summary carried forward from a
// chapter's narrative. Derivation is local and deterministic: the same
// narrative always yields the same summary, and no model call is spent on it.
// Short narratives are carried whole; longer ones keep the leading sentences
// plus the closing sentence, which in practice hold the chapter's facts and
// its hand-off point.
func DeriveSummary(narrative string) string {
	text := strings.Join(strings.Fields(narrative), " ")
	if len(text) <= maxSummaryLen {
		return text
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return truncate(text, maxSummaryLen)
	}

	last := sentences[len(sentences)-1]
	budget := maxSummaryLen - len(last) - 1

	var sb strings.Builder
	for _, s := range sentences[:len(sentences)-1] {
		if sb.Len()+len(s)+1 > budget {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}

	// Always keep at least the opening sentence, truncated if oversized.
	if sb.Len() == 0 {
		return truncate(sentences[0], maxSummaryLen)
	}

	sb.WriteByte(' ')
	sb.WriteString(last)
	return sb.String()
}

// splitSentences breaks text on sentence-ending punctuation.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			// Consume any run of closing punctuation
			end := i + 1
			for end < len(text) && (text[end] == '.' || text[end] == '!' || text[end] == '?' || text[end] == '"') {
				end++
			}
			s := strings.TrimSpace(text[start:end])
			if s != "" {
				sentences = append(sentences, s)
			}
			start = end
			i = end - 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
