package course

import (
	"regexp"
	"strings"
)

// sentenceRe splits on sentence-ending punctuation followed by
// whitespace. Abbreviation handling is deliberately simple: a split that
// is occasionally too eager only shortens a chunk.
var sentenceRe = regexp.MustCompile(`(?s)(.*?[.!?])(?:\s+|$)`)

// SplitSentences splits text into chunks of at most size characters on
// sentence boundaries, carrying overlap characters worth of trailing
// sentences into the next chunk. A single sentence longer than size
// becomes its own chunk rather than being cut mid-sentence.
func SplitSentences(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 || len(text) <= size {
		return []string{text}
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 1 {
		return []string{text}
	}

	var chunks []string
	var cur []string
	curLen := 0

	for _, s := range sentences {
		// +1 accounts for the joining space.
		if curLen > 0 && curLen+len(s)+1 > size {
			chunks = append(chunks, strings.Join(cur, " "))
			cur, curLen = tailForOverlap(cur, overlap)
		}
		cur = append(cur, s)
		if curLen > 0 {
			curLen++
		}
		curLen += len(s)
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks
}

func splitIntoSentences(text string) []string {
	matches := sentenceRe.FindAllStringSubmatch(text, -1)
	var out []string
	consumed := 0
	for _, m := range matches {
		s := strings.TrimSpace(m[1])
		if s != "" {
			out = append(out, s)
		}
		consumed += len(m[0])
	}
	// Trailing text without terminal punctuation is still a sentence.
	if rest := strings.TrimSpace(text[consumed:]); rest != "" {
		out = append(out, rest)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// tailForOverlap returns the suffix of sentences whose combined length
// does not exceed overlap, along with that length.
func tailForOverlap(sentences []string, overlap int) ([]string, int) {
	if overlap <= 0 {
		return nil, 0
	}
	total := 0
	start := len(sentences)
	for i := len(sentences) - 1; i >= 0; i-- {
		add := len(sentences[i])
		if total > 0 {
			add++
		}
		if total+add > overlap {
			break
		}
		total += add
		start = i
	}
	tail := make([]string, len(sentences)-start)
	copy(tail, sentences[start:])
	return tail, total
}
