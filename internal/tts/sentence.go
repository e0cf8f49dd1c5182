package tts

import (
	"regexp"
	"strings"
)

// sentenceBoundary matches end-punctuation followed by whitespace — the
// split point between sentences.
var sentenceBoundary = regexp.MustCompile(`(?s)([.!?])\s+`)

// SplitSentences splits text at end-punctuation followed by whitespace.
// Empty pieces are dropped. Empty input yields an empty slice; input with
// no terminal punctuation yields a single element.
func SplitSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	// Reinsert the punctuation into the preceding piece: regexp.Split
	// discards the matched separator, so split on the boundary group's end
	// position manually via FindAllStringSubmatchIndex over the punctuation char.
	var sentences []string
	locs := sentenceBoundary.FindAllStringSubmatchIndex(trimmed, -1)
	last := 0
	for _, loc := range locs {
		// loc[2:4] is the punctuation-character capture group.
		end := loc[3]
		piece := strings.TrimSpace(trimmed[last:end])
		if piece != "" {
			sentences = append(sentences, piece)
		}
		last = loc[1]
	}
	if last < len(trimmed) {
		piece := strings.TrimSpace(trimmed[last:])
		if piece != "" {
			sentences = append(sentences, piece)
		}
	}
	return sentences
}
