package index

import "strings"

// splitChunks splits content into bounded chunks. Paragraphs are merged until
// the next one would exceed maxChars; a single oversized paragraph is windowed
// at the bound. The split is deterministic, so unchanged content always yields
// the same chunks and content hashes.
func splitChunks(content string, maxChars int) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var paragraphs []string
	for _, p := range strings.Split(content, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len([]rune(p)) > maxChars {
			paragraphs = append(paragraphs, windowSplit(p, maxChars)...)
		} else {
			paragraphs = append(paragraphs, p)
		}
	}

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(p))+2 > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// windowSplit cuts text into fixed-size rune windows
func windowSplit(text string, maxChars int) []string {
	runes := []rune(text)

	var parts []string
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			parts = append(parts, part)
		}
	}

	return parts
}
