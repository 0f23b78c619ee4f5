package knowledge

import "strings"

// splitText cuts text into chunks of at most chunkSize characters with
// roughly overlap characters of trailing context carried into the next
// chunk. Splits prefer paragraph, then line, then sentence boundaries.
func splitText(text string, chunkSize, overlap int) []string {
	if chunkSize < 1 {
		return nil
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := findSplitPoint(text[start:end])
		if cut <= 0 {
			cut = chunkSize
		}

		chunk := strings.TrimSpace(text[start : start+cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := start + cut - overlap
		if next <= start {
			next = start + cut
		}
		start = next
	}

	return chunks
}

// findSplitPoint returns the index just past the last natural boundary in s,
// or -1 when none exists
func findSplitPoint(s string) int {
	for _, sep := range []string{"\n\n", "\n", ". ", " "} {
		if idx := strings.LastIndex(s, sep); idx > 0 {
			return idx + len(sep)
		}
	}
	return -1
}
