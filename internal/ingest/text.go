package ingest

import (
	"strings"
	"unicode/utf8"
)

// splitIntoChunks packs lines into chunks of at most maxLen bytes, cutting
// overlong lines on rune boundaries.
func splitIntoChunks(content string, maxLen int) []string {
	content = sanitizeUTF8(strings.TrimSpace(content))
	if content == "" {
		return nil
	}
	if len(content) <= maxLen {
		return []string{content}
	}

	var chunks []string
	var buf strings.Builder

	flush := func() {
		if chunk := strings.TrimSpace(buf.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for len(line) > maxLen {
			cut := maxLen
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			flush()
			buf.WriteString(line[:cut])
			flush()
			line = line[cut:]
		}

		if buf.Len()+len(line)+1 > maxLen {
			flush()
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	flush()
	return chunks
}

// describe collapses whitespace and shortens text to about limit bytes,
// preferring to end on a sentence.
func describe(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= limit {
		return text
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	short := text[:cut]

	if i := strings.LastIndex(short, ". "); i > limit/2 {
		return short[:i+1]
	}
	if i := strings.LastIndex(short, " "); i > 0 {
		short = short[:i]
	}
	return short + "..."
}

// sanitizeUTF8 drops invalid bytes; Postgres rejects them in text columns.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
