package notify

import (
	"strings"
	"unicode/utf8"
)

// Platform message limits the chunked sinks split against.
const (
	discordMaxMessageLen  = 2000
	telegramMaxMessageLen = 4096
)

// SplitMessage breaks content into chunks of at most limit bytes, preferring
// paragraph breaks, then line breaks, then spaces. A chunk never ends inside
// an open ``` fence or a UTF-8 rune. Joining the chunks reproduces the input.
func SplitMessage(content string, limit int) []string {
	if limit <= 0 || len(content) <= limit {
		return []string{content}
	}

	var chunks []string
	for len(content) > limit {
		cut := cutPoint(content, limit)
		chunks = append(chunks, content[:cut])
		content = content[cut:]
	}
	return append(chunks, content)
}

func cutPoint(content string, limit int) int {
	window := limit
	if safe := fenceCut(content, limit); safe > 0 {
		window = safe
	}

	for _, sep := range []string{"\n\n", "\n", " "} {
		if idx := strings.LastIndex(content[:window], sep); idx > 0 {
			return idx + len(sep)
		}
	}
	return runeCut(content, window)
}

// fenceCut scans the window for ``` fences. When the window would end inside
// an open fence, it returns the last position before the fence opened (or
// after the previous block closed) so the cut lands on whole blocks. Returns
// 0 when the window is fence-safe.
func fenceCut(content string, limit int) int {
	open := false
	lastSafe := 0

	i := 0
	for i < len(content) && i < limit {
		if !strings.HasPrefix(content[i:], "```") {
			i++
			continue
		}

		if !open {
			if i > 0 {
				lastSafe = i
			}
			open = true
			// skip the fence and its language tag
			skip := 3
			for i+skip < len(content) && content[i+skip] != '\n' {
				skip++
			}
			i += skip
			continue
		}

		end := i + 3
		for end < len(content) && content[end] != '\n' {
			end++
		}
		if end < len(content) && content[end] == '\n' {
			end++
		}
		open = false
		if end <= limit {
			lastSafe = end
		}
		i += 3
	}

	if open && lastSafe > 0 {
		return lastSafe
	}
	return 0
}

// runeCut backs the cut up to the nearest rune start. A window smaller than
// the first rune still yields that rune whole.
func runeCut(content string, limit int) int {
	if limit >= len(content) {
		return len(content)
	}
	for limit > 0 && !utf8.RuneStart(content[limit]) {
		limit--
	}
	if limit == 0 {
		_, size := utf8.DecodeRuneInString(content)
		return size
	}
	return limit
}
