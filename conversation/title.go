package conversation

import "strings"

// MaxTitleLength is the character limit of a generated thread title.
const MaxTitleLength = 30

// DefaultTitle names a thread created with neither a title nor content.
const DefaultTitle = "New conversation"

const ellipsis = "..."

// GenerateTitle derives a thread title from message content. Whitespace is trimmed and
// collapsed. Content longer than MaxTitleLength characters is cut at the last space when
// that space lies past 70% of the limit, otherwise it is hard-truncated; either way an
// ellipsis is appended.
func GenerateTitle(content string) string {
	cleaned := []rune(strings.Join(strings.Fields(content), " "))
	if len(cleaned) <= MaxTitleLength {
		return string(cleaned)
	}

	truncated := cleaned[:MaxTitleLength]
	lastSpace := -1
	for i := len(truncated) - 1; i >= 0; i-- {
		if truncated[i] == ' ' {
			lastSpace = i
			break
		}
	}

	if float64(lastSpace) > float64(MaxTitleLength)*0.7 {
		return string(truncated[:lastSpace]) + ellipsis
	}
	return string(truncated) + ellipsis
}

func resolveTitle(title, content string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if generated := GenerateTitle(content); generated != "" {
		return generated
	}
	return DefaultTitle
}
