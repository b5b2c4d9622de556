package term

import "strings"

// SplitPaste normalises pasted text into complete lines (each ended by a
// newline in the paste) and a trailing fragment that stays in the input.
func SplitPaste(content string) (lines []string, tail string) {
	if content == "" {
		return nil, ""
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\t", " ")
	parts := strings.Split(content, "\n")
	return parts[:len(parts)-1], parts[len(parts)-1]
}
