// Package sandbox extracts fenced code from model replies and runs it in a
// working directory, optionally inside a Docker container.
package sandbox

import (
	"regexp"
	"strings"
)

// CodeBlock is one fenced block of code.
type CodeBlock struct {
	Lang string // Lowercased info string, "" when the fence has none
	Code string
}

var fencePattern = regexp.MustCompile("(?s)```[ \\t]*([\\w+.-]*)[^\\n]*\\n(.*?)\\n?[ \\t]*```")

// ExtractCodeBlocks returns the fenced code blocks in text, in order.
// Blocks whose body is only whitespace are skipped.
func ExtractCodeBlocks(text string) []CodeBlock {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	blocks := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		code := m[2]
		if strings.TrimSpace(code) == "" {
			continue
		}
		blocks = append(blocks, CodeBlock{
			Lang: strings.ToLower(m[1]),
			Code: code,
		})
	}
	return blocks
}
