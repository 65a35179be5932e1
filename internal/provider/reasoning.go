package provider

import (
	"regexp"
	"strings"
)

var (
	thinkBlock   = regexp.MustCompile(`(?is)^\s*<think>(.*?)</think>\s*(.*)$`)
	markerBlocks = regexp.MustCompile(`(?is)^\s*(?:\*\*)?REASONING:?(?:\*\*)?:?\s*(.*?)\s*(?:\*\*)?SUMMARY:?(?:\*\*)?:?\s*(.*)$`)
)

// SplitReasoning separates a reasoning preamble from the answer when a backend
// emits both in one text blob, either as a <think> block or as REASONING:/SUMMARY: markers.
// Content without a recognised preamble is returned unchanged as the answer.
func SplitReasoning(content string) (answer, reasoning string) {
	if m := thinkBlock.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[2]), strings.TrimSpace(m[1])
	}
	if m := markerBlocks.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[2]), strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content), ""
}
