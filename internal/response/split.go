// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package response

import "strings"

// SplitLine splits one line of delimited RETS data into its field values.
// The delimiter is detected from the text itself, in priority order: a tab
// control character (Search transactions), the literal two-character
// sequence backslash-t (some metadata feeds escape their tabs), then a
// newline (Login/Logout option blocks). Text with none of these is returned
// as a single trimmed value.
func SplitLine(text string) []string {
	if strings.Contains(text, "\t") {
		return splitOn(text, "\t")
	}
	if strings.Contains(text, `\t`) {
		return splitOn(text, `\t`)
	}
	if strings.Contains(strings.TrimSpace(text), "\n") {
		return splitOn(text, "\n")
	}
	return []string{strings.TrimSpace(text)}
}

// splitOn splits text on delim. COMPACT rows are usually fully delimited
// (leading and trailing delimiter); those outer empty fields are dropped.
func splitOn(text, delim string) []string {
	if strings.HasPrefix(text, delim) && strings.HasSuffix(text, delim) {
		parts := strings.Split(text, delim)
		return parts[1 : len(parts)-1]
	}
	return strings.Split(strings.TrimSpace(text), delim)
}
