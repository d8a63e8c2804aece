// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package response

import (
	"strconv"
	"strings"
)

// successPhrase is the canonical reply text for successful transactions.
// Servers render it with different casing, trailing periods, and sometimes
// truncated ("Operation Success." vs "Operation Successful"), so replies
// are matched by normalized-substring against this phrase.
const successPhrase = "operation successful"

// Decode turns a parsed RETS reply document into a normalized Response.
//
// The root's ReplyCode/ReplyText attributes determine success. Successful
// replies are then classified by their first child: a RETS-RESPONSE wrapper
// holds key=value option lines (Login/Logout), a METADATA-* element nests
// the COMPACT rows one level down (GetMetadata), and anything else carries
// the rows directly (Search). A COUNT child supplies the record count and a
// trailing MAXROWS child signals a truncated result set.
func Decode(root *Element) *Response {
	resp := &Response{
		ReplyCode: root.Attr["ReplyCode"],
		ReplyText: root.Attr["ReplyText"],
		Rows:      []Row{},
	}
	resp.Ok = resp.ReplyCode == "0"

	if isSuccessText(resp.ReplyText) && len(root.Children) > 0 {
		first := root.Children[0]
		if first.Tag == "RETS-RESPONSE" {
			resp.Rows = optionRows(first.Text)
		} else {
			if first.Tag == "COUNT" {
				if n, err := strconv.Atoi(first.Attr["Records"]); err == nil {
					resp.RecordCount = n
				}
			}
			if root.Children[len(root.Children)-1].Tag == "MAXROWS" {
				resp.MoreRows = true
			}
			if strings.Contains(first.Tag, "METADATA-") {
				resp.Rows = extractRows(first)
			} else {
				resp.Rows = extractRows(root)
			}
		}
	}

	if resp.RecordCount == 0 {
		resp.RecordCount = len(resp.Rows)
	}
	return resp
}

// isSuccessText reports whether the reply text is a variant of the
// canonical success phrase.
func isSuccessText(replyText string) bool {
	normalized := strings.ReplaceAll(strings.ToLower(replyText), ".", "")
	return strings.Contains(successPhrase, normalized)
}

// optionRows decodes the line-delimited key=value block of a Login or
// Logout reply. Each recognizable line becomes a one-entry row; lines
// without '=' are ignored.
func optionRows(text string) []Row {
	rows := []Row{}
	for _, line := range SplitLine(text) {
		parts := strings.Split(line, "=")
		if len(parts) > 1 {
			rows = append(rows, Row{parts[0]: parts[1]})
		}
	}
	return rows
}

// extractRows decodes the COMPACT payload under el: a COLUMNS child sets
// the header, each DATA child is split and mapped against it. A DATA line
// whose field count does not match the header yields a nil row in place;
// the rest of the response is still usable.
func extractRows(el *Element) []Row {
	rows := []Row{}
	var columns []string
	for _, child := range el.Children {
		switch child.Tag {
		case "COLUMNS":
			columns = SplitLine(child.Text)
		case "DATA":
			line := SplitLine(child.Text)
			if len(line) == len(columns) {
				rows = append(rows, mapFields(columns, line))
			} else {
				rows = append(rows, nil)
			}
		}
	}
	return rows
}

// mapFields zips a column header with one row of values, casting each
// value. The caller guarantees equal lengths.
func mapFields(columns, line []string) Row {
	row := make(Row, len(columns))
	for i, value := range line {
		row[columns[i]] = Cast(value)
	}
	return row
}
