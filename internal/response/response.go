// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package response decodes RETS server replies into a uniform structure.
// A RETS server answers every transaction with XML whose root carries
// ReplyCode/ReplyText attributes; the payload inside varies by transaction:
// key=value option blocks for Login/Logout, COMPACT (tab-delimited) rows
// for Search, nested COMPACT rows for GetMetadata. This package classifies
// the shape and produces the same Response record for all of them, casting
// each field value into a native Go type along the way.
package response

// Row maps a column name to a cast native value (int64, float64, string,
// time.Time, or nil). Field names are unique per row because they come from
// the server's column header.
type Row map[string]any

// Response is the normalized result of any RETS transaction.
type Response struct {
	// Ok is true when the server reply code was "0".
	Ok bool
	// ReplyCode is the RETS status code as reported by the server.
	ReplyCode string
	// ReplyText is the human-readable status from the server.
	ReplyText string
	// Rows holds the decoded data rows. A nil entry marks a row whose field
	// count did not match the column header and could not be mapped.
	Rows []Row
	// RecordCount is the server-reported count when present, otherwise the
	// number of decoded rows.
	RecordCount int
	// MoreRows is true when the server truncated the result set and more
	// records are available.
	MoreRows bool
	// ObjectData carries the raw bytes of a GetObject reply. It is nil for
	// all other transactions and after the payload has been written to disk.
	ObjectData []byte
}
