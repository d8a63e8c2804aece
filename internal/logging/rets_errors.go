// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// RETSErrorType represents the category of a RETS transport error
type RETSErrorType int

const (
	RETSErrorUnknown RETSErrorType = iota
	RETSErrorNetwork
	RETSErrorAuth
	RETSErrorTimeout
	RETSErrorRateLimit
	RETSErrorUnavailable
)

// ParseRETSError categorizes a RETS transport error message
func ParseRETSError(errMsg string) RETSErrorType {
	lower := strings.ToLower(errMsg)

	// Check for specific error patterns
	if strings.Contains(lower, "connection reset") || strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "unexpected eof") {
		return RETSErrorNetwork
	}
	if strings.Contains(lower, "too many outstanding") {
		return RETSErrorRateLimit
	}
	if strings.Contains(lower, "503") || strings.Contains(lower, "service unavailable") {
		return RETSErrorUnavailable
	}
	if strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout") {
		return RETSErrorTimeout
	}
	if strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "authentication") {
		return RETSErrorAuth
	}

	return RETSErrorUnknown
}

// FormatTransportError formats a RETS transport error in a user-friendly way
func FormatTransportError(errMsg string) string {
	errType := ParseRETSError(errMsg)

	var builder strings.Builder

	// Title
	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Connection Lost"))
	builder.WriteString("\n\n")

	// User-friendly description
	switch errType {
	case RETSErrorNetwork:
		builder.WriteString("The connection to the RETS server was interrupted unexpectedly.\n")
		builder.WriteString("This usually happens when:\n")
		builder.WriteString("  • Your internet connection was disrupted\n")
		builder.WriteString("  • The server closed the connection mid-transfer\n")
		builder.WriteString("  • A firewall or proxy closed the connection\n")

	case RETSErrorRateLimit:
		builder.WriteString("The RETS server is throttling this account.\n")
		builder.WriteString("This could mean:\n")
		builder.WriteString("  • Too many concurrent queries are outstanding\n")
		builder.WriteString("  • The MLS enforces a per-account request quota\n")
		builder.WriteString("  • Another session with the same credentials is active\n")

	case RETSErrorUnavailable:
		builder.WriteString("The RETS server is currently unavailable.\n")
		builder.WriteString("Possible reasons:\n")
		builder.WriteString("  • The MLS is under maintenance\n")
		builder.WriteString("  • The server is temporarily overloaded\n")
		builder.WriteString("  • There's a service outage\n")

	case RETSErrorTimeout:
		builder.WriteString("The connection to the RETS server timed out.\n")
		builder.WriteString("This could be due to:\n")
		builder.WriteString("  • Slow or unstable internet connection\n")
		builder.WriteString("  • A large result set taking too long to generate\n")
		builder.WriteString("  • Network latency issues\n")

	case RETSErrorAuth:
		builder.WriteString("Authentication with the RETS server failed.\n")
		builder.WriteString("To fix this:\n")
		builder.WriteString("  • Run 'retsync connect' to re-enter your credentials\n")
		builder.WriteString("  • Your MLS account may be locked or expired\n")

	default:
		builder.WriteString("The RETS session was interrupted.\n")
		builder.WriteString("This could mean:\n")
		builder.WriteString("  • Network connection dropped\n")
		builder.WriteString("  • Server is restarting or under maintenance\n")
		builder.WriteString("  • Session timeout\n")
	}

	builder.WriteString("\n")

	// Action to take
	if errType == RETSErrorAuth {
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please run 'retsync connect' and try again"))
	} else {
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please retry the command in a few minutes"))
	}

	builder.WriteString("\n")

	// Technical details (optional, for debugging)
	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(errMsg)))
	}

	return builder.String()
}

// PresentTransportError displays a formatted transport error
func PresentTransportError(errMsg string) {
	fmt.Println()
	fmt.Println(FormatTransportError(errMsg))
	fmt.Println()
}
