// Package terminal provides utilities for terminal operations such as clearing text.
package terminal

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/term"
)

// ClearPreviousLines erases previously printed text from the terminal.
// It works out how many rows the text occupied at the current terminal
// width, then moves the cursor up and clears each row with ANSI escapes.
//
// Used to clean up credential prompts after the user has answered them,
// so passwords never linger on screen.
//
// textLength is the total character count of the cleared text
// (prompt plus user input). One extra row is cleared to account for the
// newline emitted when the user pressed Enter.
func ClearPreviousLines(textLength int) {
	width := 80 // fallback when not a tty
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	rows := int(math.Ceil(float64(textLength) / float64(width)))
	if rows < 1 {
		rows = 1
	}

	// The cursor sits on a fresh line below the input after Enter.
	toClear := rows + 1

	for i := 0; i < toClear; i++ {
		fmt.Print("\r\x1b[2K") // clear entire line
		if i < toClear-1 {
			fmt.Print("\x1b[1A") // up one line
		}
	}
}
