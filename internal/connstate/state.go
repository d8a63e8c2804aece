// Package connstate tracks which RETS server the CLI is connected to.
// It provides high-level helpers over the persisted state, so commands
// can gate on "connected" without reaching into storage directly.
package connstate

import (
	"context"
)

// IsConnected reports whether a RETS server profile has been verified.
func IsConnected(ctx context.Context) (bool, error) {
	st, err := Load()
	if err != nil {
		return false, err
	}
	return st.Connected, nil
}

// SetConnected marks the server profile as verified by writing state.
func SetConnected(ctx context.Context, account string) error {
	return Save(State{Connected: true, Account: account})
}

// SetDisconnected clears connection state.
func SetDisconnected(ctx context.Context) error {
	return Clear()
}
