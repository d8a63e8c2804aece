// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package connstate implements persistence for connection state.
//
// This file stores the serialized state in the OS keychain via internal/keychain.
package connstate

import (
	"encoding/json"
	"fmt"
	"os"

	"retsync/cli/internal/keychain"
)

var verboseConn = os.Getenv("RETSYNC_VERBOSE") == "1"

// State represents the persisted connection state for the current user.
type State struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account"`
}

// Load reads the connection state from the keychain. Missing state yields zero value.
func Load() (State, error) {
	if verboseConn {
		fmt.Printf("[DEBUG] connstate.Load: Loading connection state from keychain\n")
	}

	var s State
	km, err := keychain.GetManager()
	if err != nil {
		if verboseConn {
			fmt.Printf("[DEBUG] connstate.Load: GetManager failed: %v\n", err)
		}
		return s, err
	}

	data, err := km.LoadConnState()
	if err != nil {
		if verboseConn {
			fmt.Printf("[DEBUG] connstate.Load: LoadConnState failed: %v\n", err)
		}
		return s, err
	}

	if len(data) == 0 {
		if verboseConn {
			fmt.Printf("[DEBUG] connstate.Load: No connection state found (empty data)\n")
		}
		return s, nil
	}

	if err := json.Unmarshal(data, &s); err != nil {
		if verboseConn {
			fmt.Printf("[DEBUG] connstate.Load: Unmarshal failed: %v\n", err)
		}
		return s, err
	}

	if verboseConn {
		fmt.Printf("[DEBUG] connstate.Load: Success - Connected: %v, Account: %s\n", s.Connected, s.Account)
	}

	return s, nil
}

// Save writes the connection state to the keychain.
func Save(s State) error {
	if verboseConn {
		fmt.Printf("[DEBUG] connstate.Save: Saving state - Connected: %v, Account: %s\n", s.Connected, s.Account)
	}

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	km, err := keychain.GetManager()
	if err != nil {
		if verboseConn {
			fmt.Printf("[DEBUG] connstate.Save: GetManager failed: %v\n", err)
		}
		return err
	}

	if err := km.SaveConnState(b); err != nil {
		if verboseConn {
			fmt.Printf("[DEBUG] connstate.Save: SaveConnState failed: %v\n", err)
		}
		return err
	}

	return nil
}

// Clear removes the connection state from the keychain.
func Clear() error {
	km, err := keychain.GetManager()
	if err != nil {
		return err
	}
	return km.ClearConnState()
}
