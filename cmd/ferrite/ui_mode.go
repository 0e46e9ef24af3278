package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode selects whether a check run renders the live progress view.
type uiMode uint8

const (
	uiModeAuto uiMode = iota
	uiModeOn
	uiModeOff
)

// parseUIMode reads the --ui flag. Empty means auto.
func parseUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	}
	return uiModeOff, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// wantProgressUI reports whether the check should drive the per-file
// progress view. Auto requires stdout to be a terminal, so piped pretty or
// json output stays plain.
func (m uiMode) wantProgressUI() bool {
	switch m {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	return isTerminal(os.Stdout)
}
