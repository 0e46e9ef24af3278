package main

import "testing"

func TestParseUIMode(t *testing.T) {
	cases := []struct {
		input string
		want  uiMode
	}{
		{"", uiModeAuto},
		{"auto", uiModeAuto},
		{"ON", uiModeOn},
		{" off ", uiModeOff},
	}
	for _, tc := range cases {
		got, err := parseUIMode(tc.input)
		if err != nil {
			t.Fatalf("parseUIMode(%q) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("parseUIMode(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
	if _, err := parseUIMode("fancy"); err == nil {
		t.Fatal("parseUIMode(\"fancy\") should fail")
	}
}

func TestWantProgressUIForcedModes(t *testing.T) {
	if !uiModeOn.wantProgressUI() {
		t.Fatal("on must always render the progress view")
	}
	if uiModeOff.wantProgressUI() {
		t.Fatal("off must never render the progress view")
	}
}
