package hotkey

import "testing"

func TestParseValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain ctrl letter",
			input: "ctrl+z",
			want:  "ctrl+z",
		},
		{
			name:  "case insensitive",
			input: "Ctrl+Shift+F5",
			want:  "ctrl+shift+f5",
		},
		{
			name:  "modifier order is canonical",
			input: "alt+ctrl+o",
			want:  "ctrl+alt+o",
		},
		{
			name:  "aliases collapse",
			input: "cmd+enter",
			want:  "super+return",
		},
		{
			name:  "duplicate modifiers collapse",
			input: "ctrl+control+x",
			want:  "ctrl+x",
		},
		{
			name:  "bare key",
			input: "f13",
			want:  "f13",
		},
		{
			name:  "surrounding spaces",
			input: " ctrl + space ",
			want:  "ctrl+space",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combo, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if got := combo.String(); got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "trailing plus", input: "ctrl+"},
		{name: "leading plus", input: "+z"},
		{name: "modifier only", input: "ctrl"},
		{name: "unknown key", input: "ctrl+zz"},
		{name: "unknown modifier", input: "hyper+z"},
		{name: "modifier in key position", input: "ctrl+shift"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.input); err == nil {
				t.Errorf("Parse(%q) should have failed", tt.input)
			}
		})
	}
}

func TestComboRoundTrip(t *testing.T) {
	combo, err := Parse("ctrl+alt+delete")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	again, err := Parse(combo.String())
	if err != nil {
		t.Fatalf("Parse of canonical form returned error: %v", err)
	}
	if again.String() != combo.String() {
		t.Errorf("round trip changed combo: %q -> %q", combo.String(), again.String())
	}
}

func TestResolveCoversDefaults(t *testing.T) {
	for _, s := range []string{"ctrl+z", "ctrl+x", "ctrl+o"} {
		combo, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", s, err)
		}
		if _, _, err := resolve(combo); err != nil {
			t.Errorf("resolve(%q) failed on this platform: %v", s, err)
		}
	}
}
