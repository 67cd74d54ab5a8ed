package textutil

import "testing"

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "Team Collab", want: "team collab"},
		{name: "collapses inner whitespace", in: "Team  Collab", want: "team collab"},
		{name: "trims outer whitespace", in: "  coffee beans  ", want: "coffee beans"},
		{name: "collapses tabs and newlines", in: "city\t\nskyline", want: "city skyline"},
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: " \t ", want: ""},
		{name: "composes decomposed accents", in: "café latte", want: "café latte"},
		{name: "composed form unchanged", in: "café latte", want: "café latte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeQuery(tt.in); got != tt.want {
				t.Fatalf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeQueryEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"Team  Collab", "team collab"},
		{"COFFEE beans", "coffee	beans"},
		{"café", "café"},
	}
	for _, pair := range pairs {
		if NormalizeQuery(pair[0]) != NormalizeQuery(pair[1]) {
			t.Fatalf("expected %q and %q to normalize identically", pair[0], pair[1])
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Coffee Beans", want: "coffee_beans"},
		{in: "city-skyline", want: "city-skyline"},
		{in: "___", want: "unknown"},
		{in: "", want: "unknown"},
		{in: "Drone Shot (4K)!", want: "drone_shot__4k"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
