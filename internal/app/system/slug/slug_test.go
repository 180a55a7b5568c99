package slug

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dust Devils", "dust-devils"},
		{"  Camp   Awesome!!  ", "camp-awesome"},
		{"Bob's Camp", "bob-s-camp"},
		{"--Already-Slugged--", "already-slugged"},
		{"Café Ünïcode", "caf-n-code"},
		{"2024 Roster", "2024-roster"},
		{"!!!", "camp"},
		{"", "camp"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Make(tt.in); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMake_Deterministic(t *testing.T) {
	if Make("Playa Kitchen") != Make("Playa Kitchen") {
		t.Fatal("Make is not deterministic")
	}
}

func TestValid(t *testing.T) {
	if !Valid("dust-devils") {
		t.Error("dust-devils should be valid")
	}
	for _, s := range []string{"", "Dust-Devils", "dust devils", "-dust", "dust--devils"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true", s)
		}
	}
}

func TestUnique(t *testing.T) {
	used := map[string]bool{"dust-devils": true, "dust-devils-2": true}
	taken := func(_ context.Context, s string) (bool, error) { return used[s], nil }

	got, err := Unique(context.Background(), "Dust Devils", taken)
	if err != nil {
		t.Fatalf("Unique: %v", err)
	}
	if got != "dust-devils-3" {
		t.Errorf("Unique = %q, want dust-devils-3", got)
	}

	got, err = Unique(context.Background(), "Fresh Camp", taken)
	if err != nil || got != "fresh-camp" {
		t.Errorf("Unique = %q, %v; want fresh-camp", got, err)
	}
}

func TestUnique_Exhausted(t *testing.T) {
	taken := func(context.Context, string) (bool, error) { return true, nil }
	_, err := Unique(context.Background(), "busy", taken)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestUnique_LookupError(t *testing.T) {
	boom := fmt.Errorf("db down")
	taken := func(context.Context, string) (bool, error) { return false, boom }
	if _, err := Unique(context.Background(), "x", taken); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
