package tokenizer

import "testing"

func TestHeuristic_Count(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single char", "a", 1},
		{"exact multiple", "abcd", 1},
		{"rounds up", "abcde", 2},
		{"sentence", "the quick brown fox", 5},
		{"multibyte runes counted once", "héllo", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Heuristic{}).Count(tt.text); got != tt.want {
				t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestNew_FallsBackToHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
	}{
		{"unknown encoding", "no-such-encoding"},
		{"empty encoding", ""},
		{"explicit heuristic", "heuristic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := New(tt.encoding)
			if _, ok := est.(Heuristic); !ok {
				t.Fatalf("New(%q) = %T, want Heuristic", tt.encoding, est)
			}
			if est.Name() != "heuristic" {
				t.Errorf("Name() = %q, want heuristic", est.Name())
			}
		})
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	text := "Retrieval augmented generation keeps answers grounded."
	first := (Heuristic{}).Count(text)
	for i := 0; i < 10; i++ {
		if got := (Heuristic{}).Count(text); got != first {
			t.Fatalf("Count() = %d on run %d, want %d", got, i, first)
		}
	}
}
