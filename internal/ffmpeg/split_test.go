package ffmpeg

import "testing"

func TestSplitPlan(t *testing.T) {
	const cap = int64(2000 * 1024 * 1024) // 2000MB
	tests := []struct {
		name  string
		size  int64
		want  int
	}{
		{"under cap", cap - 1, 1},
		{"exactly cap", cap, 1},
		{"just over cap", cap + 1, 2},
		{"double", 2 * cap, 3}, // even halves sit at 100% of the cap
		{"comfortable thirds", 5 * cap / 2, 3},
		{"near-full parts get headroom", 19 * cap / 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitPlan(tt.size, cap); got != tt.want {
				t.Errorf("splitPlan(%d, %d) = %d, want %d", tt.size, cap, got, tt.want)
			}
		})
	}
}
