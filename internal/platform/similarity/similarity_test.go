package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		a, b        string
		containment float64
		want        float64
	}{
		{"identical", "fever", "fever", SearchContainmentScore, 1},
		{"both empty", "", "", SearchContainmentScore, 1},
		{"search containment", "jvara", "jvaratisara", SearchContainmentScore, 0.8},
		{"confidence containment", "fever", "intermittent fever", ConfidenceContainmentScore, 0.85},
		{"one edit", "kasa", "kasha", SearchContainmentScore, 0.8},
		{"disjoint", "abc", "xyz", SearchContainmentScore, 0},
		{"empty vs word", "", "abc", SearchContainmentScore, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.a, tt.b, tt.containment), 1e-9)
		})
	}
}

func TestScore_Symmetric(t *testing.T) {
	assert.InDelta(t, Score("jvara", "jwara", SearchContainmentScore), Score("jwara", "jvara", SearchContainmentScore), 1e-9)
}

func TestScore_RuneLength(t *testing.T) {
	// one substitution over four runes, regardless of byte width
	got := Score("ज्वर", "ज्वल", SearchContainmentScore)
	assert.InDelta(t, 0.75, got, 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.1, Clamp(-1, 0.1, 0.98))
	assert.Equal(t, 0.98, Clamp(2, 0.1, 0.98))
	assert.Equal(t, 0.5, Clamp(0.5, 0.1, 0.98))
}
