package capture

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestClassifier_Significant(t *testing.T) {
	tests := []struct {
		name      string
		change    Change
		inclusive bool
		want      bool
	}{
		{name: "single keystroke", change: Change{Text: "a"}, want: false},
		{name: "three chars exclusive", change: Change{Text: "abc"}, want: false},
		{name: "three chars inclusive", change: Change{Text: "abc"}, inclusive: true, want: true},
		{name: "four chars", change: Change{Text: "abcd"}, want: true},
		{name: "padded short text", change: Change{Text: "   ab   "}, want: false},
		{name: "newline insert", change: Change{Text: "\n"}, want: true},
		{name: "multi-line insert", change: Change{Text: "x\ny"}, want: true},
		{name: "deletion across lines", change: Change{Text: "", StartLine: 2, EndLine: 4}, want: true},
		{name: "deletion on one line", change: Change{Text: "", StartLine: 3, EndLine: 3}, want: false},
		{name: "runes not bytes", change: Change{Text: "héé"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := Classifier{MinInsertLength: 3, InclusiveMin: tt.inclusive}
			require.Equal(t, tt.want, k.Significant(tt.change))
		})
	}
}

func TestClassifier_SignificantEdit_AnyChange(t *testing.T) {
	k := DefaultClassifier()

	require.False(t, k.SignificantEdit(Edit{}))
	require.False(t, k.SignificantEdit(Edit{Changes: []Change{{Text: "a"}, {Text: "b"}}}))
	require.True(t, k.SignificantEdit(Edit{Changes: []Change{{Text: "a"}, {Text: "return x"}}}))
}

// Single-line insertions are classified purely by trimmed length against the threshold.
func TestClassifier_SingleLineThreshold(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		minLen := rapid.IntRange(1, 10).Draw(r, "minLen")
		text := rapid.StringMatching(`[a-z ]{0,20}`).Draw(r, "text")
		line := rapid.IntRange(0, 100).Draw(r, "line")

		k := Classifier{MinInsertLength: minLen, InclusiveMin: rapid.Bool().Draw(r, "inclusive")}
		c := Change{Text: text, StartLine: line, EndLine: line}

		trimmed := len([]rune(trimSpace(text)))
		if trimmed < minLen {
			require.False(r, k.Significant(c))
		}
		if trimmed > minLen {
			require.True(r, k.Significant(c))
		}
	})
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}
