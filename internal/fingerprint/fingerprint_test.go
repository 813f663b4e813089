package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCollapsesWhitespaceAndCase(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Alice, Python & ML, NYC", "alice, python & ml, nyc"},
		{"collapses runs of spaces", "alice,   python    & ml", "alice, python & ml"},
		{"collapses inserted blank lines", "alice\n\n\npython", "alice python"},
		{"trims leading and trailing punctuation", "...alice, python!!!", "alice, python"},
		{"trims surrounding whitespace", "  alice  ", "alice"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestFingerprintStableUnderNormalizationVariants(t *testing.T) {
	base := Of("Alice, Python & ML, NYC")

	variants := []string{
		"alice, python & ml, nyc",
		"Alice, Python & ML, NYC   ",
		"ALICE,   PYTHON & ML,\n\nNYC",
		"\tAlice, Python & ML, NYC\n",
	}
	for _, v := range variants {
		require.Equal(t, base, Of(v), "variant %q must fingerprint identically", v)
	}
}

func TestFingerprintDistinguishesDifferentProfiles(t *testing.T) {
	require.NotEqual(t, Of("Alice, Python & ML, NYC"), Of("Bob, Rust & infra, SF"))
}

func TestFingerprintLengthAndAlphabet(t *testing.T) {
	fp := Of("Alice, Python & ML, NYC")
	require.Len(t, fp, Length)
	for _, r := range fp {
		require.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'), "fingerprint must be lowercase hex, got %q", fp)
	}
}
