package version

import (
	"testing"
)

// FuzzParse exercises the strict parser with arbitrary input.
// Run with: go test -fuzz=FuzzParse -fuzztime=30s
func FuzzParse(f *testing.F) {
	seeds := []string{
		// valid
		"1.0.0",
		"0.0.1",
		"10.20.30",
		"1.2.3-alpha",
		"1.2.3-beta.1",
		"1.2.3-alpha.beta",
		"1.2.3-0.3.7",
		"1.2.3+build.123",
		"1.2.3-alpha.1+build.456",
		"999.999.999",
		// invalid
		"",
		"v1.0.0",
		"1",
		"1.0",
		"1.0.0.0",
		"a.b.c",
		"01.0.0",
		"1.0.0-",
		"1.0.0+",
		"1.0.0-01",
		"1..0",
		" 1.0.0",
		"1.0.0\n",
		"1.0.0-α",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		v, err := Parse(input)
		if err != nil {
			return
		}

		// canonical form must round-trip
		rendered := v.String()
		reparsed, err := Parse(rendered)
		if err != nil {
			t.Fatalf("failed to reparse %q (from %q): %v", rendered, input, err)
		}
		if reparsed.Compare(v) != 0 {
			t.Fatalf("reparse of %q is not equal: %v vs %v", input, v, reparsed)
		}
		if reparsed.String() != rendered {
			t.Fatalf("rendering of %q is not stable: %q vs %q", input, rendered, reparsed.String())
		}
	})
}
