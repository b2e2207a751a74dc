package token

import "testing"

func TestIsSentinel(t *testing.T) {
	cases := []struct {
		tok  Token
		want bool
	}{
		{Start, true},
		{End, true},
		{Token("le"), false},
		{Token(""), false},
	}
	for _, c := range cases {
		if got := IsSentinel(c.tok); got != c.want {
			t.Errorf("IsSentinel(%q) = %v, want %v", c.tok, got, c.want)
		}
	}
}

func TestNgramReversed(t *testing.T) {
	ng := Ngram{"le", "petit", "chat"}
	rev := ng.Reversed()
	want := Ngram{"chat", "petit", "le"}
	if len(rev) != len(want) {
		t.Fatalf("Reversed() length = %d, want %d", len(rev), len(want))
	}
	for i := range want {
		if rev[i] != want[i] {
			t.Errorf("Reversed()[%d] = %q, want %q", i, rev[i], want[i])
		}
	}
	// original is untouched
	if ng[0] != "le" {
		t.Errorf("Reversed mutated the receiver")
	}
}

func TestNgramString(t *testing.T) {
	ng := Ngram{"le", "petit", "chat"}
	if got, want := ng.String(), "le petit chat"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := (Ngram{}).String(), ""; got != want {
		t.Errorf("String() on empty ngram = %q, want %q", got, want)
	}
}
