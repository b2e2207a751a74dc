package segmenter

import (
	"testing"

	"eleve/storage"
	"eleve/token"
)

func tok(words ...string) token.Ngram {
	ng := make(token.Ngram, len(words))
	for i, w := range words {
		ng[i] = token.Token(w)
	}
	return ng
}

func fragmentsEqual(got [][]token.Token, want []token.Ngram) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			return false
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				return false
			}
		}
	}
	return true
}

func trainScenario2(t *testing.T, defaultNgramLength int) *storage.Storage {
	t.Helper()
	s := storage.New(defaultNgramLength)
	sentences := []token.Ngram{
		tok("je", "vous", "parle", "de", "hot", "dog"),
		tok("j", "ador", "les", "hot", "dog"),
		tok("hot", "dog", "ou", "pas"),
		tok("hot", "dog", "ou", "sandwich"),
	}
	for _, sentence := range sentences {
		if err := s.AddSentence(sentence, 1, 0); err != nil {
			t.Fatalf("AddSentence(%v): %v", sentence, err)
		}
	}
	s.UpdateStats()
	return s
}

// TestBasicThreeWaySegmentation covers spec scenario 2.
func TestBasicThreeWaySegmentation(t *testing.T) {
	s := trainScenario2(t, 5)
	sg, err := New(s, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := sg.Segment(tok("je", "deteste", "les", "hot", "dog"))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	want := []token.Ngram{tok("je"), tok("deteste"), tok("les"), tok("hot", "dog")}
	if !fragmentsEqual(got, want) {
		t.Errorf("Segment() = %v, want %v", got, want)
	}
}

// TestNgramLengthBound covers spec scenario 3: with default_ngram_length
// 2, no fragment may exceed length 2, and in particular "hot dog" is no
// longer grouped.
func TestNgramLengthBound(t *testing.T) {
	s := trainScenario2(t, 2)
	sg, err := New(s, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := sg.Segment(tok("je", "deteste", "les", "hot", "dog"))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	for _, fragment := range got {
		if len(fragment) > 2 {
			t.Errorf("fragment %v exceeds max_ngram_length=2", fragment)
		}
	}
	want := []token.Ngram{tok("je"), tok("deteste"), tok("les"), tok("hot"), tok("dog")}
	if !fragmentsEqual(got, want) {
		t.Errorf("Segment() = %v, want %v (five singletons)", got, want)
	}
}

func TestSegmentEmptySentence(t *testing.T) {
	s := storage.New(5)
	sg, err := New(s, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := sg.Segment(token.Ngram{})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Segment(empty) = %v, want empty", got)
	}
}

// TestSegmentUntrainedStorage covers the §7 "User-visible behavior"
// contract: a fresh, untrained storage segments every token as its own
// fragment.
func TestSegmentUntrainedStorage(t *testing.T) {
	s := storage.New(5)
	sg, err := New(s, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := sg.Segment(tok("a", "b", "c"))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	want := []token.Ngram{tok("a"), tok("b"), tok("c")}
	if !fragmentsEqual(got, want) {
		t.Errorf("Segment(untrained) = %v, want %v", got, want)
	}
}

func TestNewInvalidMaxNgramLength(t *testing.T) {
	s := storage.New(5)
	if _, err := New(s, 1); err == nil {
		t.Fatal("expected error for maxNgramLength=1, got nil")
	}
}

func TestSegmentNBestContainsBest(t *testing.T) {
	s := trainScenario2(t, 5)
	sg, err := New(s, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	best, err := sg.Segment(tok("je", "deteste", "les", "hot", "dog"))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	nbest, err := sg.SegmentNBest(tok("je", "deteste", "les", "hot", "dog"), 3)
	if err != nil {
		t.Fatalf("SegmentNBest: %v", err)
	}
	if len(nbest) == 0 {
		t.Fatal("SegmentNBest returned no candidates")
	}
	if !fragmentsEqual(nbest[0], toNgrams(best)) {
		t.Errorf("SegmentNBest()[0] = %v, want best single segmentation %v", nbest[0], best)
	}
}

func toNgrams(fragments [][]token.Token) []token.Ngram {
	out := make([]token.Ngram, len(fragments))
	for i, f := range fragments {
		out[i] = token.Ngram(f)
	}
	return out
}

func TestSegmentNBestInvalidN(t *testing.T) {
	s := storage.New(5)
	sg, err := New(s, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sg.SegmentNBest(tok("a"), 0); err == nil {
		t.Fatal("expected error for n=0, got nil")
	}
}
