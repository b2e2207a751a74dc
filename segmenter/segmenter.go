// Package segmenter implements the dynamic-programming word segmenter:
// given a trained storage.Storage, it partitions a token sequence into
// contiguous fragments maximizing total length-weighted autonomy.
package segmenter

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"eleve/storage"
	"eleve/token"
)

// ErrInvalidArgument is returned for structurally invalid construction or
// query arguments.
var ErrInvalidArgument = errors.New("segmenter: invalid argument")

// nanAutonomyPenalty is substituted for NaN autonomy so that unknown
// n-grams remain admissible states in the dynamic program while being
// strongly disfavored against any known one.
const nanAutonomyPenalty = -100.0

// longSentenceWarnThreshold is the length past which Segment logs a
// diagnostic about the O(n*maxNgramLength) cost, without refusing to run.
const longSentenceWarnThreshold = 1000

// Segmenter holds a shared, read-only reference to a Storage and
// consumes its QueryAutonomy to score candidate segmentations. It does
// not mutate the Storage and is safe to share across goroutines as long
// as the Storage is not concurrently mutated.
type Segmenter struct {
	storage        *storage.Storage
	maxNgramLength int
	logger         *zap.Logger
}

// Option configures a Segmenter at construction time.
type Option func(*Segmenter)

// WithLogger attaches a zap logger for diagnostics (e.g. the long-input
// warning).
func WithLogger(logger *zap.Logger) Option {
	return func(sg *Segmenter) {
		sg.logger = logger
	}
}

// New creates a Segmenter over s. maxNgramLength bounds the length of any
// emitted fragment and must be >= 2; it is typically
// s.DefaultNgramLength()-1.
func New(s *storage.Storage, maxNgramLength int, opts ...Option) (*Segmenter, error) {
	if maxNgramLength < 2 {
		return nil, fmt.Errorf("%w: maxNgramLength must be >= 2, got %d", ErrInvalidArgument, maxNgramLength)
	}
	sg := &Segmenter{storage: s, maxNgramLength: maxNgramLength}
	for _, opt := range opts {
		opt(sg)
	}
	if sg.logger == nil {
		sg.logger = zap.NewNop()
	}
	return sg, nil
}

// Segment partitions sentence into contiguous fragments maximizing total
// summed autonomy weighted by fragment length. An empty sentence returns
// an empty partition.
func (sg *Segmenter) Segment(sentence token.Ngram) ([][]token.Token, error) {
	best, err := sg.bestPaths(sentence, 1)
	if err != nil {
		return nil, err
	}
	if len(best) == 0 {
		return [][]token.Token{}, nil
	}
	return best[0], nil
}

// SegmentNBest returns up to n distinct candidate segmentations, ordered
// best-score-first. The dynamic program keeps the top-n partial paths at
// every position instead of a single best, so the state per position
// grows from a scalar to a length-n list; the recurrence itself is
// unchanged. n must be >= 1.
func (sg *Segmenter) SegmentNBest(sentence token.Ngram, n int) ([][][]token.Token, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be >= 1, got %d", ErrInvalidArgument, n)
	}
	return sg.bestPaths(sentence, n)
}

// candidate is one partial path ending at a given position, together
// with its cumulative score.
type candidate struct {
	score     float64
	fragments [][]token.Token
}

func (sg *Segmenter) bestPaths(sentence token.Ngram, keep int) ([][][]token.Token, error) {
	n := len(sentence)
	if n == 0 {
		return [][][]token.Token{}, nil
	}
	if n > longSentenceWarnThreshold {
		sg.logger.Warn("segmenting a very long sentence; this is costly in time and memory",
			zap.Int("length", n))
	}

	// beams[i] holds up to keep candidates for the best partition of
	// sentence[:i], sorted best-score-first.
	beams := make([][]candidate, n+1)
	beams[0] = []candidate{{score: 0, fragments: [][]token.Token{}}}

	for i := 1; i <= n; i++ {
		var pool []candidate
		for j := 1; j <= sg.maxNgramLength; j++ {
			if i-j < 0 {
				break
			}
			if len(beams[i-j]) == 0 {
				continue
			}
			frag := sentence[i-j : i]
			a := sg.storage.QueryAutonomy(frag, true)
			if isNaN(a) {
				a = nanAutonomyPenalty
			}
			weighted := a * float64(j)
			for _, prev := range beams[i-j] {
				fragments := make([][]token.Token, len(prev.fragments)+1)
				copy(fragments, prev.fragments)
				fragments[len(prev.fragments)] = append([]token.Token{}, frag...)
				pool = append(pool, candidate{
					score:     prev.score + weighted,
					fragments: fragments,
				})
			}
		}
		sort.SliceStable(pool, func(a, b int) bool { return pool[a].score > pool[b].score })
		if len(pool) > keep {
			pool = pool[:keep]
		}
		beams[i] = pool
	}

	final := beams[n]
	out := make([][][]token.Token, len(final))
	for i, c := range final {
		out[i] = c.fragments
	}
	return out, nil
}

func isNaN(f float64) bool {
	return f != f
}
