// Package storage presents a symmetric, sentence-oriented API over a
// pair of forward and backward n-gram tries: the forward trie captures
// right-context branching, the backward trie captures left-context
// branching, and a token boundary is linguistically credible only when
// both sides are highly branching. Averaging the two is the design
// commitment; see Storage.QueryAutonomy.
package storage

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"eleve/token"
	"eleve/trie"
)

// ErrInvalidArgument is returned for structurally invalid calls, such as
// a non-positive freq passed to AddSentence.
var ErrInvalidArgument = errors.New("storage: invalid argument")

const fallbackNgramLength = 5

// Storage owns a forward and a backward Trie and drives sentence
// ingestion with START/END sentinels.
type Storage struct {
	mu sync.RWMutex

	defaultNgramLength int
	fwd, bwd           *trie.Trie

	logger *zap.Logger

	trieOpts []trie.Option
}

// Option configures a Storage at construction time.
type Option func(*Storage)

// WithLogger attaches a zap logger for diagnostics, propagated to both
// underlying tries.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Storage) {
		s.logger = logger
	}
}

// WithTrieOptions passes construction options (e.g. trie.WithBloomFilter)
// through to both the forward and backward tries.
func WithTrieOptions(opts ...trie.Option) Option {
	return func(s *Storage) {
		s.trieOpts = append(s.trieOpts, opts...)
	}
}

// New creates an empty Storage. defaultNgramLength is used by AddSentence
// when no explicit ngramLength is given; it must be positive (0 or
// negative falls back to 5).
func New(defaultNgramLength int, opts ...Option) *Storage {
	if defaultNgramLength <= 0 {
		defaultNgramLength = fallbackNgramLength
	}
	s := &Storage{defaultNgramLength: defaultNgramLength}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	trieOpts := append(append([]trie.Option{}, s.trieOpts...), trie.WithLogger(s.logger))
	s.fwd = trie.New(trieOpts...)
	s.bwd = trie.New(trieOpts...)
	return s
}

// AddSentence trains the storage on sentence. The padded sequence
// [START] + sentence + [END] is windowed into ngrams of length up to
// ngramLength (or DefaultNgramLength if ngramLength <= 0) and inserted
// into the forward trie; the reversed padded sequence is windowed the
// same way into the backward trie. An empty sentence is a no-op.
func (s *Storage) AddSentence(sentence token.Ngram, freq int64, ngramLength int) error {
	if freq <= 0 {
		return fmt.Errorf("%w: freq must be positive, got %d", ErrInvalidArgument, freq)
	}
	if len(sentence) == 0 {
		s.logger.Debug("ignoring empty sentence")
		return nil
	}
	if ngramLength <= 0 {
		ngramLength = s.defaultNgramLength
	}

	padded := make(token.Ngram, 0, len(sentence)+2)
	padded = append(padded, token.Start)
	padded = append(padded, sentence...)
	padded = append(padded, token.End)

	for i := 0; i < len(padded)-1; i++ {
		end := i + ngramLength
		if end > len(padded) {
			end = len(padded)
		}
		if err := s.fwd.AddNgram(padded[i:end], freq); err != nil {
			return err
		}
	}

	reversed := padded.Reversed()
	for i := 0; i < len(reversed)-1; i++ {
		end := i + ngramLength
		if end > len(reversed) {
			end = len(reversed)
		}
		if err := s.bwd.AddNgram(reversed[i:end], freq); err != nil {
			return err
		}
	}
	return nil
}

// Clear resets both tries.
func (s *Storage) Clear() {
	s.fwd.Clear()
	s.bwd.Clear()
}

// UpdateStats forces a statistics rebuild on both tries.
func (s *Storage) UpdateStats() {
	s.fwd.UpdateStats()
	s.bwd.UpdateStats()
}

// DefaultNgramLength returns the window length used by AddSentence when
// none is given explicitly.
func (s *Storage) DefaultNgramLength() int {
	return s.defaultNgramLength
}

// QueryCount returns the average of the forward count of ngram and the
// backward count of its reverse.
func (s *Storage) QueryCount(ngram token.Ngram) float64 {
	fwdCount := s.fwd.QueryCount(ngram)
	bwdCount := s.bwd.QueryCount(ngram.Reversed())
	return float64(fwdCount+bwdCount) / 2.0
}

// QueryEntropy returns the arithmetic mean of the forward entropy of
// ngram and the backward entropy of its reverse. NaN on either side
// propagates to the result.
func (s *Storage) QueryEntropy(ngram token.Ngram) float64 {
	return meanSymmetric(s.fwd.QueryEntropy(ngram), s.bwd.QueryEntropy(ngram.Reversed()))
}

// QueryEV returns the arithmetic mean of the forward entropy variation
// of ngram and the backward entropy variation of its reverse.
func (s *Storage) QueryEV(ngram token.Ngram) float64 {
	return meanSymmetric(s.fwd.QueryEV(ngram), s.bwd.QueryEV(ngram.Reversed()))
}

// QueryAutonomy returns the arithmetic mean of the forward autonomy of
// ngram and the backward autonomy of its reverse.
func (s *Storage) QueryAutonomy(ngram token.Ngram, zScore bool) float64 {
	return meanSymmetric(s.fwd.QueryAutonomy(ngram, zScore), s.bwd.QueryAutonomy(ngram.Reversed(), zScore))
}

func meanSymmetric(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return (a + b) / 2.0
}

// Forward and Backward expose the underlying tries for callers that need
// one-sided queries (e.g. the CSV dump) without going through the
// symmetric averaging above.
func (s *Storage) Forward() *trie.Trie  { return s.fwd }
func (s *Storage) Backward() *trie.Trie { return s.bwd }
