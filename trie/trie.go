// Package trie implements the forward/backward n-gram prefix trie that
// underlies branching-entropy word segmentation: it accumulates token
// co-occurrence counts up to an arbitrary depth and, on demand, derives
// per-node Shannon entropy, entropy variation and a per-depth z-score
// normalization used to compute the "autonomy" measure the segmenter
// consumes.
//
// A Trie is mutated only through AddNgram; reads trigger a lazy,
// batched recomputation of entropy and normalization whenever the trie
// is dirty (see §4.1 of the design: this amortizes the cost of
// recomputation over typical train-then-query workloads).
package trie

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"eleve/token"
)

// ErrInvalidArgument is returned for structurally invalid calls, such as
// a non-positive freq passed to AddNgram.
var ErrInvalidArgument = errors.New("trie: invalid argument")

const inlineChildren = 4

type childEntry struct {
	tok token.Token
	n   *node
}

// node is a single trie node. Up to inlineChildren children are kept in
// a linearly-searched array; beyond that the node promotes to a map.
// This keeps per-node overhead low since most nodes in a trained corpus
// branch into only a handful of distinct continuations.
type node struct {
	count   int64
	entropy float64

	small  [inlineChildren]childEntry
	smallN int
	big    map[token.Token]*node
}

func newNode() *node {
	return &node{entropy: math.NaN()}
}

func (n *node) get(t token.Token) (*node, bool) {
	if n.big != nil {
		c, ok := n.big[t]
		return c, ok
	}
	for i := 0; i < n.smallN; i++ {
		if n.small[i].tok == t {
			return n.small[i].n, true
		}
	}
	return nil, false
}

func (n *node) getOrCreate(t token.Token) *node {
	if c, ok := n.get(t); ok {
		return c
	}
	child := newNode()
	if n.big != nil {
		n.big[t] = child
		return child
	}
	if n.smallN < inlineChildren {
		n.small[n.smallN] = childEntry{tok: t, n: child}
		n.smallN++
		return child
	}
	n.big = make(map[token.Token]*node, inlineChildren+1)
	for i := 0; i < n.smallN; i++ {
		n.big[n.small[i].tok] = n.small[i].n
	}
	n.smallN = 0
	n.big[t] = child
	return child
}

// setChild attaches child under t, overwriting any existing entry. Used
// only by snapshot restoration, which builds subtrees bottom-up.
func (n *node) setChild(t token.Token, child *node) {
	if n.big != nil {
		n.big[t] = child
		return
	}
	for i := 0; i < n.smallN; i++ {
		if n.small[i].tok == t {
			n.small[i].n = child
			return
		}
	}
	if n.smallN < inlineChildren {
		n.small[n.smallN] = childEntry{tok: t, n: child}
		n.smallN++
		return
	}
	n.big = make(map[token.Token]*node, inlineChildren+1)
	for i := 0; i < n.smallN; i++ {
		n.big[n.small[i].tok] = n.small[i].n
	}
	n.smallN = 0
	n.big[t] = child
}

func (n *node) numChildren() int {
	if n.big != nil {
		return len(n.big)
	}
	return n.smallN
}

func (n *node) forEachChild(f func(token.Token, *node)) {
	if n.big != nil {
		for t, c := range n.big {
			f(t, c)
		}
		return
	}
	for i := 0; i < n.smallN; i++ {
		f(n.small[i].tok, n.small[i].n)
	}
}

// onlineStat accumulates mean and variance with Welford's numerically
// stable running formula.
type onlineStat struct {
	k    int64
	mean float64
	m2   float64
}

func (s *onlineStat) add(v float64) {
	s.k++
	delta := v - s.mean
	s.mean += delta / float64(s.k)
	s.m2 += delta * (v - s.mean)
}

func (s *onlineStat) stdev() float64 {
	if s.k == 0 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.k))
}

// normStat is the (mean, stdev) pair of entropy variations observed at a
// given depth, used to z-score-normalize autonomy at that depth.
type normStat struct {
	mean  float64
	stdev float64
}

// Trie is a prefix tree over token ngrams with branching-entropy
// statistics. The zero value is not usable; construct with New.
type Trie struct {
	mu sync.RWMutex

	root          *node
	maxDepth      int
	dirty         bool
	normalization []normStat

	bloom              *bloom.BloomFilter
	useBloom           bool
	bloomExpectedItems uint
	bloomFPRate        float64

	logger *zap.Logger
}

// Option configures a Trie at construction time.
type Option func(*Trie)

// WithBloomFilter enables the optional singleton pre-filter: an ngram's
// first occurrence is recorded only in a bloom filter, not in the trie
// itself, and counts are stored from the second occurrence onward. This
// trades a configurable (falsePositiveRate) false-negative-on-delay rate for
// substantially less memory on corpora dominated by hapax n-grams. It is
// off by default because it delays when the count-consistency invariant
// becomes observable for a freshly-seen ngram.
func WithBloomFilter(expectedItems uint, falsePositiveRate float64) Option {
	return func(t *Trie) {
		t.useBloom = true
		t.bloomExpectedItems = expectedItems
		t.bloomFPRate = falsePositiveRate
		t.bloom = bloom.NewWithEstimates(expectedItems, falsePositiveRate)
	}
}

// WithLogger attaches a zap logger used for non-fatal diagnostics (empty
// ngram inserts, lazy stats rebuilds). A nil logger is treated as a nop.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Trie) {
		t.logger = logger
	}
}

// New creates an empty Trie.
func New(opts ...Option) *Trie {
	t := &Trie{
		root: newNode(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	return t
}

func ngramKey(ngram token.Ngram) string {
	// '\x00' cannot appear in token text produced by real tokenizers
	// (and never in the sentinel runes), so it's a safe separator.
	key := make([]byte, 0, len(ngram)*4)
	for _, t := range ngram {
		key = append(key, []byte(t)...)
		key = append(key, 0)
	}
	return string(key)
}

// AddNgram increments the count of ngram (and of every node on the path
// from the root) by freq. An empty ngram is a no-op (diagnostic only,
// not an error). freq must be positive.
func (t *Trie) AddNgram(ngram token.Ngram, freq int64) error {
	if freq <= 0 {
		return fmt.Errorf("%w: freq must be positive, got %d", ErrInvalidArgument, freq)
	}
	if len(ngram) == 0 {
		t.logger.Debug("ignoring empty ngram insert")
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.useBloom {
		key := ngramKey(ngram)
		if !t.bloom.TestString(key) {
			t.bloom.AddString(key)
			return nil
		}
	}

	n := t.root
	n.count += freq
	for _, tok := range ngram {
		n = n.getOrCreate(tok)
		n.count += freq
	}

	if len(ngram) > t.maxDepth {
		t.maxDepth = len(ngram)
	}
	t.dirty = true
	return nil
}

// lookup walks ngram from the root, returning the path of nodes visited
// (path[0] is always the root) or false if the ngram was never inserted.
func (t *Trie) lookup(ngram token.Ngram) ([]*node, bool) {
	path := make([]*node, len(ngram)+1)
	path[0] = t.root
	cur := t.root
	for i, tok := range ngram {
		c, ok := cur.get(tok)
		if !ok {
			return nil, false
		}
		path[i+1] = c
		cur = c
	}
	return path, true
}

// ensureStats recomputes entropy and normalization if the trie is dirty.
func (t *Trie) ensureStats() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return
	}
	if t.logger != nil {
		t.logger.Debug("rebuilding trie statistics", zap.Int("max_depth", t.maxDepth))
	}
	t.refreshStatsLocked()
	t.dirty = false
}

// UpdateStats forces a statistics rebuild if the trie is dirty. Queries
// already call this lazily; exposed for callers who want to pay the cost
// up front (e.g. right after a training pass).
func (t *Trie) UpdateStats() {
	t.ensureStats()
}

func assignEntropy(n *node, isRoot bool) {
	if n.numChildren() == 0 {
		if isRoot {
			if n.count == 0 {
				n.entropy = math.NaN()
			} else {
				n.entropy = 0
			}
		} else {
			n.entropy = math.NaN()
		}
		return
	}

	counts := make([]int64, 0, n.numChildren())
	n.forEachChild(func(tok token.Token, c *node) {
		if token.IsSentinel(tok) {
			for i := int64(0); i < c.count; i++ {
				counts = append(counts, 1)
			}
		} else {
			counts = append(counts, c.count)
		}
	})
	n.entropy = shannonEntropy(counts)

	n.forEachChild(func(_ token.Token, c *node) {
		assignEntropy(c, false)
	})
}

// shannonEntropy computes the base-2 Shannon entropy of the distribution
// induced by counts, following the terminals rule's expansion upstream:
// each value is treated as if clamped to at least 1 for the log term
// (matching the reference behavior for degenerate/zero entries), base
// count is the sum of the non-negative values.
func shannonEntropy(counts []int64) float64 {
	var total int64
	var weighted float64
	for _, v := range counts {
		cv := v
		if cv < 0 {
			cv = 0
		}
		total += cv

		lv := v
		if lv < 1 {
			lv = 1
		}
		weighted += float64(v) * math.Log2(float64(lv))
	}
	if total == 0 {
		return 0
	}
	return math.Log2(float64(total)) - weighted/float64(total)
}

// refreshStatsLocked performs two depth-first passes: first every node's
// entropy (assignEntropy), then the per-depth entropy variation
// population used for z-score normalization. Caller must hold t.mu.
func (t *Trie) refreshStatsLocked() {
	assignEntropy(t.root, true)

	stats := make([]onlineStat, t.maxDepth)
	var walk func(n, parent *node, depth int)
	walk = func(n, parent *node, depth int) {
		if depth >= 1 && !math.IsNaN(n.entropy) && !math.IsNaN(parent.entropy) {
			if n.entropy != 0 || parent.entropy != 0 {
				stats[depth-1].add(n.entropy - parent.entropy)
			}
		}
		n.forEachChild(func(_ token.Token, c *node) {
			walk(c, n, depth+1)
		})
	}
	walk(t.root, nil, 0)

	norm := make([]normStat, len(stats))
	for i, s := range stats {
		norm[i] = normStat{mean: s.mean, stdev: s.stdev()}
	}
	t.normalization = norm
}

// QueryCount returns the number of times ngram was observed (0 if never
// inserted). An empty ngram addresses the root.
func (t *Trie) QueryCount(ngram token.Ngram) int64 {
	t.ensureStats()
	t.mu.RLock()
	defer t.mu.RUnlock()
	path, ok := t.lookup(ngram)
	if !ok {
		return 0
	}
	return path[len(path)-1].count
}

// QueryEntropy returns the branching entropy at ngram, or NaN if ngram
// was never inserted or its node is a leaf.
func (t *Trie) QueryEntropy(ngram token.Ngram) float64 {
	t.ensureStats()
	t.mu.RLock()
	defer t.mu.RUnlock()
	path, ok := t.lookup(ngram)
	if !ok {
		return math.NaN()
	}
	return path[len(path)-1].entropy
}

// QueryEV returns the entropy variation at ngram (node entropy minus
// parent entropy), or NaN if undefined. ngram must be non-empty.
func (t *Trie) QueryEV(ngram token.Ngram) float64 {
	if len(ngram) == 0 {
		return math.NaN()
	}
	t.ensureStats()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.evLocked(ngram)
}

func (t *Trie) evLocked(ngram token.Ngram) float64 {
	path, ok := t.lookup(ngram)
	if !ok {
		return math.NaN()
	}
	n := path[len(path)-1]
	parent := path[len(path)-2]
	if math.IsNaN(n.entropy) || math.IsNaN(parent.entropy) {
		return math.NaN()
	}
	if n.entropy == 0 && parent.entropy == 0 {
		return math.NaN()
	}
	return n.entropy - parent.entropy
}

// QueryAutonomy returns the normalized entropy variation for ngram:
// (ev - mean_L) / stdev_L when zScore is true, ev - mean_L otherwise,
// where L is len(ngram). Returns NaN if the depth is out of range, ev is
// undefined, or (under z-score) stdev_L is zero. ngram must be non-empty.
func (t *Trie) QueryAutonomy(ngram token.Ngram, zScore bool) float64 {
	if len(ngram) == 0 {
		return math.NaN()
	}
	t.ensureStats()
	t.mu.RLock()
	defer t.mu.RUnlock()

	ev := t.evLocked(ngram)
	if math.IsNaN(ev) {
		return math.NaN()
	}

	depth := len(ngram)
	if depth > len(t.normalization) {
		return math.NaN()
	}
	stat := t.normalization[depth-1]

	nev := ev - stat.mean
	if zScore {
		if stat.stdev == 0 {
			return math.NaN()
		}
		nev /= stat.stdev
	}
	return nev
}

// MaxDepth returns the length of the longest ngram ever inserted.
func (t *Trie) MaxDepth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.maxDepth
}

// Clear resets the trie to its newly-constructed state. The bloom
// filter, if any, is reset too so clear() behaves like a fresh Trie.
func (t *Trie) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = newNode()
	t.maxDepth = 0
	t.normalization = nil
	t.dirty = false
	if t.useBloom {
		t.bloom = bloom.NewWithEstimates(t.bloomExpectedItems, t.bloomFPRate)
	}
}

// Walk visits every ngram ever inserted (i.e. every non-root node),
// calling fn with the path of tokens from the root and that node's
// count. Traversal order is unspecified. Used by Storage's CSV dump.
//
// fn is invoked after the internal lock is released, so it may safely
// call back into other Trie methods (e.g. QueryAutonomy) without
// deadlocking against this trie's own mutex.
func (t *Trie) Walk(fn func(ngram token.Ngram, count int64)) {
	t.ensureStats()

	type entry struct {
		ngram token.Ngram
		count int64
	}
	var entries []entry

	t.mu.RLock()
	var rec func(n *node, path token.Ngram)
	rec = func(n *node, path token.Ngram) {
		if len(path) > 0 {
			entries = append(entries, entry{ngram: append(token.Ngram{}, path...), count: n.count})
		}
		n.forEachChild(func(tok token.Token, c *node) {
			rec(c, append(path, tok))
		})
	}
	rec(t.root, nil)
	t.mu.RUnlock()

	for _, e := range entries {
		fn(e.ngram, e.count)
	}
}
