package storage

import (
	"encoding/gob"
	"fmt"
	"io"

	"eleve/trie"
)

// snapshot is the gob wire format for a Storage: just the two tries'
// counts plus the default window length, matching trie.Snapshot's
// choice to omit derived statistics from the persisted form.
type snapshot struct {
	Version            int
	DefaultNgramLength int
	Forward            trie.Snapshot
	Backward           trie.Snapshot
}

const persistenceVersion = 1

// Save writes a gob-encoded snapshot of s's trained counts to w. Derived
// statistics (entropy, normalization) are not persisted; LoadStorage
// recomputes them lazily on first query, same as after any training
// pass.
func (s *Storage) Save(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		Version:            persistenceVersion,
		DefaultNgramLength: s.defaultNgramLength,
		Forward:            s.fwd.Snapshot(),
		Backward:           s.bwd.Snapshot(),
	}
	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}
	return nil
}

// LoadStorage reconstructs a Storage previously written by Save. The
// returned Storage's tries are dirty: statistics are rebuilt on first
// query. opts are applied the same way as in New, except that trie
// construction options carried via WithTrieOptions only affect newly
// inserted data (e.g. a bloom filter option has no retroactive effect
// on restored counts).
func LoadStorage(r io.Reader, opts ...Option) (*Storage, error) {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("storage: decode: %w", err)
	}
	if snap.Version != persistenceVersion {
		return nil, fmt.Errorf("storage: unsupported snapshot version %d", snap.Version)
	}

	s := New(snap.DefaultNgramLength, opts...)
	s.fwd.Restore(snap.Forward)
	s.bwd.Restore(snap.Backward)
	return s, nil
}
