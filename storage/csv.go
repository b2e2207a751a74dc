package storage

import (
	"encoding/csv"
	"fmt"
	"io"

	"eleve/token"
)

// DumpCSV writes one row per distinct ngram ever inserted into the
// forward trie, up to maxDepth tokens long (maxDepth <= 0 means
// unbounded), as tab-separated (word, autonomy, count) triples per spec
// §6: the ngram rendered with delimiter, its symmetric QueryAutonomy
// (z-scored), and its forward count. Only ngrams with non-NaN autonomy
// are emitted. This mirrors the forward trie's own Walk order rather
// than fully materializing both tries, since the backward trie holds no
// ngram QueryAutonomy can't already reach through its reversed lookup.
func (s *Storage) DumpCSV(w io.Writer, delimiter string, maxDepth int) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	defer cw.Flush()

	var walkErr error
	s.fwd.Walk(func(ngram token.Ngram, count int64) {
		if walkErr != nil {
			return
		}
		if maxDepth > 0 && len(ngram) > maxDepth {
			return
		}
		autonomy := s.QueryAutonomy(ngram, true)
		if autonomy != autonomy { // NaN
			return
		}
		row := []string{
			joinDelim(ngram, delimiter),
			formatFloat(autonomy),
			fmt.Sprintf("%d", count),
		}
		if err := cw.Write(row); err != nil {
			walkErr = fmt.Errorf("storage: csv row: %w", err)
		}
	})
	if walkErr != nil {
		return walkErr
	}
	cw.Flush()
	return cw.Error()
}

func joinDelim(ngram token.Ngram, delimiter string) string {
	s := ""
	for i, t := range ngram {
		if i > 0 {
			s += delimiter
		}
		s += string(t)
	}
	return s
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
