// Command elevetrain is a minimal demonstration of the training/query/
// segment control flow: it trains a Storage on a handful of hardcoded
// sentences, prints a few statistics, then segments one held-out
// sentence. It deliberately does no file or network I/O; wiring a real
// corpus loader is left to a caller that imports this module as a
// library.
package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"eleve/segmenter"
	"eleve/storage"
	"eleve/token"
)

func tokenize(sentence string) token.Ngram {
	fields := strings.Fields(sentence)
	ngram := make(token.Ngram, len(fields))
	for i, f := range fields {
		ngram[i] = token.Token(f)
	}
	return ngram
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	const defaultNgramLength = 5
	st := storage.New(defaultNgramLength, storage.WithLogger(logger))

	trainingSentences := []string{
		"je vous parle de hot dog",
		"j ador les hot dog",
		"hot dog ou pas",
		"hot dog ou sandwich",
	}
	for _, sentence := range trainingSentences {
		if err := st.AddSentence(tokenize(sentence), 1, 0); err != nil {
			logger.Fatal("training failed", zap.Error(err))
		}
	}
	st.UpdateStats()

	probe := token.Ngram{"hot", "dog"}
	fmt.Printf("count(%s) = %.0f\n", probe.String(), st.QueryCount(probe))
	fmt.Printf("entropy(%s) = %.4f\n", probe.String(), st.QueryEntropy(probe))
	fmt.Printf("autonomy(%s) = %.4f\n", probe.String(), st.QueryAutonomy(probe, true))

	sg, err := segmenter.New(st, defaultNgramLength-1, segmenter.WithLogger(logger))
	if err != nil {
		logger.Fatal("segmenter construction failed", zap.Error(err))
	}

	held := tokenize("je deteste les hot dog")
	fragments, err := sg.Segment(held)
	if err != nil {
		logger.Fatal("segmentation failed", zap.Error(err))
	}

	fmt.Println("\nsegmentation:")
	for _, fragment := range fragments {
		parts := make([]string, len(fragment))
		for i, t := range fragment {
			parts[i] = string(t)
		}
		fmt.Printf("  [%s]\n", strings.Join(parts, " "))
	}
}
