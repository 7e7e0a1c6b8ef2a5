package corpus

import (
	"math"
	"sort"
	"strings"
)

const (
	// ngramMax is the longest word n-gram used as a feature.
	ngramMax = 3
	// defaultMaxVocabulary bounds index memory.
	defaultMaxVocabulary = 5000
	// defaultThreshold is the minimum cosine similarity for a match.
	defaultThreshold = 0.30
)

// Match is a successful similarity lookup.
type Match struct {
	Index    int
	Question string
	Answer   string
	Score    float64
}

// MatcherOptions tune the TF-IDF index.
type MatcherOptions struct {
	Threshold     float64
	MaxVocabulary int
}

// Matcher scores queries against the corpus with TF-IDF weighted cosine
// similarity. The corpus side of the index is computed once at construction
// and reused for every query; only the query is embedded per call. Query
// terms outside the corpus vocabulary still enter the query vector (with a
// zero document frequency), so the effective vocabulary always covers the
// query.
type Matcher struct {
	corpus        *Corpus
	threshold     float64
	maxVocabulary int

	vocab   map[string]int // term -> column
	df      []int          // document frequency per column
	docVecs []map[int]float64
	docNorm []float64
}

// NewMatcher builds the TF-IDF index for the given corpus.
func NewMatcher(c *Corpus, opts MatcherOptions) *Matcher {
	if opts.Threshold <= 0 {
		opts.Threshold = defaultThreshold
	}
	if opts.MaxVocabulary <= 0 {
		opts.MaxVocabulary = defaultMaxVocabulary
	}

	m := &Matcher{
		corpus:        c,
		threshold:     opts.Threshold,
		maxVocabulary: opts.MaxVocabulary,
	}
	m.buildIndex()
	return m
}

// Threshold returns the configured similarity threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// FindBestMatch returns the highest-scoring corpus entry for text, or false
// when no entry reaches the threshold. Identical input always yields
// identical output.
func (m *Matcher) FindBestMatch(text string) (Match, bool) {
	terms := tokenize(Normalize(text))
	if len(terms) == 0 || m.corpus.Len() == 0 {
		return Match{}, false
	}

	queryVec, queryNorm := m.embedQuery(terms)
	if queryNorm == 0 {
		return Match{}, false
	}

	bestIdx, bestScore := -1, 0.0
	for i, doc := range m.docVecs {
		if m.docNorm[i] == 0 {
			continue
		}
		var dot float64
		for _, qt := range queryVec {
			if dw, ok := doc[qt.col]; ok {
				dot += qt.weight * dw
			}
		}
		score := dot / (queryNorm * m.docNorm[i])
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore < m.threshold {
		return Match{}, false
	}
	entry := m.corpus.Entry(bestIdx)
	return Match{
		Index:    bestIdx,
		Question: entry.Question,
		Answer:   entry.Answer,
		Score:    bestScore,
	}, true
}

// buildIndex computes the vocabulary, document frequencies, and weighted
// corpus vectors.
func (m *Matcher) buildIndex() {
	n := m.corpus.Len()
	docTerms := make([][]string, n)
	fullDF := make(map[string]int)
	for i := 0; i < n; i++ {
		docTerms[i] = tokenize(m.corpus.NormalizedQuestion(i))
		seen := make(map[string]struct{})
		for _, t := range docTerms[i] {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				fullDF[t]++
			}
		}
	}

	// Cap the vocabulary at the highest-document-frequency terms; ties
	// break lexicographically so index construction is deterministic.
	terms := make([]string, 0, len(fullDF))
	for t := range fullDF {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if fullDF[terms[i]] != fullDF[terms[j]] {
			return fullDF[terms[i]] > fullDF[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > m.maxVocabulary {
		terms = terms[:m.maxVocabulary]
	}

	m.vocab = make(map[string]int, len(terms))
	m.df = make([]int, len(terms))
	for col, t := range terms {
		m.vocab[t] = col
		m.df[col] = fullDF[t]
	}

	m.docVecs = make([]map[int]float64, n)
	m.docNorm = make([]float64, n)
	for i := 0; i < n; i++ {
		counts := make(map[int]int)
		for _, t := range docTerms[i] {
			if col, ok := m.vocab[t]; ok {
				counts[col]++
			}
		}
		vec := make(map[int]float64, len(counts))
		var norm float64
		for col, tf := range counts {
			w := float64(tf) * m.idf(m.df[col])
			vec[col] = w
			norm += w * w
		}
		m.docVecs[i] = vec
		m.docNorm[i] = math.Sqrt(norm)
	}
}

// queryTerm is one weighted component of an embedded query.
type queryTerm struct {
	col    int
	weight float64
}

// embedQuery weights query terms against the frozen corpus statistics.
// Out-of-vocabulary terms get a synthetic column so they contribute to the
// query norm the same way a combined-vocabulary fit would. The result is
// ordered by column so scoring sums in a fixed order.
func (m *Matcher) embedQuery(terms []string) ([]queryTerm, float64) {
	counts := make(map[string]int)
	uniq := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := counts[t]; !ok {
			uniq = append(uniq, t)
		}
		counts[t]++
	}
	sort.Strings(uniq)

	vec := make([]queryTerm, 0, len(uniq))
	var norm float64
	extra := len(m.vocab)
	for _, t := range uniq {
		col, ok := m.vocab[t]
		df := 0
		if ok {
			df = m.df[col]
		} else {
			col = extra
			extra++
		}
		w := float64(counts[t]) * m.idf(df)
		vec = append(vec, queryTerm{col: col, weight: w})
		norm += w * w
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].col < vec[j].col })
	return vec, math.Sqrt(norm)
}

// idf uses the smoothed formulation ln(N/(1+df)) + 1 over the corpus size.
func (m *Matcher) idf(df int) float64 {
	n := m.corpus.Len()
	if n == 0 {
		return 0
	}
	return math.Log(float64(n)/float64(1+df)) + 1
}

// tokenize produces word n-grams of length 1..ngramMax from normalized text.
func tokenize(normalized string) []string {
	words := strings.Fields(normalized)
	if len(words) == 0 {
		return nil
	}
	terms := make([]string, 0, len(words)*ngramMax)
	for n := 1; n <= ngramMax; n++ {
		for i := 0; i+n <= len(words); i++ {
			terms = append(terms, strings.Join(words[i:i+n], " "))
		}
	}
	return terms
}
