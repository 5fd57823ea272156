package topics

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// minDocFreq drops terms that appear in fewer documents than this across
// the whole corpus.
const minDocFreq = 2

var wordPattern = regexp.MustCompile(`[a-z][a-z']+`)

var stopwords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"against": true, "all": true, "also": true, "am": true, "an": true,
	"and": true, "any": true, "are": true, "as": true, "at": true,
	"be": true, "because": true, "been": true, "before": true, "being": true,
	"below": true, "between": true, "both": true, "but": true, "by": true,
	"can": true, "could": true, "did": true, "do": true, "does": true,
	"doing": true, "down": true, "during": true, "each": true, "few": true,
	"for": true, "from": true, "further": true, "had": true, "has": true,
	"have": true, "having": true, "he": true, "her": true, "here": true,
	"hers": true, "him": true, "his": true, "how": true, "i": true,
	"if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "itself": true, "just": true, "like": true, "may": true,
	"me": true, "might": true, "more": true, "most": true, "my": true,
	"new": true, "no": true, "nor": true, "not": true, "now": true,
	"of": true, "off": true, "on": true, "once": true, "one": true,
	"only": true, "or": true, "other": true, "our": true, "out": true,
	"over": true, "own": true, "said": true, "same": true, "she": true,
	"should": true, "so": true, "some": true, "such": true, "than": true,
	"that": true, "the": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "those": true,
	"through": true, "to": true, "too": true, "under": true, "until": true,
	"up": true, "very": true, "was": true, "we": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"who": true, "whom": true, "why": true, "will": true, "with": true,
	"would": true, "you": true, "your": true, "yours": true,
}

// tokenize lowercases text and returns unigrams and bigrams, stopwords and
// short tokens removed (bigrams are built from the surviving unigrams).
func tokenize(text string) []string {
	raw := wordPattern.FindAllString(strings.ToLower(text), -1)

	var words []string
	for _, w := range raw {
		if len(w) > 2 && !stopwords[w] {
			words = append(words, w)
		}
	}

	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

// ClassKeywords computes class-based TF-IDF keywords: term frequency within
// each topic's concatenated documents, weighted against how many topics the
// term appears in. docs and assignments are parallel; outliers contribute
// nothing. Returns topic id -> top-k terms, highest score first.
func ClassKeywords(docs []string, assignments []int, topK int) map[int][]string {
	// Document frequency across individual documents, for the min_df cut.
	docFreq := make(map[string]int)
	docTerms := make([][]string, len(docs))
	for i, doc := range docs {
		terms := tokenize(doc)
		docTerms[i] = terms
		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}

	// Term counts per class.
	classCounts := make(map[int]map[string]int)
	classTotals := make(map[int]int)
	for i, topic := range assignments {
		if i >= len(docTerms) || topic < 0 {
			continue
		}
		counts, ok := classCounts[topic]
		if !ok {
			counts = make(map[string]int)
			classCounts[topic] = counts
		}
		for _, t := range docTerms[i] {
			if docFreq[t] < minDocFreq {
				continue
			}
			counts[t]++
			classTotals[topic]++
		}
	}

	// How many classes each surviving term appears in.
	classFreq := make(map[string]int)
	for _, counts := range classCounts {
		for t := range counts {
			classFreq[t]++
		}
	}
	numClasses := float64(len(classCounts))

	keywords := make(map[int][]string, len(classCounts))
	for topic, counts := range classCounts {
		type scored struct {
			term  string
			score float64
		}
		scores := make([]scored, 0, len(counts))
		total := float64(classTotals[topic])
		if total == 0 {
			continue
		}
		for t, count := range counts {
			tf := float64(count) / total
			idf := math.Log(1 + numClasses/float64(classFreq[t]))
			scores = append(scores, scored{term: t, score: tf * idf})
		}
		sort.Slice(scores, func(i, j int) bool {
			if scores[i].score != scores[j].score {
				return scores[i].score > scores[j].score
			}
			return scores[i].term < scores[j].term
		})

		top := make([]string, 0, topK)
		for i := 0; i < len(scores) && i < topK; i++ {
			top = append(top, scores[i].term)
		}
		keywords[topic] = top
	}
	return keywords
}
