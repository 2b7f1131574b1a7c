// Package rerank provides an offline reranker for the precision pass.
package rerank

import (
	"context"
	"math"
	"sort"

	"docsum/internal/textutil"
)

// Lexical scores candidates by token overlap with the query using the
// Ochiai coefficient |A∩B| / sqrt(|A||B|). Ties keep the input order, which
// is the dense-search order.
type Lexical struct{}

func NewLexical() *Lexical { return &Lexical{} }

func (Lexical) Rerank(ctx context.Context, query string, docs []string, topN int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qset := textutil.TokenSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(docs))
	for i, d := range docs {
		scores[i] = pair{i, overlapOchiai(qset, textutil.TokenSet(d))}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topN <= 0 || topN > len(scores) {
		topN = len(scores)
	}
	out := make([]int, topN)
	for i := 0; i < topN; i++ {
		out[i] = scores[i].idx
	}
	return out, nil
}

func overlapOchiai(qset, dset map[string]struct{}) float64 {
	if len(qset) == 0 || len(dset) == 0 {
		return 0
	}
	inter := 0
	for t := range dset {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(dset)))
}
