package eval

import (
	"sort"
)

// EvaluationResult contains metrics for a single query.
type EvaluationResult struct {
	QueryID     string          `json:"query_id"`
	NDCG        map[int]float64 `json:"ndcg"`
	Recall      map[int]float64 `json:"recall"`
	Precision   map[int]float64 `json:"precision"`
	MRR         float64         `json:"mrr"`
	AP          float64         `json:"ap"`
	ERR         float64         `json:"err"`
	ResultCount int             `json:"result_count"`
}

// EvaluationSummary aggregates metrics across queries.
type EvaluationSummary struct {
	QueryCount    int             `json:"query_count"`
	MeanNDCG      map[int]float64 `json:"mean_ndcg"`
	MeanRecall    map[int]float64 `json:"mean_recall"`
	MeanPrecision map[int]float64 `json:"mean_precision"`
	MeanMRR       float64         `json:"mean_mrr"`
	MAP           float64         `json:"map"`
	MeanERR       float64         `json:"mean_err"`
}

// Evaluator scores ranked runs against relevance judgments.
type Evaluator struct {
	judgments map[string]map[string]int // queryID -> docID -> relevance
	threshold int
	maxGrade  int
}

// NewEvaluator creates an evaluator. Grades at or above threshold
// count as relevant for the threshold-based metrics.
func NewEvaluator(threshold int) *Evaluator {
	return &Evaluator{
		judgments: make(map[string]map[string]int),
		threshold: threshold,
		maxGrade:  1,
	}
}

// LoadQrels adds judgments from parsed qrels. The maximum grade seen
// fixes the ERR gain denominator.
func (e *Evaluator) LoadQrels(qrels []Qrel) {
	for _, q := range qrels {
		if e.judgments[q.QueryID] == nil {
			e.judgments[q.QueryID] = make(map[string]int)
		}
		e.judgments[q.QueryID][q.DocID] = q.Relevance
		if q.Relevance > e.maxGrade {
			e.maxGrade = q.Relevance
		}
	}
}

// Relevances maps a ranked doc ID list to grades. Unjudged documents
// get grade 0.
func (e *Evaluator) Relevances(queryID string, ranked []string) []int {
	qj := e.judgments[queryID]
	relevances := make([]int, len(ranked))
	for i, id := range ranked {
		if qj != nil {
			relevances[i] = qj[id]
		}
	}
	return relevances
}

// EvaluateQuery computes metrics for one query's ranked results at
// the given cutoffs.
func (e *Evaluator) EvaluateQuery(queryID string, ranked []string, ks []int) *EvaluationResult {
	relevances := e.Relevances(queryID, ranked)

	result := &EvaluationResult{
		QueryID:     queryID,
		NDCG:        make(map[int]float64),
		Recall:      make(map[int]float64),
		Precision:   make(map[int]float64),
		MRR:         MRR(relevances, e.threshold),
		AP:          AveragePrecision(relevances, e.threshold),
		ERR:         ERR(relevances, e.maxGrade),
		ResultCount: len(ranked),
	}

	for _, k := range ks {
		result.NDCG[k] = NDCG(relevances, k)
		result.Recall[k] = Recall(relevances, k, e.threshold)
		result.Precision[k] = Precision(relevances, k, e.threshold)
	}
	return result
}

// EvaluateRun groups a TREC run by query, orders each group by rank,
// and evaluates every judged query in the run.
func (e *Evaluator) EvaluateRun(entries []RunEntry, ks []int) []*EvaluationResult {
	byQuery := make(map[string][]RunEntry)
	var order []string
	for _, entry := range entries {
		if _, ok := byQuery[entry.QueryID]; !ok {
			order = append(order, entry.QueryID)
		}
		byQuery[entry.QueryID] = append(byQuery[entry.QueryID], entry)
	}

	results := make([]*EvaluationResult, 0, len(order))
	for _, qid := range order {
		group := byQuery[qid]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Rank < group[j].Rank
		})
		ranked := make([]string, len(group))
		for i, entry := range group {
			ranked[i] = entry.DocID
		}
		results = append(results, e.EvaluateQuery(qid, ranked, ks))
	}
	return results
}

// Summarize averages per-query results into a summary.
func (e *Evaluator) Summarize(results []*EvaluationResult) *EvaluationSummary {
	if len(results) == 0 {
		return &EvaluationSummary{}
	}

	summary := &EvaluationSummary{
		QueryCount:    len(results),
		MeanNDCG:      make(map[int]float64),
		MeanRecall:    make(map[int]float64),
		MeanPrecision: make(map[int]float64),
	}

	for _, r := range results {
		summary.MeanMRR += r.MRR
		summary.MAP += r.AP
		summary.MeanERR += r.ERR

		for k, v := range r.NDCG {
			summary.MeanNDCG[k] += v
		}
		for k, v := range r.Recall {
			summary.MeanRecall[k] += v
		}
		for k, v := range r.Precision {
			summary.MeanPrecision[k] += v
		}
	}

	n := float64(len(results))
	summary.MeanMRR /= n
	summary.MAP /= n
	summary.MeanERR /= n

	for k := range summary.MeanNDCG {
		summary.MeanNDCG[k] /= n
	}
	for k := range summary.MeanRecall {
		summary.MeanRecall[k] /= n
	}
	for k := range summary.MeanPrecision {
		summary.MeanPrecision[k] /= n
	}
	return summary
}
