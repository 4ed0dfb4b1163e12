package embedder

// Stats is a snapshot of generation counters with derived rates.
type Stats struct {
	TotalRequests       int64   `json:"total_requests"`
	SuccessfulRequests  int64   `json:"successful_requests"`
	FailedRequests      int64   `json:"failed_requests"`
	TotalTokens         int64   `json:"total_tokens"`
	TotalCost           float64 `json:"total_cost"`
	SuccessRate         float64 `json:"success_rate"`
	AvgTokensPerRequest float64 `json:"avg_tokens_per_request"`
}

// Stats returns a snapshot of the embedder's counters.
func (e *Embedder) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		TotalRequests:      e.totalRequests,
		SuccessfulRequests: e.successfulRequests,
		FailedRequests:     e.failedRequests,
		TotalTokens:        e.totalTokens,
		TotalCost:          e.totalCost,
	}
	if e.totalRequests > 0 {
		s.SuccessRate = float64(e.successfulRequests) / float64(e.totalRequests)
		s.AvgTokensPerRequest = float64(e.totalTokens) / float64(e.totalRequests)
	}
	return s
}

// ResetStats zeroes all counters.
func (e *Embedder) ResetStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalRequests = 0
	e.successfulRequests = 0
	e.failedRequests = 0
	e.totalTokens = 0
	e.totalCost = 0
}

func (e *Embedder) recordSuccess(tokens int, cost float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalRequests++
	e.successfulRequests++
	e.totalTokens += int64(tokens)
	e.totalCost += cost
}

func (e *Embedder) recordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalRequests++
	e.failedRequests++
}
