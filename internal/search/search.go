package search

// Result is a single search hit returned to the staff panel.
type Result struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Snippet    string `json:"snippet"`
	Department string `json:"department"`
	Status     string `json:"status"`
}

// Query describes a search request. Department narrows results to one
// department's complaints; empty means all the caller can see.
type Query struct {
	Text       string
	Department string
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over complaints.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ComplaintRecord is the data we index for one complaint.
type ComplaintRecord struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Message    string `json:"message"`
	Department string `json:"department"`
	Status     string `json:"status"`
}
