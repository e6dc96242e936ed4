package semsearch

// Document is a stored document.
type Document struct {
	ID      int64
	Content string
}

// SearchResult is a single search hit. Similarity is in [0, 1].
type SearchResult struct {
	ID         int64
	Content    string
	Similarity float64
}

// SearchResponse is a ranked result set.
type SearchResponse struct {
	Results []SearchResult
	Cached  bool // served from the result cache
}

// BulkResult is the accounting of a bulk insert.
// Successful + Failed always equals Total.
type BulkResult struct {
	Total      int
	Successful int
	Failed     int
	Stored     []BulkStored
	Errors     []BulkError
	StoreError string // set when the final write failed for every survivor
}

// BulkStored is one stored item, identified by its position in the input.
type BulkStored struct {
	Index   int
	ID      int64
	Content string
}

// BulkError is one rejected item. Stage is "validation", "embedding" or "store".
type BulkError struct {
	Index   int
	Content string
	Stage   string
	Reason  string
}
