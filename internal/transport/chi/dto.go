package chi

import (
	"encoding/json"

	dombatch "github.com/kailas-cloud/semsearch/internal/domain/batch"
	domdoc "github.com/kailas-cloud/semsearch/internal/domain/document"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

// Error codes returned in the error envelope.
const (
	codeBadRequest       = "bad_request"
	codeValidation       = "validation_failed"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeRateLimited      = "rate_limited"
	codeEmbedding        = "embedding_provider_error"
	codeStore            = "store_error"
	codeInternal         = "internal_error"
)

type insertRequest struct {
	Document *string `json:"document"`
}

type bulkInsertRequest struct {
	Documents []json.RawMessage `json:"documents"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit"`
}

type dataResponse struct {
	Data any `json:"data"`
}

type errorBody struct {
	Code    string `json:"code"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type insertResponse struct {
	ID int64 `json:"id"`
}

type deleteResponse struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

type documentItem struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

type searchResultItem struct {
	ID         int64   `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

type bulkSuccessItem struct {
	Index   int    `json:"index"`
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

type bulkErrorItem struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
}

type bulkOutcome struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Results    []bulkSuccessItem `json:"results"`
	Errors     []bulkErrorItem   `json:"errors"`
	StoreError *string           `json:"store_error,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func documentsToDTO(docs []domdoc.Document) []documentItem {
	items := make([]documentItem, len(docs))
	for i := range docs {
		items[i] = documentItem{ID: docs[i].ID(), Content: docs[i].Content()}
	}
	return items
}

func resultsToDTO(results []result.Result) []searchResultItem {
	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = searchResultItem{
			ID:         results[i].ID(),
			Content:    results[i].Content(),
			Similarity: results[i].Similarity(),
		}
	}
	return items
}

func outcomeToDTO(o *dombatch.Outcome) bulkOutcome {
	out := bulkOutcome{
		Total:      o.Total,
		Successful: o.Successful,
		Failed:     o.Failed,
		Results:    make([]bulkSuccessItem, len(o.Results)),
		Errors:     make([]bulkErrorItem, len(o.Errors)),
	}
	for i, r := range o.Results {
		out.Results[i] = bulkSuccessItem{Index: r.Index, ID: r.ID, Content: r.Content}
	}
	for i, e := range o.Errors {
		out.Errors[i] = bulkErrorItem{Index: e.Index, Content: e.Content, Stage: string(e.Stage), Reason: e.Reason}
	}
	if o.StoreError != "" {
		msg := o.StoreError
		out.StoreError = &msg
	}
	return out
}
