package domain

// Admin synchronization actions.
const (
	ActionCreateIndex   = "create-index"
	ActionIndexAll      = "index-all"
	ActionReindexAll    = "reindex-all"
	ActionIndexProduct  = "index-product"
	ActionUpdateProduct = "update-product"
	ActionDeleteProduct = "delete-product"
)

// ValidActions returns every action accepted by the sync endpoint.
func ValidActions() []string {
	return []string{
		ActionCreateIndex, ActionIndexAll, ActionReindexAll,
		ActionIndexProduct, ActionUpdateProduct, ActionDeleteProduct,
	}
}

// ReindexPhase is a state of the reindex-all state machine.
type ReindexPhase string

const (
	PhaseIdle          ReindexPhase = "idle"
	PhaseDeletingIndex ReindexPhase = "deleting_index"
	PhaseCreatingIndex ReindexPhase = "creating_index"
	PhaseBulkIndexing  ReindexPhase = "bulk_indexing"
	PhaseDone          ReindexPhase = "done"
	PhaseFailed        ReindexPhase = "failed"
)

// SyncStatus compares the index against the catalog. It is derived on
// every request and never persisted.
type SyncStatus struct {
	Connected         bool         `json:"connected"`
	IndexExists       bool         `json:"indexExists"`
	DocumentsIndexed  int          `json:"documentsIndexed"`
	ProductsInCatalog int          `json:"productsInCatalog"`
	Synced            bool         `json:"synced"`
	ReindexPhase      ReindexPhase `json:"reindexPhase"`
}

// SyncResult is the outcome of a synchronization action.
type SyncResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Indexed int           `json:"indexed,omitempty"`
	Failed  []BulkFailure `json:"failed,omitempty"`
}
