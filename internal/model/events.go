package model

// ObjectEvent is the inbound "object created" notification, per spec.md §6.
type ObjectEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
}

// WriteMode selects how the Lakehouse Loader applies rows to the target
// table, per spec.md §4.M/§6.
type WriteMode string

const (
	WriteModeAppend    WriteMode = "APPEND"
	WriteModeOverwrite WriteMode = "OVERWRITE"
	WriteModeUpsert    WriteMode = "UPSERT"
)

// LoadRequest is the outbound message asking the Lakehouse Loader to
// merge a canonical Parquet file into a target table, per spec.md §6.
type LoadRequest struct {
	Type             string    `json:"type"`
	FileHash         string    `json:"file_hash"`
	ParquetURI       string    `json:"parquet_uri"`
	TargetNamespace  string    `json:"target_namespace"`
	TargetTable      string    `json:"target_table"`
	OriginalFileURI  string    `json:"original_file_uri"`
	WriteMode        WriteMode `json:"write_mode"`
	RowCount         int64     `json:"row_count"`
	UpsertKeys       []string  `json:"upsert_keys,omitempty"`
}

// NewLoadRequest fills in the documented defaults: write_mode=APPEND,
// upsert_keys=[].
func NewLoadRequest(fileHash, parquetURI, namespace, table, originalURI string, rowCount int64) LoadRequest {
	return LoadRequest{
		Type:            "LOAD_REQUEST",
		FileHash:        fileHash,
		ParquetURI:      parquetURI,
		TargetNamespace: namespace,
		TargetTable:     table,
		OriginalFileURI: originalURI,
		WriteMode:       WriteModeAppend,
		RowCount:        rowCount,
		UpsertKeys:      []string{},
	}
}

// EventType enumerates the outbound completion-event kinds, per spec.md §6.
type EventType string

const (
	EventAgentCleaningComplete EventType = "AGENT_CLEANING_COMPLETE"
	EventAgentCleaningFailed   EventType = "AGENT_CLEANING_FAILED"
	EventLoaderComplete        EventType = "LOADER_BIGQUERY_COMPLETE"
	EventLoaderFailed          EventType = "LOADER_BIGQUERY_FAILED"
)

// CompletionEvent is the outbound pipeline-outcome notification.
// Stage-specific fields are carried in Fields rather than being enumerated
// as a fixed struct, since the event's shape genuinely varies by Type.
type CompletionEvent struct {
	Type     EventType      `json:"type"`
	FileHash string         `json:"file_hash"`
	Fields   map[string]any `json:"-"`
}

// MarshalMap flattens the event into a single map for JSON encoding,
// merging the stage-specific fields alongside type/file_hash.
func (e CompletionEvent) MarshalMap() map[string]any {
	out := map[string]any{
		"type":      e.Type,
		"file_hash": e.FileHash,
	}
	for k, v := range e.Fields {
		out[k] = v
	}
	return out
}
