package schema

import (
	"encoding/json"
	"time"
)

// Tag types assigned by the tag classifier.
const (
	TagLicense   = "license"
	TagDataset   = "dataset"
	TagLanguage  = "language"
	TagFramework = "framework"
	TagGeneral   = "general"
)

// RelationUnknown is the lineage kind used when a base_model tag does not
// name one.
const RelationUnknown = "unknown"

// MaxFilesPerModel caps the number of FileEntry rows kept per model.
const MaxFilesPerModel = 50

// Model is the primary catalog entity, one per hub repository.
type Model struct {
	ID                 string          `db:"id"`
	Author             *string         `db:"author"`
	ModelID            string          `db:"model_id"`
	PipelineTag        *string         `db:"pipeline_tag"`
	LibraryName        *string         `db:"library_name"`
	Likes              int64           `db:"likes"`
	Downloads          int64           `db:"downloads"`
	DownloadsAllTime   int64           `db:"downloads_all_time"`
	TrendingScore      float64         `db:"trending_score"`
	CreatedAt          *time.Time      `db:"created_at"`
	LastModified       *time.Time      `db:"last_modified"`
	Gated              bool            `db:"gated"`
	Private            bool            `db:"private"`
	SHA                *string         `db:"sha"`
	SecurityRepoStatus *string         `db:"security_repo_status"`
	HasBaseModel       bool            `db:"has_base_model"`
	DerivativeCount    int64           `db:"derivative_count"`
	Metadata           json.RawMessage `db:"metadata"`
}

// Tag is one classified label of a model.
type Tag struct {
	ModelID string `db:"model_id"`
	Tag     string `db:"tag"`
	TagType string `db:"tag_type"`
}

// LineageRelation records that DerivativeID was derived from BaseModelID.
type LineageRelation struct {
	DerivativeID string `db:"derivative_id"`
	BaseModelID  string `db:"base_model_id"`
	RelationType string `db:"relation_type"` // finetune, adapter, quantized, merge, unknown
}

// DatasetRelation records a dataset a model declares it was trained on.
type DatasetRelation struct {
	ModelID     string `db:"model_id"`
	DatasetName string `db:"dataset_name"`
}

// FileEntry is one file of a model repository. Only Filename is guaranteed;
// the rest is unavailable when the listing was recovered from its debug form.
type FileEntry struct {
	ModelID  string  `db:"model_id"`
	Filename string  `db:"filename"`
	Size     *int64  `db:"size"`
	BlobID   *string `db:"blob_id"`
	LFS      *bool   `db:"lfs"`
}

// Entry is a normalized model together with every child row derived from
// it. All derivation happens before the entry reaches storage, so Model
// already carries the final HasBaseModel flag.
type Entry struct {
	Model    Model
	Tags     []Tag
	Lineage  []LineageRelation
	Datasets []DatasetRelation
	Files    []FileEntry
}
