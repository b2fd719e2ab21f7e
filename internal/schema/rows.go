package schema

import (
	"time"
)

// The *Row helpers return values aligned with the matching *Columns slice.
// Nil pointers become untyped nil so every driver encodes them as NULL.

// ModelRow aligns m with ModelColumns. now stamps indexed_at and updated_at.
func ModelRow(m *Model, now time.Time) []any {
	var metadata any
	if len(m.Metadata) > 0 {
		metadata = string(m.Metadata)
	}
	return []any{
		m.ID,
		str(m.Author),
		m.ModelID,
		str(m.PipelineTag),
		str(m.LibraryName),
		m.Likes,
		m.Downloads,
		m.DownloadsAllTime,
		m.TrendingScore,
		ts(m.CreatedAt),
		ts(m.LastModified),
		m.Gated,
		m.Private,
		str(m.SHA),
		str(m.SecurityRepoStatus),
		m.HasBaseModel,
		m.DerivativeCount,
		metadata,
		now,
		now,
	}
}

// TagRow aligns t with TagColumns.
func TagRow(t Tag) []any { return []any{t.ModelID, t.Tag, t.TagType} }

// LineageRow aligns r with LineageColumns.
func LineageRow(r LineageRelation) []any {
	return []any{r.DerivativeID, r.BaseModelID, r.RelationType}
}

// DatasetRow aligns r with DatasetColumns.
func DatasetRow(r DatasetRelation) []any { return []any{r.ModelID, r.DatasetName} }

// FileRow aligns f with FileColumns.
func FileRow(f FileEntry) []any {
	var size, blob, lfs any
	if f.Size != nil {
		size = *f.Size
	}
	if f.BlobID != nil {
		blob = *f.BlobID
	}
	if f.LFS != nil {
		lfs = *f.LFS
	}
	return []any{f.ModelID, f.Filename, size, blob, lfs}
}

// ChildRows flattens every child row of e into (table, columns, values)
// triples in insert order: tags, lineage, datasets, files.
func ChildRows(e *Entry) []TableRow {
	out := make([]TableRow, 0, len(e.Tags)+len(e.Lineage)+len(e.Datasets)+len(e.Files))
	for _, t := range e.Tags {
		out = append(out, TableRow{Table: TableTags, Columns: TagColumns, Values: TagRow(t)})
	}
	for _, r := range e.Lineage {
		out = append(out, TableRow{Table: TableLineage, Columns: LineageColumns, Values: LineageRow(r)})
	}
	for _, d := range e.Datasets {
		out = append(out, TableRow{Table: TableDatasets, Columns: DatasetColumns, Values: DatasetRow(d)})
	}
	for _, f := range e.Files {
		out = append(out, TableRow{Table: TableSiblings, Columns: FileColumns, Values: FileRow(f)})
	}
	return out
}

// TableRow is one row destined for Table.
type TableRow struct {
	Table   string
	Columns []string
	Values  []any
}

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func ts(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
