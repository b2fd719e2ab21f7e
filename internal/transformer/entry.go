package transformer

import (
	"modelcatalog/internal/schema"
)

// BuildEntry normalizes obj and derives every child row. Tags are classified
// before the entry is returned, so Model.HasBaseModel already reflects all
// base_model tags when the parent row is written.
func BuildEntry(obj map[string]any, raw []byte) (*schema.Entry, error) {
	m, err := Normalize(obj, raw)
	if err != nil {
		return nil, err
	}
	e := &schema.Entry{Model: *m}
	id := m.ID

	for _, tag := range tagList(obj["tags"]) {
		e.Tags = append(e.Tags, schema.Tag{ModelID: id, Tag: tag, TagType: ClassifyTag(tag)})

		if kind, base, ok := ParseLineage(tag); ok {
			e.Model.HasBaseModel = true
			e.Lineage = append(e.Lineage, schema.LineageRelation{
				DerivativeID: id,
				BaseModelID:  base,
				RelationType: kind,
			})
			continue
		}
		if name, ok := DatasetName(tag); ok {
			e.Datasets = append(e.Datasets, schema.DatasetRelation{ModelID: id, DatasetName: name})
		}
	}

	for _, f := range DecodeFiles(obj["siblings"]) {
		f.ModelID = id
		e.Files = append(e.Files, f)
	}
	return e, nil
}

// tagList keeps the non-empty string elements of an array value.
func tagList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			items = make([]any, len(ss))
			for i, s := range ss {
				items[i] = s
			}
		} else {
			return nil
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
