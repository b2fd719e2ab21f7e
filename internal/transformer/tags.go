package transformer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"modelcatalog/internal/schema"
)

// Reserved tag prefixes.
const (
	LicensePrefix   = "license:"
	DatasetPrefix   = "dataset:"
	BaseModelPrefix = "base_model:"
)

var frameworks = map[string]struct{}{
	"transformers": {},
	"diffusers":    {},
	"peft":         {},
	"pytorch":      {},
	"tensorflow":   {},
	"jax":          {},
}

// ClassifyTag assigns exactly one type to tag. Rules are checked in order:
// license prefix, dataset prefix, two letters (ISO-639-1 shaped), known
// framework, general.
func ClassifyTag(tag string) string {
	switch {
	case strings.HasPrefix(tag, LicensePrefix):
		return schema.TagLicense
	case strings.HasPrefix(tag, DatasetPrefix):
		return schema.TagDataset
	case isLanguageCode(tag):
		return schema.TagLanguage
	}
	if _, ok := frameworks[tag]; ok {
		return schema.TagFramework
	}
	return schema.TagGeneral
}

func isLanguageCode(tag string) bool {
	if utf8.RuneCountInString(tag) != 2 {
		return false
	}
	for _, r := range tag {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ParseLineage extracts the relation kind and base model id from a
// base_model tag. ok is false when tag does not carry the prefix.
//
//	base_model:finetune:org/name -> ("finetune", "org/name")
//	base_model:org/name          -> ("unknown", "org/name")
func ParseLineage(tag string) (kind, baseID string, ok bool) {
	rest, found := strings.CutPrefix(tag, BaseModelPrefix)
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, ":")
	if len(parts) >= 2 {
		return parts[0], strings.Join(parts[1:], ":"), true
	}
	return schema.RelationUnknown, parts[0], true
}

// DatasetName returns the dataset referenced by a dataset tag.
func DatasetName(tag string) (string, bool) {
	return strings.CutPrefix(tag, DatasetPrefix)
}
