package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"modelcatalog/internal/schema"
)

func TestClassifyTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag  string
		want string
	}{
		{"license:mit", schema.TagLicense},
		{"license:", schema.TagLicense},
		{"dataset:squad", schema.TagDataset},
		{"en", schema.TagLanguage},
		{"ZH", schema.TagLanguage},
		{"日本", schema.TagLanguage},
		{"e1", schema.TagGeneral},
		{"eng", schema.TagGeneral},
		{"pytorch", schema.TagFramework},
		{"transformers", schema.TagFramework},
		{"jax", schema.TagFramework},
		{"PyTorch", schema.TagGeneral},
		{"base_model:finetune:org/name", schema.TagGeneral},
		{"text-generation", schema.TagGeneral},
		{"region:us", schema.TagGeneral},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ClassifyTag(tc.tag), tc.tag)
	}
}

func TestParseLineage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag      string
		wantKind string
		wantID   string
		wantOK   bool
	}{
		{"base_model:finetune:org/name", "finetune", "org/name", true},
		{"base_model:org/name", schema.RelationUnknown, "org/name", true},
		{"base_model:quantized:org/name:v2", "quantized", "org/name:v2", true},
		{"base_model:adapter:org/name", "adapter", "org/name", true},
		{"dataset:squad", "", "", false},
		{"xbase_model:org/name", "", "", false},
	}

	for _, tc := range tests {
		kind, id, ok := ParseLineage(tc.tag)
		assert.Equal(t, tc.wantOK, ok, tc.tag)
		assert.Equal(t, tc.wantKind, kind, tc.tag)
		assert.Equal(t, tc.wantID, id, tc.tag)
	}
}

func TestDatasetName(t *testing.T) {
	t.Parallel()

	name, ok := DatasetName("dataset:openai/gsm8k")
	assert.True(t, ok)
	assert.Equal(t, "openai/gsm8k", name)

	_, ok = DatasetName("license:mit")
	assert.False(t, ok)
}
