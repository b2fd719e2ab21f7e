// Package transformer converts raw catalog objects, as decoded from one
// JSONL line, into schema.Entry values: a normalized model plus the tag,
// lineage, dataset and file rows derived from it.
//
// Normalization is lenient by policy. Missing or null counters become zero,
// unparsable timestamps become absent and unknown file-list shapes become an
// empty list. Only a missing id or a counter of an impossible type is an
// error.
package transformer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"modelcatalog/internal/schema"
)

// ErrMissingID is returned for objects without a usable "id".
var ErrMissingID = errors.New("record has no id")

// Normalize extracts the typed model attributes from obj. raw is stored
// verbatim as the model's metadata; when empty, obj is re-encoded instead.
// HasBaseModel and DerivativeCount are left at their zero values.
func Normalize(obj map[string]any, raw []byte) (*schema.Model, error) {
	id, _ := obj["id"].(string)
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingID
	}

	m := &schema.Model{
		ID:                 id,
		Author:             optionalString(obj["author"]),
		ModelID:            id,
		PipelineTag:        optionalString(obj["pipeline_tag"]),
		LibraryName:        optionalString(obj["library_name"]),
		CreatedAt:          ParseTimestamp(obj["created_at"]),
		Gated:              truthy(obj["gated"]),
		Private:            truthy(obj["private"]),
		SHA:                optionalString(obj["sha"]),
		SecurityRepoStatus: optionalString(obj["security_repo_status"]),
	}
	if s := firstString(obj, "modelId", "model_id"); s != "" {
		m.ModelID = s
	}

	lastModified := obj["last_modified"]
	if s, _ := lastModified.(string); lastModified == nil || s == "" {
		lastModified = obj["lastModified"]
	}
	m.LastModified = ParseTimestamp(lastModified)

	var err error
	if m.Likes, err = counter(obj, "likes"); err != nil {
		return nil, err
	}
	if m.Downloads, err = counter(obj, "downloads"); err != nil {
		return nil, err
	}
	if m.DownloadsAllTime, err = counter(obj, "downloads_all_time"); err != nil {
		return nil, err
	}
	if m.TrendingScore, err = score(obj, "trending_score"); err != nil {
		return nil, err
	}

	if len(raw) > 0 {
		m.Metadata = append(json.RawMessage(nil), raw...)
	} else if m.Metadata, err = json.Marshal(obj); err != nil {
		return nil, errors.Wrap(err, "encode metadata")
	}
	return m, nil
}

// counter reads an integer counter; absent or null is 0.
func counter(obj map[string]any, key string) (int64, error) {
	v := obj[key]
	if v == nil {
		return 0, nil
	}
	n, ok := optionalInt(v)
	if !ok {
		return 0, errors.Errorf("field %q: not an int64 integer: %v", key, v)
	}
	return n, nil
}

// score reads a float counter; absent or null is 0.
func score(obj map[string]any, key string) (float64, error) {
	v := obj[key]
	if v == nil {
		return 0, nil
	}
	f, ok := optionalFloat(v)
	if !ok {
		return 0, errors.Errorf("field %q: not a number: %v", key, v)
	}
	return f, nil
}

func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// optionalInt accepts JSON numbers in every form encoding/json can produce
// plus numeric strings. Floats are truncated toward zero; values outside the
// int64 range are rejected.
func optionalInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return truncate(f)
		}
	case float64:
		return truncate(n)
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return truncate(f)
		}
	}
	return 0, false
}

// truncate converts f when it fits in an int64. 2^63 itself is out of range.
func truncate(f float64) (int64, bool) {
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func optionalFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// truthy reads a flag. The hub reports gating as "auto"/"manual", so any
// string other than "" or "false" counts as set.
func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.TrimSpace(strings.ToLower(b))
		return s != "" && s != "false"
	}
	return false
}
