package transformer

import (
	"regexp"

	"modelcatalog/internal/schema"
)

// FileListDecoder turns the raw "siblings" value into file entries. A
// decoder reports ok=false when it does not understand the shape so the
// next decoder can try.
type FileListDecoder interface {
	Decode(v any) (files []schema.FileEntry, ok bool)
}

// DefaultFileDecoders lists the decoders tried by DecodeFiles: the
// structured form first, the debug-string fallback second.
var DefaultFileDecoders = []FileListDecoder{structuredFiles{}, debugStringFiles{}}

// DecodeFiles runs decoders in order and returns the first accepted result,
// capped at schema.MaxFilesPerModel entries. Unknown shapes and decoder
// panics produce an empty list.
func DecodeFiles(v any, decoders ...FileListDecoder) (files []schema.FileEntry) {
	if v == nil {
		return nil
	}
	if len(decoders) == 0 {
		decoders = DefaultFileDecoders
	}
	defer func() {
		if recover() != nil {
			files = nil
		}
	}()
	for _, d := range decoders {
		if out, ok := d.Decode(v); ok {
			if len(out) > schema.MaxFilesPerModel {
				out = out[:schema.MaxFilesPerModel]
			}
			return out
		}
	}
	return nil
}

// structuredFiles accepts a list of per-file objects as returned by the hub
// API ("rfilename", "size", "blobId", "lfs") or already normalized
// ("filename", "size", "blob_id", "lfs"). Only the first MaxFilesPerModel
// items are considered; among those, items without a filename are skipped.
type structuredFiles struct{}

func (structuredFiles) Decode(v any) ([]schema.FileEntry, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	if len(items) > schema.MaxFilesPerModel {
		items = items[:schema.MaxFilesPerModel]
	}
	out := make([]schema.FileEntry, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := firstString(obj, "filename", "rfilename")
		if name == "" {
			continue
		}
		f := schema.FileEntry{Filename: name}
		if n, ok := optionalInt(obj["size"]); ok {
			f.Size = &n
		}
		if b := firstString(obj, "blob_id", "blobId"); b != "" {
			f.BlobID = &b
		}
		switch lfs := obj["lfs"].(type) {
		case bool:
			f.LFS = &lfs
		case map[string]any:
			t := true
			f.LFS = &t
		}
		out = append(out, f)
	}
	return out, true
}

// rfilenamePattern matches the filename field of the hub client's debug
// representation, e.g. "[RepoSibling(rfilename='a.bin', size=None), ...]".
var rfilenamePattern = regexp.MustCompile(`rfilename='([^']+)'`)

// debugStringFiles recovers filenames from a stringified sibling list. Size,
// blob id and LFS flag are not recoverable from that form.
type debugStringFiles struct{}

func (debugStringFiles) Decode(v any) ([]schema.FileEntry, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	matches := rfilenamePattern.FindAllStringSubmatch(s, -1)
	out := make([]schema.FileEntry, 0, len(matches))
	for _, m := range matches {
		out = append(out, schema.FileEntry{Filename: m[1]})
	}
	return out, true
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
