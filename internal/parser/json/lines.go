// Package json streams newline-delimited JSON (NDJSON/JSONL) one line at a
// time. Memory use is bounded by the longest line, not the input size.
//
// Each non-blank line is decoded into a map[string]any with numbers kept as
// json.Number, so callers decide how to coerce counters. A line that fails
// to decode is reported on the same channel with Err set; it never stops the
// stream.
package json

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

const utf8BOM = "\uFEFF"

// ErrNotObject is returned for lines holding a JSON value other than an object.
var ErrNotObject = errors.New("line is not a JSON object")

// Line is one physical line of input. Blank lines are never emitted, but
// they still advance Number.
type Line struct {
	Number int            // 1-based physical line number
	Raw    []byte         // line bytes without the line terminator
	Object map[string]any // nil when Err != nil
	Err    error
}

// Stats summarize a finished stream.
type Stats struct {
	Lines int // physical lines read, blank ones included
	Blank int
}

// StreamLines reads r until EOF and sends every non-blank line to out. It
// returns the stats and a non-nil error only for read failures or context
// cancellation; decode failures travel inside Line.Err.
//
// onLine, when non-nil, is called with the running Stats after every
// physical line, blank ones included, once that line has been handed off.
// The function does not close out.
func StreamLines(ctx context.Context, r io.Reader, out chan<- Line, onLine func(Stats)) (Stats, error) {
	var st Stats
	br := bufio.NewReaderSize(r, 1<<20)

	for {
		raw, readErr := br.ReadBytes('\n')
		if len(raw) > 0 {
			st.Lines++
			if st.Lines == 1 {
				raw = bytes.TrimPrefix(raw, []byte(utf8BOM))
			}
			raw = bytes.TrimRight(raw, "\r\n")
			if len(bytes.TrimSpace(raw)) == 0 {
				st.Blank++
			} else {
				ln := Line{Number: st.Lines, Raw: raw}
				ln.Object, ln.Err = DecodeObject(raw)
				select {
				case out <- ln:
				case <-ctx.Done():
					return st, ctx.Err()
				}
			}
			if onLine != nil {
				onLine(st)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return st, nil
			}
			return st, errors.Wrapf(readErr, "read line %d", st.Lines+1)
		}
	}
}

// DecodeObject decodes exactly one JSON object from b. Trailing data after
// the object is an error.
func DecodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON object")
	}
	return obj, nil
}
