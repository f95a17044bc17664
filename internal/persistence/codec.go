package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/petrijr/orderdesk/pkg/api"
)

// EncodeOptions serializes a line item's option snapshot using encoding/gob.
// An empty snapshot encodes to nil so the column stays NULL.
func EncodeOptions(opts []api.LineOption) ([]byte, error) {
	if len(opts) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(opts); err != nil {
		return nil, fmt.Errorf("encode line options: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeOptions is the inverse of EncodeOptions.
func DecodeOptions(data []byte) ([]api.LineOption, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var opts []api.LineOption
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&opts); err != nil {
		return nil, fmt.Errorf("decode line options: %w", err)
	}
	return opts, nil
}

func nanosOrNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func timeFromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func timePtrFromNanos(n *int64) *time.Time {
	if n == nil {
		return nil
	}
	t := timeFromNanos(*n)
	return &t
}
