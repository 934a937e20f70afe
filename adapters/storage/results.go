package storage

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/Skryldev/image-compressor/core"
)

// DefaultBaseName is the file stem used for downloads.
const DefaultBaseName = "compressed-image"

// ResultKey names the object for a result: <bucket>/<base>.<ext>, where the
// extension follows the format the run actually produced.
func ResultKey(bucket, base string, r *core.CompressionResult) core.StorageKey {
	if base == "" {
		base = DefaultBaseName
	}
	return core.StorageKey{Bucket: bucket, Path: fmt.Sprintf("%s.%s", base, r.Extension())}
}

// SaveResult writes the encoded bytes with a metadata side-car describing the
// run.  Extra metadata entries are merged in.
func SaveResult(ctx context.Context, s core.StorageAdapter, key core.StorageKey, r *core.CompressionResult, extra map[string]string) error {
	meta := map[string]string{
		"content_type": r.MIMEType(),
		"strategy":     string(r.Strategy),
		"format":       string(r.Format),
		"quality":      strconv.FormatFloat(r.Quality, 'f', 2, 64),
		"width":        strconv.Itoa(r.Width),
		"height":       strconv.Itoa(r.Height),
		"bytes":        strconv.FormatInt(r.ByteSize(), 10),
	}
	if r.PaletteSize > 0 {
		meta["palette_size"] = strconv.Itoa(r.PaletteSize)
	}
	for k, v := range extra {
		meta[k] = v
	}
	return s.Put(ctx, key, bytes.NewReader(r.Data), meta)
}
