package restapi

import (
	"compress/gzip"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// compressionMinSize keeps status responses uncompressed; sheet dumps grow
// past it after a few cycles.
const compressionMinSize = 1024

// NewCompressionMiddleware gzips responses of at least minSize bytes for
// clients that accept it.
func NewCompressionMiddleware(minSize int) func(http.Handler) http.Handler {
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(minSize),
		gzhttp.CompressionLevel(gzip.DefaultCompression),
	)
	if err != nil {
		return func(next http.Handler) http.Handler {
			return gzhttp.GzipHandler(next)
		}
	}
	return func(next http.Handler) http.Handler {
		return wrapper(next)
	}
}
