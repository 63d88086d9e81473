package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes the response compression middleware.
type BrotliConfig struct {
	Quality   int
	Skipper   func(c *gin.Context) bool
	MinLength int
}

// DefaultBrotliConfig compresses bodies of at least 1 KiB at the library's
// default quality. Exam payloads (passages, option lists) compress well;
// small status responses are not worth the CPU.
var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// brotliWriter buffers the response until MinLength is reached, then switches
// to compressed output. Responses that never reach the threshold go out as
// plain text with no Content-Encoding header.
type brotliWriter struct {
	gin.ResponseWriter
	bw        *brotli.Writer
	pending   []byte
	minLength int
	active    bool
}

func (w *brotliWriter) Write(p []byte) (int, error) {
	if w.active {
		return w.bw.Write(p)
	}

	w.pending = append(w.pending, p...)
	if len(w.pending) < w.minLength {
		return len(p), nil
	}

	w.Header().Set("Content-Encoding", "br")
	w.Header().Del("Content-Length")
	w.active = true
	if _, err := w.bw.Write(w.pending); err != nil {
		return len(p), err
	}
	w.pending = nil
	return len(p), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush supports streaming handlers: anything still buffered goes out
// uncompressed, since the stream must not stall waiting for the threshold.
func (w *brotliWriter) Flush() {
	if w.active {
		_ = w.bw.Flush()
	} else if len(w.pending) > 0 {
		_, _ = w.ResponseWriter.Write(w.pending)
		w.pending = nil
	}
	w.ResponseWriter.Flush()
}

// Brotli returns the compression middleware with default settings.
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

// BrotliWithConfig returns the compression middleware with explicit settings.
func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		// WebSocket upgrades hijack the connection; wrapping the writer
		// would break the handshake.
		if isUpgrade(c.Request) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}
		if cfg.Skipper != nil && cfg.Skipper(c) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		w := &brotliWriter{
			ResponseWriter: c.Writer,
			bw:             brotli.NewWriterLevel(c.Writer, cfg.Quality),
			minLength:      cfg.MinLength,
		}
		c.Writer = w
		c.Next()
		c.Writer = w.ResponseWriter

		if w.active {
			_ = w.bw.Close()
		} else if len(w.pending) > 0 {
			_, _ = w.ResponseWriter.Write(w.pending)
		}
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.ToLower(enc)) == "br" {
			return true
		}
	}
	return false
}
