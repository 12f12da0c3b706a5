package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CacheHeader tells clients whether a response was served from cache.
const CacheHeader = "X-Cache"

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type recordingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache keeps successful GET responses in memory for a fixed time.
type ResponseCache struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewResponseCache creates a cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		store: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Purge drops every cached response.
func (rc *ResponseCache) Purge() {
	rc.store.Flush()
}

// Handler serves cached responses and records fresh 2xx ones. The key is
// the full request URI so different query strings are cached apart.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if v, found := rc.store.Get(key); found {
			cached := v.(cachedResponse)
			for k, vals := range cached.headers {
				c.Writer.Header()[k] = vals
			}
			c.Writer.Header().Set(CacheHeader, "HIT")
			c.Writer.WriteHeader(cached.status)
			_, _ = c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		c.Writer.Header().Set(CacheHeader, "MISS")
		rec := &recordingWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		if status := rec.Status(); status >= 200 && status < 300 {
			headers := rec.Header().Clone()
			headers.Del(CacheHeader)
			rc.store.Set(key, cachedResponse{
				status:  status,
				headers: headers,
				body:    rec.body.Bytes(),
			}, rc.ttl)
		}
	}
}
