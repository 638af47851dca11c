package middleware

import (
	"blog/services"
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type cachedPage struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type cachingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *cachingWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *cachingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func PageCacheKey(c *gin.Context) string {
	key := c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		key += "?" + c.Request.URL.RawQuery
	}
	return key
}

// CachePage serves successful GET and HEAD responses from cache for ttl.
// Writes elsewhere do not invalidate cached pages.
func CachePage(cache services.PageCache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if cache == nil || ttl <= 0 || (method != http.MethodGet && method != http.MethodHead) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := PageCacheKey(c)
		if raw, ok := cache.Get(ctx, key); ok {
			var page cachedPage
			if err := json.Unmarshal(raw, &page); err == nil {
				RecordCacheLookup(true)
				c.Header("X-Cache", "HIT")
				c.Data(page.Status, page.ContentType, page.Body)
				c.Abort()
				return
			}
			log.Printf("ERROR: broken page cache entry %s", key)
		}
		RecordCacheLookup(false)

		writer := &cachingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Header("X-Cache", "MISS")
		c.Next()

		if writer.Status() != http.StatusOK || method != http.MethodGet {
			return
		}
		raw, err := json.Marshal(cachedPage{
			Status:      writer.Status(),
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := cache.Set(ctx, key, raw, ttl); err != nil {
			log.Printf("ERROR: failed to cache %s: %v", key, err)
		}
	}
}
