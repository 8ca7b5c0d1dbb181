package sessionlog

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedReader wraps a Reader with a short-lived read-through cache so
// repeated transcript reads (list views, polling clients) do not hit disk on
// every request.
type CachedReader struct {
	reader *Reader
	cache  *gocache.Cache
}

// NewCachedReader creates a CachedReader with the given entry TTL.
func NewCachedReader(reader *Reader, ttl time.Duration) *CachedReader {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedReader{
		reader: reader,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

func cacheKey(projectPath, sessionID string) string {
	return projectPath + "\x00" + sessionID
}

// Read returns the cached transcript for the session, reading from disk on a
// miss. Cached slices are shared; callers must not mutate the result.
func (c *CachedReader) Read(projectPath, sessionID string) []Entry {
	key := cacheKey(projectPath, sessionID)
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]Entry)
	}

	entries := c.reader.Read(projectPath, sessionID)
	c.cache.Set(key, entries, gocache.DefaultExpiration)
	return entries
}

// Questions reads (through the cache) and filters to user questions.
func (c *CachedReader) Questions(projectPath, sessionID string, policy Policy) []Entry {
	return UserQuestions(c.Read(projectPath, sessionID), policy)
}

// Invalidate drops the cached transcript for a session, forcing the next
// Read to hit disk. Used when a watcher observes the file change.
func (c *CachedReader) Invalidate(projectPath, sessionID string) {
	c.cache.Delete(cacheKey(projectPath, sessionID))
}

// Path exposes the underlying transcript location.
func (c *CachedReader) Path(projectPath, sessionID string) string {
	return c.reader.Path(projectPath, sessionID)
}
