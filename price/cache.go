package price

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DailyCache is an http.RoundTripper that keeps successful responses on disk
// until the end of the day, so repeated reports do not hit quote APIs again.
type DailyCache struct {
	Base http.RoundTripper // Base defaults to http.DefaultTransport.
	Dir  string            // Dir defaults to os.TempDir().
	Log  zerolog.Logger

	now func() time.Time
}

// NewDailyClient returns an HTTP client caching responses in dir.
func NewDailyClient(dir string, log zerolog.Logger) *http.Client {
	return &http.Client{Transport: &DailyCache{Dir: dir, Log: log}}
}

func (c *DailyCache) RoundTrip(req *http.Request) (*http.Response, error) {
	// one key per day, so entries expire every day.
	key := fmt.Sprintf("%s %s %s", c.today(), req.Method, req.URL.String())
	key = fmt.Sprintf("%x", sha1.Sum([]byte(key)))

	if cached, err := c.get(key, req); err == nil {
		return cached, nil
	}

	base := c.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.Log.Debug().Str("method", req.Method).Str("host", req.URL.Host).Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("quote fetched")
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		c.Log.Warn().Err(err).Msg("cache write failed")
	}
	return resp, nil
}

func (c *DailyCache) today() string {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return now().Format(time.DateOnly)
}

func (c *DailyCache) file(key string) string {
	dir := c.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pcs-"+key)
}

func (c *DailyCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(c.file(key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores resp on disk. DumpResponse leaves resp.Body readable.
func (c *DailyCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(c.file(key), content, 0o600)
}
