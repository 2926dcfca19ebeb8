package tmdb

import (
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// Proxy streams a raw TMDB response for path back to w, status included.
func (c *Client) Proxy(w http.ResponseWriter, r *http.Request, path string, query url.Values) {
	req, err := c.newRequest(r.Context(), path, query)
	if err != nil {
		http.Error(w, "Failed to create request", http.StatusInternalServerError)
		return
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("tmdb proxy failed", zap.String("path", path), zap.Error(err))
		http.Error(w, "Failed to fetch TMDB data", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}
