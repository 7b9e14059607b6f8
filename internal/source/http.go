package source

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/tilestream/internal/tile"
)

// HTTPSource fetches tile bytes from a URL template of the form
// "https://host/{z}/{x}/{y}.png", substituting the tile coordinate for
// each placeholder. Safe for concurrent use: it holds no per-request
// state beyond the shared *http.Client.
type HTTPSource struct {
	Client      *http.Client
	URLTemplate string
}

// NewHTTPSource builds an HTTPSource with a client tuned for many small,
// concurrent tile fetches.
func NewHTTPSource(urlTemplate string) *HTTPSource {
	return &HTTPSource{
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
		URLTemplate: urlTemplate,
	}
}

func (s *HTTPSource) buildURL(coord tile.Coordinate) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(int(coord.Zoom)),
		"{x}", strconv.Itoa(int(coord.X)),
		"{y}", strconv.Itoa(int(coord.Y)),
	)
	return r.Replace(s.URLTemplate)
}

// Load fetches the tile over HTTP. A non-2xx response or a transport
// error is returned wrapped; the caller treats it as a source error per
// the coordinator's error taxonomy (logged, non-fatal, no state change).
func (s *HTTPSource) Load(ctx context.Context, coord tile.Coordinate) (tile.Bytes, error) {
	url := s.buildURL(coord)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tile.Bytes{}, wrapLoadErr(coord, err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return tile.Bytes{}, wrapLoadErr(coord, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tile.Bytes{}, wrapLoadErr(coord, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return tile.Bytes{}, wrapLoadErr(coord, err)
	}

	tb := tile.Bytes{
		Coord:       coord,
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("ETag"),
		Checksum:    uint64(crc32.ChecksumIEEE(data)),
	}
	if exp := resp.Header.Get("Expires"); exp != "" {
		if t, err := http.ParseTime(exp); err == nil {
			tb.Expires = t
		}
	}
	return tb, nil
}
