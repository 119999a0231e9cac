package missav

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deltabot/delta/internal/jobs"
	"github.com/deltabot/delta/internal/utils"
)

// The page embeds its manifest location as a packed-script token string:
// pipe-delimited identifier fragments in reverse order, anchored by the
// manifest filename, domain, scheme, and stream-type literals.
var identifierPattern = regexp.MustCompile(`m3u8\|([a-f0-9\|]+)\|com\|surrit\|https\|video`)

func extractIdentifier(html string) string {
	m := identifierPattern.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	tokens := strings.Split(m[1], "|")
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	return strings.Join(tokens, "-")
}

// Page slugs look like "abcd-123" with optional trailing words.
var slugNamePattern = regexp.MustCompile(`(?i)^[a-z0-9]+-\d+(?:-[a-z0-9]+)*$`)

// deriveFileName picks the output name: explicit override first, then a
// slug-shaped final URL path element, then a timestamp fallback.
func deriveFileName(override, rawURL string) string {
	if override != "" {
		return utils.SanitizeFileName(override)
	}
	if u, err := url.Parse(rawURL); err == nil {
		base := path.Base(strings.TrimSuffix(u.Path, "/"))
		if slugNamePattern.MatchString(base) {
			return base
		}
	}
	return fmt.Sprintf("video_%d", time.Now().Unix())
}

// FetchError is a network or HTTP failure that survived the retry policy.
type FetchError struct {
	URL      string
	Attempts int
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error fetching %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("error fetching %s after %d attempts: status %d", e.URL, e.Attempts, e.Status)
}

// fetchWithRetry GETs a URL under the job's retry policy. Any status of 400
// or above counts as a failed attempt, same as a transport error.
func fetchWithRetry(ctx context.Context, client utils.HTTPDoer, rawURL string, policy jobs.RetryPolicy) ([]byte, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	lastStatus := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		body, status, err := fetchOnce(ctx, client, rawURL, policy.Timeout)
		if err == nil && status < 400 {
			return body, nil
		}
		lastErr = err
		lastStatus = status
		if err != nil {
			log.Debug().Str("op", "missav/helpers").Int("attempt", attempt).Msgf("Request failed for %s: %v", rawURL, err)
		} else {
			log.Debug().Str("op", "missav/helpers").Int("attempt", attempt).Msgf("HTTP error %d for %s", status, rawURL)
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(policy.Delay):
			}
		}
	}
	return nil, &FetchError{URL: rawURL, Attempts: attempts, Status: lastStatus, Err: lastErr}
}

func fetchOnce(ctx context.Context, client utils.HTTPDoer, rawURL string, timeout time.Duration) ([]byte, int, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error reading response body: %v", err)
	}
	return body, resp.StatusCode, nil
}

// headProber measures segment sizes with HEAD requests relative to the media
// playlist's own URL.
type headProber struct {
	client utils.HTTPDoer
	base   *url.URL
}

func newHeadProber(client utils.HTTPDoer, mediaURL string) (*headProber, error) {
	base, err := url.Parse(mediaURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing media playlist URL: %v", err)
	}
	return &headProber{client: client, base: base}, nil
}

func (p *headProber) ProbeSize(ctx context.Context, segmentURI string) (int64, error) {
	ref, err := url.Parse(segmentURI)
	if err != nil {
		return 0, fmt.Errorf("error parsing segment URI: %v", err)
	}
	full := p.base.ResolveReference(ref).String()
	req, err := http.NewRequestWithContext(ctx, "HEAD", full, nil)
	if err != nil {
		return 0, fmt.Errorf("error creating request: %v", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("server returned status code %d", resp.StatusCode)
	}
	if resp.ContentLength <= 0 {
		return 0, fmt.Errorf("server didn't provide Content-Length header")
	}
	return resp.ContentLength, nil
}
