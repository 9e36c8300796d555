// Package providers holds the HTTP plumbing shared by the hosted
// speech-to-text providers.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/langid/internal/resilience"
)

// HTTPConfig holds the transport settings common to hosted providers.
type HTTPConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
}

// Timeout returns the per-request client timeout (60s when unset).
func (c HTTPConfig) Timeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Limiter returns a token bucket for c. A non-positive rate is unlimited.
func (c HTTPConfig) Limiter() *rate.Limiter {
	if c.RatePerSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(c.RatePerSec), max(c.Burst, 1))
}

// Upload describes one multipart audio upload.
type Upload struct {
	URL      string
	FilePath string
	Fields   map[string]string
	Header   http.Header
}

// Transport sends provider requests under a rate limit and a retry and
// circuit-breaker policy.
type Transport struct {
	service string
	client  *http.Client
	limiter *rate.Limiter
	policy  resilience.Policy
}

// NewTransport creates a Transport. A nil limiter means unlimited.
func NewTransport(service string, client *http.Client, limiter *rate.Limiter, policy resilience.Policy) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if policy.Retry.OnRetry == nil {
		policy.Retry.OnRetry = resilience.RetryLogger(service, "upload")
	}
	return &Transport{service: service, client: client, limiter: limiter, policy: policy}
}

// PostAudio uploads the file as multipart form data and decodes the JSON
// response into out.
func (t *Transport) PostAudio(ctx context.Context, up Upload, out any) error {
	body, contentType, err := encodeMultipart(up)
	if err != nil {
		return err
	}

	_, err = resilience.Call(ctx, t.policy, func(ctx context.Context) (struct{}, error) {
		if err := t.limiter.Wait(ctx); err != nil {
			return struct{}{}, eris.Wrapf(err, "%s: rate limit wait", t.service)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, up.URL, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, eris.Wrapf(err, "%s: create request", t.service)
		}
		for k, vs := range up.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := t.client.Do(req)
		if err != nil {
			return struct{}{}, eris.Wrapf(err, "%s: request", t.service)
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.CheckResponse(t.service, resp); err != nil {
			return struct{}{}, err
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, eris.Wrapf(err, "%s: decode response", t.service)
		}
		return struct{}{}, nil
	})
	return err
}

func encodeMultipart(up Upload) ([]byte, string, error) {
	f, err := os.Open(up.FilePath)
	if err != nil {
		return nil, "", eris.Wrap(err, "providers: open audio file")
	}
	defer f.Close() //nolint:errcheck

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(up.FilePath))
	if err != nil {
		return nil, "", eris.Wrap(err, "providers: create form file")
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", eris.Wrap(err, "providers: copy audio data")
	}

	keys := make([]string, 0, len(up.Fields))
	for k := range up.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := w.WriteField(k, up.Fields[k]); err != nil {
			return nil, "", eris.Wrapf(err, "providers: write field %s", k)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "providers: close multipart writer")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
