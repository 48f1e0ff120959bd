package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxFetchBody caps how much of a response body is handed to the model.
const maxFetchBody = 1 << 20

type fetchArgs struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    *string           `json:"body"`
}

// fetchURL performs an HTTP request. Any response status counts as success;
// the status line is part of the output.
func (c *Catalog) fetchURL(ctx context.Context, env *Env, raw json.RawMessage) (Result, error) {
	args, err := decode[fetchArgs](raw)
	if err != nil {
		return Result{}, err
	}

	u, err := url.Parse(args.URL)
	if err != nil {
		return Result{}, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Result{}, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	method := strings.ToUpper(strings.TrimSpace(args.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if args.Body != nil {
		body = strings.NewReader(*args.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return Result{}, err
	}
	for k, v := range args.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody+1))
	if err != nil {
		return Result{}, err
	}
	text := string(data)
	if len(data) > maxFetchBody {
		text = string(data[:maxFetchBody]) + "\n[response truncated]"
	}

	env.Log.Debug().Str("url", u.Redacted()).Int("status", resp.StatusCode).Msg("fetched url")
	return okResult(fmt.Sprintf("Status: %d\n%s", resp.StatusCode, text))
}
