package client

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"os"
	"path"
)

// Download streams the body at rawURL into outputPath, bypassing the retry
// pipeline and call counters. An empty outputPath derives the file name from
// the last URL path segment. Redirects are followed and the final status
// must be exactly 200.
func (c *Client) Download(ctx context.Context, rawURL, outputPath string) (string, error) {
	target := c.resolveURL(rawURL)
	if outputPath == "" {
		u, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("parse download url: %w", err)
		}
		outputPath = path.Base(u.Path)
		if outputPath == "." || outputPath == "/" {
			return "", fmt.Errorf("cannot derive output path from %q", target)
		}
	}

	ctx = withFollowRedirects(ctx, true)
	httpReq, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.applyHeaders(httpReq, &Request{}, "")
	c.applyAuth(httpReq, &Request{})

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer closeBody(httpResp)

	if httpResp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return "", NewStatusError(newResponse(httpResp, body, 0), StatusSpec{nethttp.StatusOK})
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	written, err := io.Copy(f, httpResp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}

	if c.config.DebugLevel >= 4 {
		c.log.Debug().
			Str("url", target).
			Str("path", outputPath).
			Int64("bytes", written).
			Msg("Downloaded")
	}
	return outputPath, nil
}
