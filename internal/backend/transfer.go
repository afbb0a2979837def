package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

// Upload sends a multipart form to endpoint under the transfer timeout. The
// file content is buffered once so transient failures can be retried without
// re-reading the caller's stream.
func (c *Client) Upload(ctx context.Context, endpoint, fieldName, fileName string, file io.Reader, fields map[string]string, out interface{}) error {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)

	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	cfg := RequestConfig{
		Method:      http.MethodPost,
		Endpoint:    endpoint,
		Headers:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Timeout:     c.transferTimeout,
		RequireAuth: true,
	}
	payload := form.Bytes()
	return c.retryLoop(ctx, func() error {
		return c.attempt(ctx, cfg, payload, out)
	})
}

// Download fetches a binary payload. The filename comes from the
// Content-Disposition header, falling back to fallbackName. A zero-length
// body means the file does not exist on the backend, not an empty success.
func (c *Client) Download(ctx context.Context, endpoint string, params map[string]string, fallbackName string) ([]byte, string, error) {
	var (
		data     []byte
		fileName string
	)
	cfg := RequestConfig{
		Method:      http.MethodGet,
		Endpoint:    endpoint,
		Params:      params,
		Timeout:     c.transferTimeout,
		RequireAuth: true,
	}
	err := c.retryLoop(ctx, func() error {
		raw, name, err := c.attemptDownload(ctx, cfg, fallbackName)
		if err != nil {
			return err
		}
		data, fileName = raw, name
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return data, fileName, nil
}

func (c *Client) attemptDownload(ctx context.Context, cfg RequestConfig, fallbackName string) ([]byte, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, cfg.Method, c.buildURL(cfg.Endpoint, cfg.Params), nil)
	if err != nil {
		return nil, "", err
	}
	for _, ic := range c.requestICs {
		if err := ic(ctx, req, &cfg); err != nil {
			return nil, "", err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return nil, "", timeoutError(err)
		}
		return nil, "", networkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", networkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := classify(resp.StatusCode, raw)
		if apiErr.Code == CodeUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return nil, "", apiErr
	}
	if len(raw) == 0 {
		return nil, "", downloadError("")
	}

	return raw, dispositionFileName(resp.Header.Get("Content-Disposition"), fallbackName), nil
}

func dispositionFileName(header, fallback string) string {
	if header != "" {
		if _, params, err := mime.ParseMediaType(header); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return fallback
}
