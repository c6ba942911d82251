package asterisk

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// doREST sends one ARI REST request. Non 2xx answers become a CommandError.
func (c *Client) doREST(
	ctx context.Context,
	op string,
	method string,
	path string,
	query url.Values,
	body interface{},
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &CommandError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.URL+path, reader)
	if err != nil {
		return nil, &CommandError{Op: op, Err: err}
	}
	req.SetBasicAuth(c.opts.Username, c.opts.Password)
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	response, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &CommandError{Op: op, Err: ErrTimeout}
		}
		return nil, &CommandError{Op: op, Err: err}
	}
	defer response.Body.Close()
	data, err := io.ReadAll(response.Body)
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &CommandError{Op: op, StatusCode: response.StatusCode, Err: err}
	}
	if err != nil {
		return nil, &CommandError{Op: op, Err: err}
	}
	return data, nil
}
