package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RecordsClient is the hosted RecordStore: PostgREST-style CRUD against
// /rest/v1/{table}. One shared instance serves all client sessions.
type RecordsClient struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

func NewRecordsClient(baseURL, apiKey string, httpClient *http.Client) (*RecordsClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RecordsClient{baseURL: u, apiKey: apiKey, http: httpClient}, nil
}

// RequestError is a non-2xx record store response, surfaced opaquely.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend records: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("backend records: %s (status %d)", e.Message, e.Status)
}

func (c *RecordsClient) Select(ctx context.Context, table string, q Query) ([]Record, error) {
	var rows []Record
	if err := c.do(ctx, http.MethodGet, table, q.Encode(), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *RecordsClient) Insert(ctx context.Context, table string, values Record) (Record, error) {
	var rows []Record
	if err := c.do(ctx, http.MethodPost, table, nil, []Record{values}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

func (c *RecordsClient) Update(ctx context.Context, table string, q Query, values Record) ([]Record, error) {
	var rows []Record
	if err := c.do(ctx, http.MethodPatch, table, q.Encode(), values, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *RecordsClient) Delete(ctx context.Context, table string, q Query) error {
	return c.do(ctx, http.MethodDelete, table, q.Encode(), nil, nil)
}

func (c *RecordsClient) do(ctx context.Context, method, table string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = joinPath(u.Path, "/rest/v1/"+table)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if out != nil {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseRecordsError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseRecordsError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &body)
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &RequestError{Status: resp.StatusCode, Code: body.Code, Message: body.Message}
}
