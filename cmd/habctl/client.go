package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to a running habitability server.
type Client struct {
	base string
	rest *resty.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	r.SetHeader("Content-Type", "application/json")
	return &Client{base: base, rest: r}
}

// Response is a decoded reply. Non-2xx replies are not errors; callers inspect Status.
type Response struct {
	Status int
	Body   map[string]any
}

func (c *Client) Health() (*Response, error) {
	return c.do(c.rest.R().Get(c.base + "/health"))
}

func (c *Client) Features() (*Response, error) {
	return c.do(c.rest.R().Get(c.base + "/features"))
}

func (c *Client) Predict(planet any) (*Response, error) {
	return c.do(c.rest.R().SetBody(planet).Post(c.base + "/predict"))
}

func (c *Client) BatchPredict(items []any) (*Response, error) {
	return c.do(c.rest.R().SetBody(map[string]any{"items": items}).Post(c.base + "/batch-predict"))
}

func (c *Client) History(limit int) (*Response, error) {
	return c.do(c.rest.R().SetQueryParam("limit", fmt.Sprint(limit)).Get(c.base + "/history"))
}

func (c *Client) do(resp *resty.Response, err error) (*Response, error) {
	if err != nil {
		return nil, err
	}
	out := &Response{Status: resp.StatusCode()}
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &out.Body); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", resp.Request.URL, err)
		}
	}
	return out, nil
}
