package client

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/quic-go/quic-go/http3"
)

// schemeFor returns the URL scheme matching the transport. HTTP/3 always
// rides QUIC over TLS; its round tripper rejects plain http URLs.
func schemeFor(useHTTP3 bool) string {
	if useHTTP3 {
		return "https"
	}

	return "http"
}

// newHTTPClient builds the HTTP client for the gateway. With http3 the
// requests ride QUIC instead of TCP; the gateway must expose an HTTP/3
// listener for this to work.
func newHTTPClient(useHTTP3 bool) *http.Client {
	if !useHTTP3 {
		return http.DefaultClient
	}

	return &http.Client{
		Transport: &http3.RoundTripper{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS13},
		},
	}
}

// httpGet performs a GET request and decodes the JSON response.
// A non-nil notFound is invoked instead of an error on 404.
func (c *Client) httpGet(url string, result any, notFound func() error) error {
	resp, err := c.httpc.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound && notFound != nil {
		return notFound()
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// httpPostJSON performs a POST request with a JSON body and returns the
// response status code. The response body is decoded into result when the
// status is 2xx and result is non-nil.
func (c *Client) httpPostJSON(url string, body any, result any) (int, error) {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal body:\n%w", err)
	}

	resp, err := c.httpc.Post(url, "application/json", bytes.NewReader(jsonBytes))
	if err != nil {
		return 0, fmt.Errorf("POST %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response of POST %s:\n%w", url, err)
		}
	}

	return resp.StatusCode, nil
}
