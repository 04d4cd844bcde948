package incus

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// Requester issues one call against the Incus REST API.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (*Response, error)
}

// Response is the standard Incus response envelope.
type Response struct {
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Operation  string          `json:"operation"`
	ErrorCode  int             `json:"error_code"`
	Error      string          `json:"error"`
	Metadata   json.RawMessage `json:"metadata"`
}

// Decode unmarshals the response metadata into out.
func (r *Response) Decode(out any) error {
	if len(r.Metadata) == 0 {
		return errors.New("empty metadata")
	}
	return json.Unmarshal(r.Metadata, out)
}

// Client is a connection to one Incus daemon over either transport.
// It keeps its idle connections pooled until Close.
type Client struct {
	host      string
	baseURL   string
	transport *http.Transport
	http      *http.Client
}

// Dial prepares a client for the endpoint. Certificate files are read and
// validated here so that a broken configuration fails before any request.
// Dial performs no network I/O.
func Dial(ep Endpoint, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var (
		transport *http.Transport
		baseURL   string
		err       error
	)
	switch ep.Type {
	case ConnectionUnix, "":
		transport, err = unixTransport(ep, timeout)
		baseURL = "http://unix.socket"
	case ConnectionHTTPS:
		transport, err = tlsTransport(ep, timeout)
		baseURL = strings.TrimRight(ep.URL, "/")
	default:
		err = fmt.Errorf("unknown connection type %q", ep.Type)
	}
	if err != nil {
		return nil, &ConnectionError{Host: ep.Name, Op: "dial", Err: err}
	}

	return &Client{
		host:      ep.Name,
		baseURL:   baseURL,
		transport: transport,
		http:      &http.Client{Transport: transport, Timeout: timeout},
	}, nil
}

func unixTransport(ep Endpoint, timeout time.Duration) (*http.Transport, error) {
	socket := ep.SocketPath
	if socket == "" {
		socket = DefaultSocketPath
	}
	if _, err := os.Stat(socket); err != nil {
		return nil, fmt.Errorf("socket %s: %w", socket, err)
	}

	dialer := &net.Dialer{Timeout: timeout}
	return &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socket)
		},
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}, nil
}

func tlsTransport(ep Endpoint, timeout time.Duration) (*http.Transport, error) {
	if ep.URL == "" {
		return nil, errors.New("https url is required")
	}
	if ep.ClientCertPath == "" || ep.ClientKeyPath == "" {
		return nil, errors.New("client certificate and key paths are required")
	}

	certPEM, err := os.ReadFile(ep.ClientCertPath)
	if err != nil {
		return nil, fmt.Errorf("read client certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(ep.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read client key: %w", err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("load client key pair: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if ep.CACertPath != "" {
		caPEM, err := os.ReadFile(ep.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read ca certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("ca certificate %s contains no PEM certificates", ep.CACertPath)
		}
		tlsConfig.RootCAs = pool
	} else if !ep.VerifyTLS {
		tlsConfig.InsecureSkipVerify = true
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}, nil
}

// Request sends one API call. Transport failures are returned as *ConnectionError,
// error envelopes and non-2xx statuses as *APIError.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ConnectionError{Host: c.host, Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	var envelope Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || envelope.Type == "error" {
		code := envelope.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, &APIError{StatusCode: code, Message: envelope.Error}
	}
	return &envelope, nil
}

// Close releases pooled connections. The client must not be used afterwards.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// Host returns the configured host name this client talks to.
func (c *Client) Host() string {
	return c.host
}
