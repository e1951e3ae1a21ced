package pyxis

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultURL is the base URL of the production Pyxis API.
	DefaultURL = "https://pyxis.engineering.redhat.com/"

	operatorPackagesPath = "v1/operators/packages"

	apiKeyHeader = "X-API-KEY"

	apiKeyEnv   = "PYXIS_API_KEY"
	certPathEnv = "PYXIS_CERT_PATH"
	keyPathEnv  = "PYXIS_KEY_PATH"
)

// NotDeleted matches records that have not been soft-deleted.
const NotDeleted = "deleted!=true"

// Equals renders an equality clause for a Pyxis filter.
func Equals(field, value string) string {
	return field + "==" + value
}

// Filter joins clauses into a Pyxis filter that matches when all of them do.
func Filter(clauses ...string) string {
	return strings.Join(clauses, ";")
}

type Opts struct {
	// APIKey is sent in the X-API-KEY header when set
	APIKey string
	// CertPath and KeyPath point to a client certificate used for mutual TLS
	CertPath string
	KeyPath  string
	// RetryMax is the number of retries for failed requests
	RetryMax int
}

type Opt func(*Opts)

func WithAPIKey(key string) Opt {
	return func(o *Opts) {
		o.APIKey = key
	}
}

func WithClientCertificate(certPath, keyPath string) Opt {
	return func(o *Opts) {
		o.CertPath = certPath
		o.KeyPath = keyPath
	}
}

func WithRetryMax(retryMax int) Opt {
	return func(o *Opts) {
		o.RetryMax = retryMax
	}
}

// OptsFromEnv configures authentication from PYXIS_API_KEY, or from PYXIS_CERT_PATH and
// PYXIS_KEY_PATH when both are set.
func OptsFromEnv() []Opt {
	var opts []Opt
	if key := os.Getenv(apiKeyEnv); key != "" {
		opts = append(opts, WithAPIKey(key))
	}
	certPath, keyPath := os.Getenv(certPathEnv), os.Getenv(keyPathEnv)
	if certPath != "" && keyPath != "" {
		opts = append(opts, WithClientCertificate(certPath, keyPath))
	}
	return opts
}

// Client talks to the operator package endpoints of Pyxis.
type Client struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL string, opts ...Opt) (*Client, error) {
	o := Opts{RetryMax: 5}
	for _, opt := range opts {
		opt(&o)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Pyxis URL %q: %w", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid Pyxis URL %q: must be absolute", baseURL)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = o.RetryMax
	retryClient.Logger = adapter{}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if o.CertPath != "" {
		cert, err := tls.LoadX509KeyPair(o.CertPath, o.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load Pyxis client certificate: %w", err)
		}
		transport, ok := retryClient.HTTPClient.Transport.(*http.Transport)
		if !ok {
			return nil, fmt.Errorf("unexpected transport type %T", retryClient.HTTPClient.Transport)
		}
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.Certificates = []tls.Certificate{cert}
	}

	return &Client{baseURL: parsed, apiKey: o.APIKey, client: retryClient.StandardClient()}, nil
}

// OperatorPackages lists the operator packages matching filter.
func (c *Client) OperatorPackages(ctx context.Context, filter string) ([]OperatorPackage, error) {
	endpoint := c.baseURL.JoinPath(operatorPackagesPath)
	query := endpoint.Query()
	query.Set("filter", filter)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	logrus.WithField("filter", filter).Debug("Querying Pyxis for operator packages")
	data, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list operator packages: %w", err)
	}
	response := operatorPackageList{}
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("could not parse operator packages response: %w", err)
	}
	return response.Data, nil
}

// CreateOperatorPackage registers pkg and returns the record stored by Pyxis.
func (c *Client) CreateOperatorPackage(ctx context.Context, pkg OperatorPackage) (*OperatorPackage, error) {
	body, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("could not marshal operator package: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(operatorPackagesPath).String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	data, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create operator package %s: %w", pkg.PackageName, err)
	}
	created := &OperatorPackage{}
	if err := json.Unmarshal(data, created); err != nil {
		return nil, fmt.Errorf("could not parse created operator package: %w", err)
	}
	return created, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request to Pyxis: %w", err)
	}
	defer resp.Body.Close()
	data, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode, Body: string(data)}
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body: %w", readErr)
	}
	return data, nil
}

// StatusError is returned when Pyxis responds with a non-2xx status code.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: got unexpected http %d status code from Pyxis: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

type adapter struct{}

func (a adapter) format(s string, i ...interface{}) string {
	builder := strings.Builder{}
	builder.WriteString(s)
	for _, x := range i {
		builder.WriteString(" ")
		builder.WriteString(fmt.Sprintf("%v", x))
	}
	return builder.String()
}

func (a adapter) Error(s string, i ...interface{}) {
	logrus.Error(a.format(s, i...))
}

func (a adapter) Info(s string, i ...interface{}) {
	logrus.Info(a.format(s, i...))
}

func (a adapter) Debug(s string, i ...interface{}) {
	logrus.Debug(a.format(s, i...))
}

func (a adapter) Warn(s string, i ...interface{}) {
	logrus.Warn(a.format(s, i...))
}

var _ retryablehttp.LeveledLogger = adapter{}
