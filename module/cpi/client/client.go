// Package client talks to the integration content management API of a tenant.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harness/cpi-sync/module/cpi/types"
	"github.com/harness/cpi-sync/util/common/errors"
)

const (
	apiPath         = "/api/v1/"
	defaultRetryMax = 3
)

// Client is a Catalog backed by the tenant's REST API. It is safe for
// concurrent use; the authorization header is computed once and shared.
type Client struct {
	baseURL       string
	authorization string
	httpClient    *retryablehttp.Client
	logger        zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient.HTTPClient = c
	}
}

// WithBaseURL overrides the https://<host> base, e.g. for a test server
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRetries sets how often transport failures and 5xx responses are retried
func WithRetries(retries int, waitMin, waitMax time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient.RetryMax = retries
		cl.httpClient.RetryWaitMin = waitMin
		cl.httpClient.RetryWaitMax = waitMax
	}
}

// NewClient creates a client for the management host. authorization is the
// complete Authorization header value ("Basic ..." or "Bearer ...").
func NewClient(host, authorization string, opts ...Option) *Client {
	logger := log.With().Str("component", "cpi-client").Str("host", host).Logger()

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = defaultRetryMax
	httpClient.RetryWaitMin = 1 * time.Second
	httpClient.RetryWaitMax = 10 * time.Second
	httpClient.Logger = newLeveledLogger(logger)
	// keep the last response so callers can report status and body
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL:       "https://" + host,
		authorization: authorization,
		httpClient:    httpClient,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StandardClient returns an *http.Client that retries like this client,
// for requests outside the API such as the OAuth token request
func (c *Client) StandardClient() *http.Client {
	return c.httpClient.StandardClient()
}

// Ping checks that the API is reachable with the configured credential
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, c.baseURL+apiPath, "")
	return err
}

// ListPackages returns every integration package of the tenant
func (c *Client) ListPackages(ctx context.Context) ([]types.CatalogEntry, error) {
	entries, err := list[types.CatalogEntry](ctx, c, c.baseURL+apiPath+"IntegrationPackages")
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Int("count", len(entries)).Msg("Listed packages")
	return entries, nil
}

// ListArtifacts returns the artifacts of one type owned by a package
func (c *Client) ListArtifacts(ctx context.Context, packageID string, artifactType types.ArtifactType) (
	[]types.ArtifactDescriptor, error,
) {
	u := fmt.Sprintf("%s%sIntegrationPackages('%s')/%s", c.baseURL, apiPath, odataKey(packageID), artifactType)

	artifacts, err := list[types.ArtifactDescriptor](ctx, c, u)
	if err != nil {
		return nil, err
	}
	for i := range artifacts {
		artifacts[i].Type = artifactType
	}
	c.logger.Debug().
		Str("package", packageID).
		Str("artifact_type", string(artifactType)).
		Int("count", len(artifacts)).
		Msg("Listed artifacts")
	return artifacts, nil
}

// DownloadArtifact returns the zip payload of the active version of an artifact
func (c *Client) DownloadArtifact(ctx context.Context, artifactType types.ArtifactType, artifactID string) (
	[]byte, error,
) {
	return c.get(ctx, c.ArtifactURL(artifactType, artifactID), "")
}

// ArtifactURL returns the URL DownloadArtifact fetches, for diagnostics
func (c *Client) ArtifactURL(artifactType types.ArtifactType, artifactID string) string {
	return fmt.Sprintf("%s%s%s(Id='%s',Version='Active')/$value", c.baseURL, apiPath, artifactType,
		odataKey(artifactID))
}

// odataResponse is the OData v2 envelope of every listing
type odataResponse[T any] struct {
	D struct {
		Results []T    `json:"results"`
		Next    string `json:"__next,omitempty"`
	} `json:"d"`
}

// list collects all pages of an OData collection, following __next links.
// A page linking to itself or to an already visited page ends the listing
// with a DecodeError.
func list[T any](ctx context.Context, c *Client, u string) ([]T, error) {
	var all []T
	visited := map[string]struct{}{}
	for next := u; next != ""; {
		visited[next] = struct{}{}
		body, err := c.get(ctx, next, "application/json")
		if err != nil {
			return nil, err
		}

		var page odataResponse[T]
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &errors.DecodeError{URL: next, Body: string(body), Wrapped: err}
		}
		all = append(all, page.D.Results...)

		link, err := c.resolveNext(next, page.D.Next)
		if err != nil {
			return nil, &errors.DecodeError{URL: next, Body: string(body), Wrapped: err}
		}
		if _, seen := visited[link]; seen {
			return nil, &errors.DecodeError{URL: next, Body: string(body),
				Wrapped: fmt.Errorf("__next link %q was already listed", link)}
		}
		next = link
	}
	return all, nil
}

func (c *Client) resolveNext(current, next string) (string, error) {
	if next == "" {
		return "", nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("invalid __next link %q: %w", next, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) get(ctx context.Context, u, accept string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create a new request: %w", err)
	}
	req.Header.Set("Authorization", c.authorization)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errors.TransportError{URL: u, Wrapped: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.TransportError{URL: u, Wrapped: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewRemoteAPIError(u, resp.StatusCode, string(data))
	}
	return data, nil
}

// odataKey quotes a key for use inside '...' of an OData resource path
func odataKey(id string) string {
	return url.PathEscape(strings.ReplaceAll(id, "'", "''"))
}
