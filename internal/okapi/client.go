/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package okapi talks to the per-tenant REST modules behind an Okapi gateway.
// Every call names the tenant it acts for.
package okapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jerry-enebeli/tlr/config"
	"github.com/jerry-enebeli/tlr/internal/request"
)

const (
	HeaderTenant = "X-Okapi-Tenant"
	HeaderToken  = "X-Okapi-Token"
	HeaderURL    = "X-Okapi-Url"
)

// ErrNotFound is returned when the downstream module answers 404.
var ErrNotFound = errors.New("resource not found")

var tracer = otel.Tracer("tlr.okapi")

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientFromConfig builds a client from the okapi section of the loaded configuration.
func NewClientFromConfig(cnf *config.Configuration) *Client {
	return NewClient(cnf.Okapi.Url, cnf.Okapi.Token, time.Duration(cnf.Okapi.TimeoutSec)*time.Second)
}

func (c *Client) do(ctx context.Context, tenantID, method, path string, query url.Values, body, out interface{}) error {
	ctx, span := tracer.Start(ctx, method+" "+path, trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("http.method", method),
	))
	defer span.End()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := request.ToJsonReq(body)
		if err != nil {
			return pkgerrors.Wrap(err, "encoding request body")
		}
		reader = payload
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return pkgerrors.Wrapf(err, "building %s %s", method, path)
	}
	req.Header.Set(HeaderTenant, tenantID)
	req.Header.Set(HeaderURL, c.baseURL)
	if c.token != "" {
		req.Header.Set(HeaderToken, c.token)
	}

	_, err = request.Do(c.http, req, out)
	if err != nil {
		span.RecordError(err)
		var statusErr *request.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		logrus.WithFields(logrus.Fields{
			"tenant": tenantID,
			"method": method,
			"path":   path,
		}).Debugf("okapi call failed: %v", err)
		return pkgerrors.Wrapf(err, "%s %s as %s", method, path, tenantID)
	}
	return nil
}

func (c *Client) get(ctx context.Context, tenantID, path string, query url.Values, out interface{}) error {
	return c.do(ctx, tenantID, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, tenantID, path string, body, out interface{}) error {
	return c.do(ctx, tenantID, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, tenantID, path string, body interface{}) error {
	return c.do(ctx, tenantID, http.MethodPut, path, nil, body, nil)
}

// findOrNil maps ErrNotFound to a nil result so callers can branch on absence.
func findOrNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// IsNotFound reports whether err means the downstream resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
