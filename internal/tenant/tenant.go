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

// Package tenant runs work on behalf of a consortium member. The tenant is
// always passed explicitly; nothing is kept in ambient state.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var ErrMissingTenant = errors.New("tenant id is required")

var tracer = otel.Tracer("tlr.tenant")

// Func is work executed against a single tenant.
type Func[T any] func(ctx context.Context, tenantID string) (T, error)

// Call runs fn as tenantID and returns its result.
func Call[T any](ctx context.Context, tenantID string, fn Func[T]) (T, error) {
	var zero T
	if tenantID == "" {
		return zero, ErrMissingTenant
	}
	ctx, span := tracer.Start(ctx, "tenant.Call", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	res, err := fn(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	return res, nil
}

// Run is Call for work without a result.
func Run(ctx context.Context, tenantID string, fn func(ctx context.Context, tenantID string) error) error {
	_, err := Call(ctx, tenantID, func(ctx context.Context, tenantID string) (struct{}, error) {
		return struct{}{}, fn(ctx, tenantID)
	})
	return err
}

// FanOut runs fn once per tenant with at most limit calls in flight and waits
// for all of them, or until timeout elapses. A failing tenant does not stop the
// others; every failure is returned joined.
func FanOut(ctx context.Context, tenantIDs []string, limit int, timeout time.Duration, fn func(ctx context.Context, tenantID string) error) error {
	if len(tenantIDs) == 0 {
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "tenant.FanOut", trace.WithAttributes(attribute.StringSlice("tenant.ids", tenantIDs)))
	defer span.End()

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, tenantID := range tenantIDs {
		g.Go(func() error {
			err := Run(ctx, tenantID, fn)
			if err == nil {
				return nil
			}
			logrus.WithFields(logrus.Fields{"tenant": tenantID, "error": err}).Warn("fan-out call failed")
			err = fmt.Errorf("tenant %s: %w", tenantID, err)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return err
		})
	}

	if err := g.Wait(); err != nil {
		joined := errors.Join(errs...)
		span.RecordError(joined)
		span.SetStatus(codes.Error, "fan-out incomplete")
		return joined
	}
	return nil
}
