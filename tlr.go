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

// Package tlr places title-level requests across the tenants of a library
// consortium and keeps the resulting request chains consistent.
package tlr

import (
	"context"
	"embed"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tlr/config"
	"github.com/jerry-enebeli/tlr/database"
	"github.com/jerry-enebeli/tlr/internal/cache"
	redlock "github.com/jerry-enebeli/tlr/internal/lock"
	redis_db "github.com/jerry-enebeli/tlr/internal/redis-db"
	"github.com/jerry-enebeli/tlr/internal/tenant"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// TLR wires the orchestrator, the reconcilers and the loan-action propagator
// to their collaborators.
type TLR struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	downstream Downstream
	settings   *Settings
	cnf        *config.Configuration
}

// NewTLR connects to redis and builds the engine around db and downstream.
func NewTLR(db database.IDataSource, downstream Downstream) (*TLR, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	t := newTLR(configuration, db, downstream, cache.NewCache(redisClient.Client()))
	t.redis = redisClient.Client()
	t.queue = NewQueue(configuration)
	return t, nil
}

func newTLR(cnf *config.Configuration, db database.IDataSource, downstream Downstream, c cache.Cache) *TLR {
	return &TLR{
		datasource: db,
		downstream: downstream,
		settings:   NewSettings(&cnf.Consortium, downstream, c),
		cnf:        cnf,
	}
}

// Queue returns the event ingress queue.
func (t *TLR) Queue() *Queue {
	return t.queue
}

func (t *TLR) fanOut(ctx context.Context, tenantIDs []string, fn func(ctx context.Context, tenantID string) error) error {
	timeout := time.Duration(t.cnf.Consortium.FanOutTimeoutSec) * time.Second
	return tenant.FanOut(ctx, tenantIDs, t.cnf.Consortium.FanOutLimit, timeout, fn)
}

// withChainLock serializes mutations of one chain across workers. Without redis
// the handlers rely on their per-field idempotence alone.
func (t *TLR) withChainLock(ctx context.Context, chainID string, fn func() error) error {
	if t.redis == nil {
		return fn()
	}
	locker := redlock.NewLocker(t.redis, redlock.ChainKey(chainID), redlock.NewHolderValue())
	lockTimeout := time.Duration(t.cnf.Consortium.LockTimeoutSec) * time.Second
	waitTimeout := time.Duration(t.cnf.Consortium.LockWaitTimeoutSec) * time.Second
	if err := locker.WaitLock(ctx, lockTimeout, waitTimeout); err != nil {
		return err
	}
	stop, done := make(chan struct{}), make(chan struct{})
	go keepChainLock(ctx, locker, lockTimeout, stop, done)
	defer func() {
		close(stop)
		<-done
		if err := locker.Unlock(ctx); err != nil {
			logrus.WithField("chain", chainID).Warnf("releasing chain lock: %v", err)
		}
	}()
	return fn()
}

// keepChainLock re-arms the lock every half ttl until stop is closed, so a
// slow tenant fan-out never runs past the lock's expiry.
func keepChainLock(ctx context.Context, locker *redlock.Locker, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := locker.ExtendLock(ctx, ttl); err != nil {
				logrus.WithField("lock", locker.Key()).Warnf("extending chain lock: %v", err)
				return
			}
		}
	}
}
