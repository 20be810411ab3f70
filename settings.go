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

package tlr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tlr/config"
	"github.com/jerry-enebeli/tlr/internal/cache"
)

const centralTenantCacheKey = "tlr:consortium:central-tenant"

// Settings exposes the consortium-wide values the engine depends on.
type Settings struct {
	cnf        *config.ConsortiumConfig
	downstream userService
	cache      cache.Cache
}

func NewSettings(cnf *config.ConsortiumConfig, downstream userService, c cache.Cache) *Settings {
	return &Settings{cnf: cnf, downstream: downstream, cache: c}
}

// ExcludedLendingTenants returns the tenants never chosen to lend.
func (s *Settings) ExcludedLendingTenants() []string {
	return s.cnf.ExcludedLendingTenants
}

func (s *Settings) isExcluded(tenantID string) bool {
	for _, t := range s.cnf.ExcludedLendingTenants {
		if t == tenantID {
			return true
		}
	}
	return false
}

// CentralTenantID returns the configured central tenant, or the one recorded in
// tenantID's user-tenants registry. Looked up values are cached.
func (s *Settings) CentralTenantID(ctx context.Context, tenantID string) (string, error) {
	if s.cnf.CentralTenantID != "" {
		return s.cnf.CentralTenantID, nil
	}

	if s.cache != nil {
		var cached string
		err := s.cache.Get(ctx, centralTenantCacheKey, &cached)
		if err == nil && cached != "" {
			return cached, nil
		}
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			logrus.Warnf("reading central tenant from cache: %v", err)
		}
	}

	affiliation, err := s.downstream.FindUserTenant(ctx, tenantID, "")
	if err != nil {
		return "", fmt.Errorf("resolving central tenant: %w", err)
	}
	if affiliation == nil || affiliation.CentralTenant == "" {
		return "", fmt.Errorf("tenant %s is not a consortium member", tenantID)
	}

	if s.cache != nil {
		ttl := time.Duration(s.cnf.SettingsCacheTTLSec) * time.Second
		if err := s.cache.Set(ctx, centralTenantCacheKey, affiliation.CentralTenant, ttl); err != nil {
			logrus.Warnf("caching central tenant: %v", err)
		}
	}
	return affiliation.CentralTenant, nil
}
