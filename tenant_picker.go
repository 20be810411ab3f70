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
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tlr/internal/tenant"
	"github.com/jerry-enebeli/tlr/model"
)

// availabilityTier reports whether an item status counts towards a tier.
type availabilityTier func(status string) bool

var availabilityTiers = []availabilityTier{
	func(status string) bool { return status == model.ItemStatusAvailable },
	func(status string) bool {
		return status == model.ItemStatusCheckedOut || status == model.ItemStatusInTransit
	},
	func(string) bool { return true },
}

// tenantAvailability is the per-tenant histogram of item statuses for one title.
type tenantAvailability struct {
	tenants []string
	counts  map[string]map[string]int
}

func newTenantAvailability(items []model.SearchItem, exclude func(string) bool) *tenantAvailability {
	a := &tenantAvailability{counts: map[string]map[string]int{}}
	for _, item := range items {
		if item.TenantID == "" || exclude(item.TenantID) {
			continue
		}
		statuses, ok := a.counts[item.TenantID]
		if !ok {
			statuses = map[string]int{}
			a.counts[item.TenantID] = statuses
			a.tenants = append(a.tenants, item.TenantID)
		}
		statuses[item.Status.Name]++
	}
	return a
}

func (a *tenantAvailability) count(tenantID string, tier availabilityTier) int {
	n := 0
	for status, c := range a.counts[tenantID] {
		if tier(status) {
			n += c
		}
	}
	return n
}

// ranked lists tenants by the first tier in which they hold items, highest
// count first within a tier. Equal counts keep search order.
func (a *tenantAvailability) ranked() []string {
	var result []string
	placed := map[string]bool{}
	for _, tier := range availabilityTiers {
		var level []string
		for _, t := range a.tenants {
			if !placed[t] && a.count(t, tier) > 0 {
				level = append(level, t)
			}
		}
		sort.SliceStable(level, func(i, j int) bool {
			return a.count(level[i], tier) > a.count(level[j], tier)
		})
		for _, t := range level {
			placed[t] = true
		}
		result = append(result, level...)
	}
	return result
}

// LendingTenantCandidates ranks the tenants holding copies of instanceID.
// Configured exclusions and the tenants in exclude are left out.
func (t *TLR) LendingTenantCandidates(ctx context.Context, tenantID, instanceID string, exclude ...string) ([]string, error) {
	centralTenantID, err := t.settings.CentralTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	instance, err := tenant.Call(ctx, centralTenantID, func(ctx context.Context, tenantID string) (*model.SearchInstance, error) {
		return t.downstream.SearchInstance(ctx, tenantID, instanceID)
	})
	if err != nil {
		return nil, err
	}
	if instance == nil {
		logrus.WithField("instance", instanceID).Info("instance not found in consortium search")
		return nil, nil
	}

	skip := func(tenantID string) bool {
		if t.settings.isExcluded(tenantID) {
			return true
		}
		for _, e := range exclude {
			if e == tenantID {
				return true
			}
		}
		return false
	}
	return newTenantAvailability(instance.Items, skip).ranked(), nil
}

// PickLendingTenant returns the best lending tenant for instanceID, or false
// when no tenant qualifies.
func (t *TLR) PickLendingTenant(ctx context.Context, tenantID, instanceID string) (string, bool, error) {
	candidates, err := t.LendingTenantCandidates(ctx, tenantID, instanceID)
	if err != nil || len(candidates) == 0 {
		return "", false, err
	}
	return candidates[0], true, nil
}
