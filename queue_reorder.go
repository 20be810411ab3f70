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
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tlr/internal/tenant"
	"github.com/jerry-enebeli/tlr/model"
)

// permuteQueuePositions hands the positions currently held by the requests in
// order back out in that order. Only requests whose position changes are
// returned. Requests in order but missing from current are skipped.
func permuteQueuePositions(order []string, current map[string]int) map[string]int {
	var ids []string
	var slots []int
	seen := map[string]bool{}
	for _, id := range order {
		pos, ok := current[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		slots = append(slots, pos)
	}
	sort.Ints(slots)

	changed := map[string]int{}
	for i, id := range ids {
		if current[id] != slots[i] {
			changed[id] = slots[i]
		}
	}
	return changed
}

// HandleRequestQueueReordered aligns the local queues of lending tenants with
// the consortium queue kept in the central tenant.
func (t *TLR) HandleRequestQueueReordered(ctx context.Context, event model.RequestsBatchUpdateEvent) error {
	log := logrus.WithFields(logrus.Fields{"event": event.ID, "tenant": event.TenantID})
	batch := event.Data.New
	if batch == nil || batch.InstanceID == "" {
		log.Debug("ignoring queue event without instance")
		return nil
	}
	centralTenantID, err := t.settings.CentralTenantID(ctx, event.TenantID)
	if err != nil {
		return err
	}
	if event.TenantID != "" && event.TenantID != centralTenantID {
		log.Debug("ignoring queue event outside the central tenant")
		return nil
	}

	ctx, span := tracer.Start(ctx, "HandleRequestQueueReordered")
	defer span.End()

	byItem := batch.RequestLevel == model.RequestLevelItem && batch.ItemID != ""
	fetchQueue := func(ctx context.Context, tenantID string) ([]model.Request, error) {
		if byItem {
			return t.downstream.GetRequestsQueueByItemID(ctx, tenantID, batch.ItemID)
		}
		return t.downstream.GetRequestsQueueByInstanceID(ctx, tenantID, batch.InstanceID)
	}

	centralQueue, err := tenant.Call(ctx, centralTenantID, fetchQueue)
	if err != nil {
		return err
	}
	sort.SliceStable(centralQueue, func(i, j int) bool { return centralQueue[i].Position < centralQueue[j].Position })

	centralIDs := make([]string, 0, len(centralQueue))
	for _, req := range centralQueue {
		centralIDs = append(centralIDs, req.ID)
	}
	chains, err := t.datasource.FindEcsTlrsByCentralRequestIDs(ctx, centralIDs)
	if err != nil {
		return err
	}
	chainByCentralID := map[string]*model.EcsTlr{}
	for _, chain := range chains {
		if chain.PrimaryRequestTenantID == centralTenantID {
			chainByCentralID[chain.PrimaryRequestID] = chain
		}
		if chain.IntermediateRequestTenantID == centralTenantID {
			chainByCentralID[chain.IntermediateRequestID] = chain
		}
	}

	var lendingTenants []string
	orderByTenant := map[string][]string{}
	for _, id := range centralIDs {
		chain, ok := chainByCentralID[id]
		if !ok || chain.SecondaryRequestID == "" {
			continue
		}
		lender := chain.SecondaryRequestTenantID
		if _, ok := orderByTenant[lender]; !ok {
			lendingTenants = append(lendingTenants, lender)
		}
		orderByTenant[lender] = append(orderByTenant[lender], chain.SecondaryRequestID)
	}

	var errs []error
	for _, lender := range lendingTenants {
		order := orderByTenant[lender]
		err := tenant.Run(ctx, lender, func(ctx context.Context, tenantID string) error {
			queue, err := fetchQueue(ctx, tenantID)
			if err != nil {
				return err
			}
			current := map[string]int{}
			requests := map[string]model.Request{}
			for _, req := range queue {
				current[req.ID] = req.Position
				requests[req.ID] = req
			}
			changed := permuteQueuePositions(order, current)
			for _, id := range order {
				newPosition, ok := changed[id]
				if !ok {
					continue
				}
				req := requests[id]
				req.Position = newPosition
				if err := t.downstream.UpdateRequest(ctx, tenantID, &req); err != nil {
					return err
				}
				log.WithFields(logrus.Fields{"request": id, "lender": tenantID, "position": newPosition}).Info("queue position updated")
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
