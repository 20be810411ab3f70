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
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"

	"github.com/jerry-enebeli/tlr/internal/tenant"
	"github.com/jerry-enebeli/tlr/model"
)

// HandleRequestUpdated records the item a secondary request resolved to,
// creates the lending transactions once the item is known and moves the leg's
// transaction along with the request status.
func (t *TLR) HandleRequestUpdated(ctx context.Context, event model.RequestEvent) error {
	log := logrus.WithFields(logrus.Fields{"event": event.ID, "tenant": event.TenantID})
	if !event.IsUpdate() {
		log.Debugf("ignoring request event of type %s", event.Type)
		return nil
	}
	oldReq, newReq := event.Data.Old, event.Data.New
	leg, ok := model.LegForPhase(newReq.EcsRequestPhase)
	if !ok {
		return nil
	}
	if leg == model.LegSecondary && newReq.ItemID == "" {
		log.WithField("request", newReq.ID).Debug("secondary request has no item yet")
		return nil
	}

	found, err := t.datasource.FindEcsTlrByRequestID(ctx, leg, newReq.ID)
	if err != nil {
		return err
	}
	if found == nil {
		log.WithField("request", newReq.ID).Info("no chain for request")
		return nil
	}
	if event.TenantID != "" && *found.Leg(leg).TenantID != event.TenantID {
		log.WithField("chain", found.ID).Warnf("%s request event from unexpected tenant", leg)
		return nil
	}

	ctx, span := tracer.Start(ctx, "HandleRequestUpdated")
	defer span.End()

	return t.withChainLock(ctx, found.ID, func() error {
		chain, err := t.datasource.GetEcsTlrByID(ctx, found.ID)
		if err != nil {
			return err
		}

		changed := false
		if leg == model.LegSecondary && chain.SetItemID(newReq.ItemID, newReq.HoldingsRecordID) {
			log.WithFields(logrus.Fields{"chain": chain.ID, "item": chain.ItemID}).Info("item resolved for chain")
			t.registerCirculationItems(ctx, chain)
			changed = true
		}
		created, txnErr := t.createTransactions(ctx, chain)
		if changed || created {
			if err := t.datasource.UpdateEcsTlr(ctx, chain); err != nil {
				return err
			}
		}
		if txnErr != nil {
			return txnErr
		}

		if err := t.syncTransactionStatus(ctx, chain, leg, oldReq.Status, newReq.Status); err != nil {
			return err
		}
		if leg == model.LegPrimary && newReq.Status == model.RequestStatusClosedCancelled && oldReq.Status != newReq.Status {
			return t.cancelOtherLegs(ctx, chain)
		}
		return nil
	})
}

func (t *TLR) syncTransactionStatus(ctx context.Context, chain *model.EcsTlr, leg model.Leg, oldStatus, newStatus string) error {
	status, ok := transactionStatusForRequest(oldStatus, newStatus)
	if !ok {
		return nil
	}
	ref := chain.Leg(leg)
	if *ref.TransactionID == "" {
		logrus.WithFields(logrus.Fields{"chain": chain.ID, "leg": leg}).Info("no transaction to update")
		return nil
	}
	return t.UpdateTransactionStatus(ctx, *ref.TransactionID, status, *ref.TenantID)
}

// cancelOtherLegs follows a cancelled primary request through the rest of the chain.
func (t *TLR) cancelOtherLegs(ctx context.Context, chain *model.EcsTlr) error {
	var errs []error
	for _, leg := range chain.Legs() {
		if leg.Leg == model.LegPrimary {
			continue
		}
		err := t.cancelRequest(ctx, *leg.TenantID, *leg.RequestID)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// cancelRequest cancels requestID in tenantID unless it is already closed.
func (t *TLR) cancelRequest(ctx context.Context, tenantID, requestID string) error {
	return tenant.Run(ctx, tenantID, func(ctx context.Context, tenantID string) error {
		req, err := t.downstream.FindRequest(ctx, tenantID, requestID)
		if err != nil || req == nil || !req.IsOpen() {
			return err
		}
		req.Status = model.RequestStatusClosedCancelled
		req.CancelledDate = ptr.Time(time.Now().UTC())
		logrus.WithFields(logrus.Fields{"request": requestID, "tenant": tenantID}).Info("cancelling request")
		return t.downstream.UpdateRequest(ctx, tenantID, req)
	})
}
