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

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tlr/internal/okapi"
	"github.com/jerry-enebeli/tlr/internal/tenant"
	"github.com/jerry-enebeli/tlr/model"
)

// HandleItemUpdated spreads a newly assigned barcode to the circulation items
// and lending transactions of every chain that lends the item.
func (t *TLR) HandleItemUpdated(ctx context.Context, event model.ItemEvent) error {
	log := logrus.WithFields(logrus.Fields{"event": event.ID, "tenant": event.TenantID})
	if !event.IsUpdate() {
		log.Debugf("ignoring item event of type %s", event.Type)
		return nil
	}
	oldItem, newItem := event.Data.Old, event.Data.New
	if oldItem.Barcode != "" || newItem.Barcode == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "HandleItemUpdated")
	defer span.End()

	chains, err := t.datasource.FindEcsTlrsByItemID(ctx, newItem.ID)
	if err != nil {
		return err
	}
	var errs []error
	for _, chain := range chains {
		if event.TenantID != "" && chain.SecondaryRequestTenantID != event.TenantID {
			continue
		}
		err := t.withChainLock(ctx, chain.ID, func() error {
			return t.patchBarcode(ctx, chain, newItem.Barcode)
		})
		if err != nil {
			log.WithField("chain", chain.ID).Errorf("patching barcode: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *TLR) patchBarcode(ctx context.Context, chain *model.EcsTlr, barcode string) error {
	var tenants []string
	for _, leg := range []model.Leg{model.LegPrimary, model.LegIntermediate} {
		if id := *chain.Leg(leg).TenantID; id != "" && id != chain.SecondaryRequestTenantID {
			tenants = append(tenants, id)
		}
	}

	itemErr := t.fanOut(ctx, tenants, func(ctx context.Context, tenantID string) error {
		item, err := t.downstream.FindCirculationItem(ctx, tenantID, chain.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			logrus.WithFields(logrus.Fields{"item": chain.ItemID, "tenant": tenantID}).Info("no circulation item to patch")
			return nil
		}
		if item.Barcode == barcode {
			return nil
		}
		item.Barcode = barcode
		return t.downstream.UpdateCirculationItem(ctx, tenantID, item)
	})

	var txnErrs []error
	for _, leg := range chain.Legs() {
		if *leg.TransactionID == "" {
			continue
		}
		transactionID := *leg.TransactionID
		err := tenant.Run(ctx, *leg.TenantID, func(ctx context.Context, tenantID string) error {
			current, err := t.downstream.GetTransactionStatus(ctx, tenantID, transactionID)
			if okapi.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			item := model.DcbItem{ID: chain.ItemID}
			if current.Item != nil {
				if current.Item.Barcode == barcode {
					return nil
				}
				item = *current.Item
			}
			item.Barcode = barcode
			return t.downstream.UpdateTransactionItem(ctx, tenantID, transactionID, item)
		})
		if err != nil {
			txnErrs = append(txnErrs, err)
		}
	}
	return errors.Join(itemErr, errors.Join(txnErrs...))
}
