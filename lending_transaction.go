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
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tlr/internal/okapi"
	"github.com/jerry-enebeli/tlr/internal/tenant"
	"github.com/jerry-enebeli/tlr/model"
)

var transactionStatusByRequestStatus = map[string]model.TransactionStatus{
	model.RequestStatusOpenInTransit:        model.TransactionOpen,
	model.RequestStatusOpenAwaitingPickup:   model.TransactionAwaitingPickup,
	model.RequestStatusOpenAwaitingDelivery: model.TransactionAwaitingPickup,
	model.RequestStatusClosedFilled:         model.TransactionItemCheckedOut,
	model.RequestStatusClosedCancelled:      model.TransactionCancelled,
}

// transactionStatusForRequest maps a request status change to the transaction
// status it implies. Unchanged or unmapped statuses imply nothing.
func transactionStatusForRequest(oldStatus, newStatus string) (model.TransactionStatus, bool) {
	if oldStatus == newStatus {
		return "", false
	}
	status, ok := transactionStatusByRequestStatus[newStatus]
	return status, ok
}

type checkInKey struct {
	borrowingSide bool
	role          model.TransactionRole
	current       model.TransactionStatus
}

// checkInTransitions drives transactions on a loan check-in. Any check-in on
// the borrowing side returns custody. Borrowing-side legs close once the item
// is back at the lending tenant, even if their own check-in was missed. The
// lender closes only after it has itself seen the item checked in.
var checkInTransitions = map[checkInKey]model.TransactionStatus{
	{true, model.RolePickup, model.TransactionItemCheckedOut}:           model.TransactionItemCheckedIn,
	{true, model.RoleBorrowingPickup, model.TransactionItemCheckedOut}:  model.TransactionItemCheckedIn,
	{true, model.RoleBorrower, model.TransactionItemCheckedOut}:         model.TransactionItemCheckedIn,
	{true, model.RoleLender, model.TransactionItemCheckedOut}:           model.TransactionItemCheckedIn,
	{false, model.RolePickup, model.TransactionItemCheckedIn}:           model.TransactionClosed,
	{false, model.RolePickup, model.TransactionItemCheckedOut}:          model.TransactionClosed,
	{false, model.RoleBorrowingPickup, model.TransactionItemCheckedIn}:  model.TransactionClosed,
	{false, model.RoleBorrowingPickup, model.TransactionItemCheckedOut}: model.TransactionClosed,
	{false, model.RoleBorrower, model.TransactionItemCheckedIn}:         model.TransactionClosed,
	{false, model.RoleBorrower, model.TransactionItemCheckedOut}:        model.TransactionClosed,
	{false, model.RoleLender, model.TransactionItemCheckedIn}:           model.TransactionClosed,
}

func transactionStatusOnCheckIn(role model.TransactionRole, current model.TransactionStatus, borrowingSideEvent bool) (model.TransactionStatus, bool) {
	next, ok := checkInTransitions[checkInKey{borrowingSideEvent, role, current}]
	return next, ok
}

// CreateTransaction registers a lending transaction for one chain leg and
// returns its id.
func (t *TLR) CreateTransaction(ctx context.Context, role model.TransactionRole, txn model.DcbTransaction, tenantID string) (string, error) {
	transactionID := uuid.NewString()
	txn.Role = role
	_, err := tenant.Call(ctx, tenantID, func(ctx context.Context, tenantID string) (*model.TransactionStatusResponse, error) {
		return t.downstream.CreateTransaction(ctx, tenantID, transactionID, &txn)
	})
	if err != nil {
		return "", fmt.Errorf("creating %s transaction in %s: %w", role, tenantID, err)
	}
	logrus.WithFields(logrus.Fields{
		"transaction": transactionID,
		"role":        role,
		"request":     txn.RequestID,
		"tenant":      tenantID,
	}).Info("lending transaction created")
	return transactionID, nil
}

// createTransactions creates the missing transactions of every populated leg.
// It reports whether the chain changed.
func (t *TLR) createTransactions(ctx context.Context, chain *model.EcsTlr) (bool, error) {
	if chain.ItemID == "" {
		return false, nil
	}
	item := t.dcbItem(ctx, chain)
	changed := false
	for _, leg := range chain.Legs() {
		if *leg.TransactionID != "" {
			continue
		}
		id, err := t.CreateTransaction(ctx, chain.TransactionRole(leg.Leg), model.DcbTransaction{
			RequestID: *leg.RequestID,
			Item:      item,
			Patron:    model.DcbPatron{ID: chain.RequesterID},
			Pickup:    model.DcbPickup{ServicePointID: chain.PickupServicePointID},
		}, *leg.TenantID)
		if err != nil {
			return changed, err
		}
		*leg.TransactionID = id
		changed = true
	}
	return changed, nil
}

func (t *TLR) dcbItem(ctx context.Context, chain *model.EcsTlr) model.DcbItem {
	item := model.DcbItem{ID: chain.ItemID, LendingLibraryCode: chain.SecondaryRequestTenantID}
	found, err := tenant.Call(ctx, chain.SecondaryRequestTenantID, func(ctx context.Context, tenantID string) (*model.InventoryItem, error) {
		return t.downstream.FindItem(ctx, tenantID, chain.ItemID)
	})
	if err != nil {
		logrus.WithField("item", chain.ItemID).Warnf("looking up item for transaction: %v", err)
		return item
	}
	if found != nil {
		item.Barcode = found.Barcode
	}
	return item
}

// UpdateTransactionStatus moves a transaction to newStatus. Writes that are
// already applied or would move the transaction backwards are skipped, and a
// transaction that no longer exists is ignored.
func (t *TLR) UpdateTransactionStatus(ctx context.Context, transactionID string, newStatus model.TransactionStatus, tenantID string) error {
	log := logrus.WithFields(logrus.Fields{"transaction": transactionID, "tenant": tenantID, "status": newStatus})
	return tenant.Run(ctx, tenantID, func(ctx context.Context, tenantID string) error {
		current, err := t.downstream.GetTransactionStatus(ctx, tenantID, transactionID)
		if okapi.IsNotFound(err) {
			log.Warn("transaction not found, skipping status update")
			return nil
		}
		if err != nil {
			return err
		}
		if current.Status == newStatus {
			log.Debug("transaction status already applied")
			return nil
		}
		if !current.Status.CanMoveTo(newStatus) {
			log.Infof("skipping transaction status change from %s", current.Status)
			return nil
		}

		if current.Status == model.TransactionCreated && newStatus == model.TransactionAwaitingPickup {
			if err := t.writeTransactionStatus(ctx, tenantID, transactionID, model.TransactionOpen); err != nil {
				return err
			}
		}
		if err := t.writeTransactionStatus(ctx, tenantID, transactionID, newStatus); err != nil {
			return err
		}
		log.Infof("transaction status changed from %s", current.Status)
		return nil
	})
}

func (t *TLR) writeTransactionStatus(ctx context.Context, tenantID, transactionID string, status model.TransactionStatus) error {
	err := t.downstream.UpdateTransactionStatus(ctx, tenantID, transactionID, status)
	if okapi.IsNotFound(err) {
		logrus.WithField("transaction", transactionID).Warn("transaction removed before status update")
		return nil
	}
	return err
}
