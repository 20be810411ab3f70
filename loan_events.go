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

func isRenewal(oldLoan, newLoan *model.Loan) bool {
	if newLoan.DueDate == nil || newLoan.RenewalCount <= oldLoan.RenewalCount {
		return false
	}
	return oldLoan.DueDate == nil || !oldLoan.DueDate.Equal(*newLoan.DueDate)
}

func isCheckIn(oldLoan, newLoan *model.Loan) bool {
	return newLoan.Action == model.LoanActionCheckedIn && oldLoan.Action != model.LoanActionCheckedIn
}

// HandleLoanUpdated mirrors renewals into the other tenants of the chain and
// advances lending transactions when the item is checked in.
func (t *TLR) HandleLoanUpdated(ctx context.Context, event model.LoanEvent) error {
	log := logrus.WithFields(logrus.Fields{"event": event.ID, "tenant": event.TenantID})
	if !event.IsUpdate() {
		log.Debugf("ignoring loan event of type %s", event.Type)
		return nil
	}
	oldLoan, newLoan := event.Data.Old, event.Data.New

	switch {
	case isRenewal(oldLoan, newLoan):
		return t.propagateDueDate(ctx, event.TenantID, newLoan)
	case isCheckIn(oldLoan, newLoan):
		return t.handleCheckIn(ctx, event.TenantID, newLoan)
	}
	log.Debug("ignoring loan update")
	return nil
}

func (t *TLR) propagateDueDate(ctx context.Context, eventTenantID string, loan *model.Loan) error {
	ctx, span := tracer.Start(ctx, "PropagateDueDate")
	defer span.End()

	chain, err := t.datasource.FindEcsTlrByItemAndRequester(ctx, loan.ItemID, loan.UserID)
	if err != nil || chain == nil {
		return err
	}
	var tenants []string
	for _, id := range chain.TenantIDs() {
		if id != eventTenantID {
			tenants = append(tenants, id)
		}
	}
	dueDate := *loan.DueDate
	return t.fanOut(ctx, tenants, func(ctx context.Context, tenantID string) error {
		mirror, err := t.downstream.FindOpenLoan(ctx, tenantID, loan.UserID, loan.ItemID)
		if err != nil || mirror == nil {
			return err
		}
		if mirror.DueDate != nil && mirror.DueDate.Equal(dueDate) {
			return nil
		}
		logrus.WithFields(logrus.Fields{"loan": mirror.ID, "tenant": tenantID}).Info("propagating due date")
		return t.downstream.ChangeDueDate(ctx, tenantID, mirror.ID, dueDate)
	})
}

func (t *TLR) handleCheckIn(ctx context.Context, eventTenantID string, loan *model.Loan) error {
	ctx, span := tracer.Start(ctx, "HandleCheckIn")
	defer span.End()

	chain, err := t.datasource.FindEcsTlrByItemAndRequester(ctx, loan.ItemID, loan.UserID)
	if err != nil || chain == nil {
		return err
	}

	var borrowingSide bool
	switch eventTenantID {
	case chain.PrimaryRequestTenantID:
		borrowingSide = true
	case chain.SecondaryRequestTenantID:
		borrowingSide = false
	default:
		logrus.WithFields(logrus.Fields{"chain": chain.ID, "tenant": eventTenantID}).Info("check-in outside chain tenants ignored")
		return nil
	}

	return t.withChainLock(ctx, chain.ID, func() error {
		var errs []error
		for _, leg := range chain.Legs() {
			if *leg.TransactionID == "" {
				continue
			}
			ref := leg
			current, err := tenant.Call(ctx, *ref.TenantID, func(ctx context.Context, tenantID string) (*model.TransactionStatusResponse, error) {
				return t.downstream.GetTransactionStatus(ctx, tenantID, *ref.TransactionID)
			})
			if okapi.IsNotFound(err) {
				continue
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			role := current.Role
			if role == "" {
				role = chain.TransactionRole(ref.Leg)
			}
			next, ok := transactionStatusOnCheckIn(role, current.Status, borrowingSide)
			if !ok {
				continue
			}
			if err := t.UpdateTransactionStatus(ctx, *ref.TransactionID, next, *ref.TenantID); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
