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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/tlr/model"
)

func openLoan(id string, due time.Time, renewals int) *model.Loan {
	return &model.Loan{
		ID:           id,
		UserID:       "user-1",
		ItemID:       "item-1",
		Status:       model.LoanStatus{Name: model.LoanStatusOpen},
		DueDate:      &due,
		RenewalCount: renewals,
	}
}

func loanEvent(tenantID string, oldLoan, newLoan *model.Loan) model.LoanEvent {
	return model.LoanEvent{
		ID:       "evt-loan-1",
		Type:     model.EventUpdated,
		TenantID: tenantID,
		Data:     model.EventData[model.Loan]{Old: oldLoan, New: newLoan},
	}
}

func TestHandleLoanUpdated_PropagatesRenewal(t *testing.T) {
	due := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	renewed := due.AddDate(0, 0, 14)

	down := newFakeDownstream()
	chain := linkedChain(down, model.TransactionItemCheckedOut)
	ensure(down.loans, universityTenant)["loan-u"] = *openLoan("loan-u", due, 0)
	ensure(down.loans, centralTenant)["loan-c"] = *openLoan("loan-c", due, 0)
	tlr := newTestTLR(t, newFakeStore(chain), down)
	ctx := context.Background()

	event := loanEvent(collegeTenant, openLoan("loan-p", due, 0), openLoan("loan-p", renewed, 1))
	require.NoError(t, tlr.HandleLoanUpdated(ctx, event))

	assert.True(t, down.loans[universityTenant]["loan-u"].DueDate.Equal(renewed))
	assert.True(t, down.loans[centralTenant]["loan-c"].DueDate.Equal(renewed))
	assert.ElementsMatch(t, []string{universityTenant + "/loan-u", centralTenant + "/loan-c"}, down.dueDateChanges)

	require.NoError(t, tlr.HandleLoanUpdated(ctx, event))
	assert.Len(t, down.dueDateChanges, 2, "replay does not rewrite equal due dates")
}

func TestHandleLoanUpdated_NotARenewal(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	down := newFakeDownstream()
	chain := linkedChain(down, model.TransactionItemCheckedOut)
	ensure(down.loans, universityTenant)["loan-u"] = *openLoan("loan-u", due, 0)
	tlr := newTestTLR(t, newFakeStore(chain), down)

	moved := openLoan("loan-p", due.AddDate(0, 0, 3), 0)
	require.NoError(t, tlr.HandleLoanUpdated(context.Background(), loanEvent(collegeTenant, openLoan("loan-p", due, 0), moved)))
	assert.Empty(t, down.dueDateChanges, "a due date change without a renewal is not mirrored")
}

func checkedIn(l *model.Loan) *model.Loan {
	l.Action = model.LoanActionCheckedIn
	l.Status = model.LoanStatus{Name: "Closed"}
	return l
}

func TestHandleLoanUpdated_BorrowingSideCheckIn(t *testing.T) {
	due := time.Now().UTC()
	down := newFakeDownstream()
	chain := linkedChain(down, model.TransactionItemCheckedOut)
	tlr := newTestTLR(t, newFakeStore(chain), down)
	ctx := context.Background()

	event := loanEvent(collegeTenant, openLoan("loan-p", due, 0), checkedIn(openLoan("loan-p", due, 0)))
	require.NoError(t, tlr.HandleLoanUpdated(ctx, event))

	for tenantID, txnID := range map[string]string{universityTenant: "txn-sec", collegeTenant: "txn-pri", centralTenant: "txn-int"} {
		assert.Equal(t, model.TransactionItemCheckedIn, down.transactionStatus(tenantID, txnID), txnID)
	}
	writes := len(down.statusWrites)

	require.NoError(t, tlr.HandleLoanUpdated(ctx, event))
	assert.Len(t, down.statusWrites, writes, "replay leaves transactions alone")
}

func TestHandleLoanUpdated_LendingSideCheckIn(t *testing.T) {
	due := time.Now().UTC()
	down := newFakeDownstream()
	chain := linkedChain(down, model.TransactionItemCheckedIn)
	tlr := newTestTLR(t, newFakeStore(chain), down)

	event := loanEvent(universityTenant, openLoan("loan-u", due, 0), checkedIn(openLoan("loan-u", due, 0)))
	require.NoError(t, tlr.HandleLoanUpdated(context.Background(), event))

	for tenantID, txnID := range map[string]string{universityTenant: "txn-sec", collegeTenant: "txn-pri", centralTenant: "txn-int"} {
		assert.Equal(t, model.TransactionClosed, down.transactionStatus(tenantID, txnID), txnID)
	}
}

func TestHandleLoanUpdated_LendingSideCheckInSkippingBorrowingSide(t *testing.T) {
	due := time.Now().UTC()
	down := newFakeDownstream()
	chain := linkedChain(down, model.TransactionItemCheckedOut)
	tlr := newTestTLR(t, newFakeStore(chain), down)

	event := loanEvent(universityTenant, openLoan("loan-u", due, 0), checkedIn(openLoan("loan-u", due, 0)))
	require.NoError(t, tlr.HandleLoanUpdated(context.Background(), event))

	assert.Equal(t, model.TransactionItemCheckedOut, down.transactionStatus(universityTenant, "txn-sec"), "lender waits for its own check-in")
	assert.Equal(t, model.TransactionClosed, down.transactionStatus(collegeTenant, "txn-pri"))
	assert.Equal(t, model.TransactionClosed, down.transactionStatus(centralTenant, "txn-int"))
}

func TestHandleLoanUpdated_CheckInElsewhereIgnored(t *testing.T) {
	due := time.Now().UTC()
	down := newFakeDownstream()
	chain := linkedChain(down, model.TransactionItemCheckedOut)
	tlr := newTestTLR(t, newFakeStore(chain), down)

	event := loanEvent(centralTenant, openLoan("loan-c", due, 0), checkedIn(openLoan("loan-c", due, 0)))
	require.NoError(t, tlr.HandleLoanUpdated(context.Background(), event))
	assert.Empty(t, down.statusWrites)

	unrelated := loanEvent(collegeTenant, openLoan("loan-x", due, 0), checkedIn(openLoan("loan-x", due, 0)))
	unrelated.Data.New.UserID = "someone-else"
	unrelated.Data.Old.UserID = "someone-else"
	require.NoError(t, tlr.HandleLoanUpdated(context.Background(), unrelated))
	assert.Empty(t, down.statusWrites)
}
