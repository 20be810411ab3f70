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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tlr/internal/apierror"
	"github.com/jerry-enebeli/tlr/internal/tenant"
	"github.com/jerry-enebeli/tlr/model"
)

// LoanAction describes one circulation action that is mirrored into the
// lending tenant of a chain.
type LoanAction struct {
	Name string
	Path string
	Body func(req model.LoanActionRequest) interface{}
}

func actionDate(req model.LoanActionRequest) time.Time {
	if req.ActionDate != nil {
		return req.ActionDate.UTC()
	}
	return time.Now().UTC()
}

var (
	DeclareItemLost = LoanAction{
		Name: "declare-item-lost",
		Path: "declare-item-lost",
		Body: func(req model.LoanActionRequest) interface{} {
			return map[string]interface{}{
				"declaredLostDateTime": actionDate(req),
				"servicePointId":       req.ServicePointID,
				"comment":              req.Comment,
			}
		},
	}
	ClaimItemReturned = LoanAction{
		Name: "claim-item-returned",
		Path: "claim-item-returned",
		Body: func(req model.LoanActionRequest) interface{} {
			return map[string]interface{}{
				"itemClaimedReturnedDateTime": actionDate(req),
				"comment":                     req.Comment,
			}
		},
	}
	DeclareClaimedReturnedItemAsMissing = LoanAction{
		Name: "declare-claimed-returned-item-as-missing",
		Path: "declare-claimed-returned-item-as-missing",
		Body: func(req model.LoanActionRequest) interface{} {
			return map[string]interface{}{"comment": req.Comment}
		},
	}
)

// ValidateLoanActionRequest accepts either a loan id alone or an item id
// together with a user id.
func ValidateLoanActionRequest(req model.LoanActionRequest) error {
	byLoan := req.LoanID != "" && req.ItemID == "" && req.UserID == ""
	byItemAndUser := req.LoanID == "" && req.ItemID != "" && req.UserID != ""
	if byLoan || byItemAndUser {
		return nil
	}
	return apierror.NewValidationError(apierror.ErrInvalidLoanAction,
		"Invalid request: must have either loanId or (itemId and userId)",
		apierror.Parameter{Key: "loanId", Value: req.LoanID},
		apierror.Parameter{Key: "itemId", Value: req.ItemID},
		apierror.Parameter{Key: "userId", Value: req.UserID})
}

// PerformLoanAction runs action on the local loan and then on the open loan
// for the same user and item in the chain's lending tenant. A failure after the
// local action succeeded is reported in the result instead of as an error.
func (t *TLR) PerformLoanAction(ctx context.Context, tenantID string, action LoanAction, req model.LoanActionRequest) (*model.LoanActionResult, error) {
	if err := ValidateLoanActionRequest(req); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "PerformLoanAction")
	defer span.End()

	loan, err := t.resolveLoan(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	body := action.Body(req)
	err = tenant.Run(ctx, tenantID, func(ctx context.Context, tenantID string) error {
		return t.downstream.PerformLoanAction(ctx, tenantID, loan.ID, action.Path, body)
	})
	if err != nil {
		return nil, err
	}

	result := &model.LoanActionResult{Action: action.Name, LoanID: loan.ID, TenantID: tenantID}
	log := logrus.WithFields(logrus.Fields{"action": action.Name, "loan": loan.ID, "tenant": tenantID})

	chain, err := t.datasource.FindEcsTlrByItemAndRequester(ctx, loan.ItemID, loan.UserID)
	if err != nil {
		result.MirrorError = fmt.Sprintf("looking up request chain: %v", err)
		log.Warn(result.MirrorError)
		return result, nil
	}
	if chain == nil || chain.SecondaryRequestTenantID == "" || chain.SecondaryRequestTenantID == tenantID {
		log.Info("loan action performed locally only")
		return result, nil
	}

	result.MirrorTenantID = chain.SecondaryRequestTenantID
	err = tenant.Run(ctx, chain.SecondaryRequestTenantID, func(ctx context.Context, lendingTenantID string) error {
		mirror, err := t.downstream.FindOpenLoan(ctx, lendingTenantID, loan.UserID, loan.ItemID)
		if err != nil {
			return err
		}
		if mirror == nil {
			return fmt.Errorf("no open loan for user %s and item %s", loan.UserID, loan.ItemID)
		}
		result.MirrorLoanID = mirror.ID
		return t.downstream.PerformLoanAction(ctx, lendingTenantID, mirror.ID, action.Path, body)
	})
	if err != nil {
		result.MirrorError = err.Error()
		log.WithField("lending_tenant", chain.SecondaryRequestTenantID).Errorf("mirroring loan action failed: %v", err)
		return result, nil
	}
	log.WithField("lending_tenant", chain.SecondaryRequestTenantID).Info("loan action mirrored")
	return result, nil
}

func (t *TLR) resolveLoan(ctx context.Context, tenantID string, req model.LoanActionRequest) (*model.Loan, error) {
	if req.LoanID != "" {
		loan, err := tenant.Call(ctx, tenantID, func(ctx context.Context, tenantID string) (*model.Loan, error) {
			return t.downstream.FindLoan(ctx, tenantID, req.LoanID)
		})
		if err != nil {
			return nil, err
		}
		if loan == nil {
			return nil, apierror.NewValidationError(apierror.ErrLoanNotFound,
				fmt.Sprintf("Loan %s not found", req.LoanID),
				apierror.Parameter{Key: "loanId", Value: req.LoanID})
		}
		return loan, nil
	}

	loan, err := tenant.Call(ctx, tenantID, func(ctx context.Context, tenantID string) (*model.Loan, error) {
		return t.downstream.FindOpenLoan(ctx, tenantID, req.UserID, req.ItemID)
	})
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, apierror.NewValidationError(apierror.ErrLoanNotFound,
			fmt.Sprintf("Open loan for item %s and user %s not found", req.ItemID, req.UserID),
			apierror.Parameter{Key: "itemId", Value: req.ItemID},
			apierror.Parameter{Key: "userId", Value: req.UserID})
	}
	return loan, nil
}

func (t *TLR) DeclareItemLost(ctx context.Context, tenantID string, req model.LoanActionRequest) (*model.LoanActionResult, error) {
	return t.PerformLoanAction(ctx, tenantID, DeclareItemLost, req)
}

func (t *TLR) ClaimItemReturned(ctx context.Context, tenantID string, req model.LoanActionRequest) (*model.LoanActionResult, error) {
	return t.PerformLoanAction(ctx, tenantID, ClaimItemReturned, req)
}

func (t *TLR) DeclareClaimedReturnedItemAsMissing(ctx context.Context, tenantID string, req model.LoanActionRequest) (*model.LoanActionResult, error) {
	return t.PerformLoanAction(ctx, tenantID, DeclareClaimedReturnedItemAsMissing, req)
}
