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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jerry-enebeli/tlr/internal/apierror"
	"github.com/jerry-enebeli/tlr/internal/tenant"
	"github.com/jerry-enebeli/tlr/model"
)

var tracer = otel.Tracer("tlr")

// CreateEcsTlr places chain across tenants: a secondary request in the first
// lending tenant that accepts it, a primary request in the borrowing tenant and,
// outside the central tenant, an intermediate request there.
func (t *TLR) CreateEcsTlr(ctx context.Context, callingTenantID string, chain *model.EcsTlr) (*model.EcsTlr, error) {
	ctx, span := tracer.Start(ctx, "CreateEcsTlr", trace.WithAttributes(
		attribute.String("instance.id", chain.InstanceID),
		attribute.String("requester.id", chain.RequesterID),
	))
	defer span.End()

	primaryTenantID, err := t.resolvePrimaryTenant(ctx, callingTenantID, chain)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	requester, err := t.validateRequester(ctx, primaryTenantID, chain)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := t.ensureNoOpenChain(ctx, chain); err != nil {
		span.RecordError(err)
		return nil, err
	}
	centralTenantID, err := t.settings.CentralTenantID(ctx, primaryTenantID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrTenantPicking, "failed to resolve central tenant", err)
	}
	candidates, err := t.lendingCandidates(ctx, primaryTenantID, chain)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	pickupPoint, err := t.findPickupServicePoint(ctx, primaryTenantID, chain)
	if err != nil {
		return nil, err
	}

	chain.ID = uuid.NewString()
	secondary, err := t.createSecondaryRequest(ctx, chain, requester, pickupPoint, candidates)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	chain.SecondaryRequestID = secondary.ID
	chain.SetItemID(secondary.ItemID, secondary.HoldingsRecordID)

	primary, err := t.createCentralLeg(ctx, primaryTenantID, model.LegPrimary, secondary.ID, secondary, nil, nil)
	if err != nil {
		t.compensate(ctx, chain)
		return nil, apierror.NewAPIError(apierror.ErrRequestCreating, fmt.Sprintf("failed to create primary request in tenant %s", primaryTenantID), err)
	}
	chain.PrimaryRequestID = primary.ID
	chain.PrimaryRequestTenantID = primaryTenantID

	if primaryTenantID != centralTenantID {
		intermediateID := secondary.ID
		if centralTenantID == chain.SecondaryRequestTenantID {
			// the central tenant lends; both legs live there and need distinct ids
			intermediateID = uuid.NewString()
		}
		intermediate, err := t.createCentralLeg(ctx, centralTenantID, model.LegIntermediate, intermediateID, secondary, requester, pickupPoint)
		if err != nil {
			t.compensate(ctx, chain)
			return nil, apierror.NewAPIError(apierror.ErrRequestCreating, fmt.Sprintf("failed to create intermediate request in tenant %s", centralTenantID), err)
		}
		chain.IntermediateRequestID = intermediate.ID
		chain.IntermediateRequestTenantID = centralTenantID
	}

	if chain.ItemID != "" {
		t.registerCirculationItems(ctx, chain)
		if _, err := t.createTransactions(ctx, chain); err != nil {
			logrus.WithField("chain", chain.ID).Warnf("deferring lending transactions: %v", err)
		}
	}

	if err := t.datasource.CreateEcsTlr(ctx, chain); err != nil {
		t.compensate(ctx, chain)
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"chain":          chain.ID,
		"primary":        chain.PrimaryRequestTenantID,
		"secondary":      chain.SecondaryRequestTenantID,
		"intermediate":   chain.IntermediateRequestTenantID,
		"candidates":     len(candidates),
		"item_known_now": chain.ItemID != "",
	}).Info("ecs tlr created")
	return chain, nil
}

func (t *TLR) resolvePrimaryTenant(ctx context.Context, callingTenantID string, chain *model.EcsTlr) (string, error) {
	if chain.PrimaryRequestTenantID != "" {
		return chain.PrimaryRequestTenantID, nil
	}
	if callingTenantID != "" {
		if centralTenantID, err := t.settings.CentralTenantID(ctx, callingTenantID); err == nil {
			affiliation, err := tenant.Call(ctx, centralTenantID, func(ctx context.Context, tenantID string) (*model.UserTenant, error) {
				return t.downstream.FindUserTenant(ctx, tenantID, chain.RequesterID)
			})
			if err == nil && affiliation != nil && affiliation.TenantID != "" {
				return affiliation.TenantID, nil
			}
			if err != nil {
				logrus.WithField("requester", chain.RequesterID).Warnf("looking up home tenant: %v", err)
			}
		}
		return callingTenantID, nil
	}
	return "", apierror.NewAPIError(apierror.ErrTenantPicking, "failed to resolve primary request tenant", nil)
}

func (t *TLR) validateRequester(ctx context.Context, primaryTenantID string, chain *model.EcsTlr) (*model.User, error) {
	requester, err := tenant.Call(ctx, primaryTenantID, func(ctx context.Context, tenantID string) (*model.User, error) {
		return t.downstream.FindUser(ctx, tenantID, chain.RequesterID)
	})
	if err != nil {
		return nil, err
	}
	if requester == nil || !requester.Active {
		return nil, apierror.NewValidationError(apierror.ErrInactivePatron,
			"ECS request cannot be placed for inactive patron",
			apierror.Parameter{Key: "requesterId", Value: chain.RequesterID})
	}
	return requester, nil
}

// ensureNoOpenChain rejects a second chain for a requester and title while
// the primary request of an earlier one is still open.
func (t *TLR) ensureNoOpenChain(ctx context.Context, chain *model.EcsTlr) error {
	existing, err := t.datasource.FindEcsTlrsByRequesterAndInstance(ctx, chain.RequesterID, chain.InstanceID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.PrimaryRequestID == "" {
			continue
		}
		req, err := tenant.Call(ctx, other.PrimaryRequestTenantID, func(ctx context.Context, tenantID string) (*model.Request, error) {
			return t.downstream.FindRequest(ctx, tenantID, other.PrimaryRequestID)
		})
		if err != nil {
			logrus.WithField("chain", other.ID).Warnf("checking existing chain: %v", err)
			continue
		}
		if req != nil && req.IsOpen() {
			return apierror.NewValidationError(apierror.ErrDuplicateEcsTlr,
				"Patron already has an open ECS TLR for this title",
				apierror.Parameter{Key: "requesterId", Value: chain.RequesterID},
				apierror.Parameter{Key: "instanceId", Value: chain.InstanceID},
				apierror.Parameter{Key: "ecsTlrId", Value: other.ID})
		}
	}
	return nil
}

func (t *TLR) lendingCandidates(ctx context.Context, primaryTenantID string, chain *model.EcsTlr) ([]string, error) {
	var candidates []string
	if chain.RequestLevel == model.RequestLevelItem && chain.ItemID != "" {
		centralTenantID, err := t.settings.CentralTenantID(ctx, primaryTenantID)
		if err != nil {
			return nil, err
		}
		item, err := tenant.Call(ctx, centralTenantID, func(ctx context.Context, tenantID string) (*model.SearchItem, error) {
			return t.downstream.SearchItem(ctx, tenantID, chain.ItemID)
		})
		if err != nil {
			return nil, err
		}
		if item != nil && item.TenantID != primaryTenantID && !t.settings.isExcluded(item.TenantID) {
			candidates = append(candidates, item.TenantID)
			if chain.HoldingsRecordID == "" {
				chain.HoldingsRecordID = item.HoldingsRecordID
			}
		}
	} else {
		var err error
		candidates, err = t.LendingTenantCandidates(ctx, primaryTenantID, chain.InstanceID, primaryTenantID)
		if err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrTenantPicking,
			fmt.Sprintf("failed to find lending tenant for instance %s", chain.InstanceID), nil)
	}
	return candidates, nil
}

func (t *TLR) findPickupServicePoint(ctx context.Context, primaryTenantID string, chain *model.EcsTlr) (*model.ServicePoint, error) {
	if chain.PickupServicePointID == "" {
		return nil, nil
	}
	return tenant.Call(ctx, primaryTenantID, func(ctx context.Context, tenantID string) (*model.ServicePoint, error) {
		return t.downstream.FindServicePoint(ctx, tenantID, chain.PickupServicePointID)
	})
}

func newLegRequest(chain *model.EcsTlr, leg model.Leg) *model.Request {
	return &model.Request{
		RequestLevel:          chain.RequestLevel,
		RequestType:           chain.RequestType,
		EcsRequestPhase:       string(leg),
		RequestDate:           ptr.Time(time.Now().UTC()),
		RequesterID:           chain.RequesterID,
		InstanceID:            chain.InstanceID,
		HoldingsRecordID:      chain.HoldingsRecordID,
		ItemID:                chain.ItemID,
		FulfillmentPreference: chain.FulfillmentPreference,
		PickupServicePointID:  chain.PickupServicePointID,
		RequestExpirationDate: chain.RequestExpirationDate,
		PatronComments:        chain.PatronComments,
	}
}

// createSecondaryRequest tries candidates one at a time and stops at the
// first tenant that accepts the request.
func (t *TLR) createSecondaryRequest(ctx context.Context, chain *model.EcsTlr, requester *model.User, pickupPoint *model.ServicePoint, candidates []string) (*model.Request, error) {
	var errs []error
	for _, candidate := range candidates {
		created, err := tenant.Call(ctx, candidate, func(ctx context.Context, tenantID string) (*model.Request, error) {
			if _, err := t.ensureShadowUser(ctx, tenantID, requester); err != nil {
				return nil, err
			}
			if pickupPoint != nil {
				if _, err := t.ensureShadowServicePoint(ctx, tenantID, pickupPoint); err != nil {
					return nil, err
				}
			}
			return t.downstream.CreateRequest(ctx, tenantID, newLegRequest(chain, model.LegSecondary))
		})
		if err == nil {
			chain.SecondaryRequestTenantID = candidate
			logrus.WithFields(logrus.Fields{"chain": chain.ID, "tenant": candidate}).Info("secondary request created")
			return created, nil
		}
		logrus.WithFields(logrus.Fields{"chain": chain.ID, "tenant": candidate}).Warnf("secondary request failed: %v", err)
		errs = append(errs, fmt.Errorf("%s: %w", candidate, err))
	}
	return nil, apierror.NewAPIError(apierror.ErrRequestCreating,
		fmt.Sprintf("failed to create secondary request for instance %s in tenants %s", chain.InstanceID, strings.Join(candidates, ", ")),
		errors.Join(errs...))
}

// createCentralLeg builds a primary or intermediate request from the secondary
// one under requestID. Shadows are created first when the requester or service
// point are not local to tenantID.
func (t *TLR) createCentralLeg(ctx context.Context, tenantID string, leg model.Leg, requestID string, secondary *model.Request, requester *model.User, pickupPoint *model.ServicePoint) (*model.Request, error) {
	req := &model.Request{
		ID:                    requestID,
		RequestLevel:          secondary.RequestLevel,
		RequestType:           secondary.RequestType,
		EcsRequestPhase:       string(leg),
		RequestDate:           secondary.RequestDate,
		RequesterID:           secondary.RequesterID,
		InstanceID:            secondary.InstanceID,
		HoldingsRecordID:      secondary.HoldingsRecordID,
		ItemID:                secondary.ItemID,
		FulfillmentPreference: secondary.FulfillmentPreference,
		PickupServicePointID:  secondary.PickupServicePointID,
		RequestExpirationDate: secondary.RequestExpirationDate,
		PatronComments:        secondary.PatronComments,
	}
	return tenant.Call(ctx, tenantID, func(ctx context.Context, tenantID string) (*model.Request, error) {
		if requester != nil {
			if _, err := t.ensureShadowUser(ctx, tenantID, requester); err != nil {
				return nil, err
			}
		}
		if pickupPoint != nil {
			if _, err := t.ensureShadowServicePoint(ctx, tenantID, pickupPoint); err != nil {
				return nil, err
			}
		}
		return t.downstream.CreateRequest(ctx, tenantID, req)
	})
}

// registerCirculationItems makes the lent item known in every borrowing-side tenant.
func (t *TLR) registerCirculationItems(ctx context.Context, chain *model.EcsTlr) {
	source, err := tenant.Call(ctx, chain.SecondaryRequestTenantID, func(ctx context.Context, tenantID string) (*model.InventoryItem, error) {
		return t.downstream.FindItem(ctx, tenantID, chain.ItemID)
	})
	if err != nil {
		logrus.WithField("item", chain.ItemID).Warnf("looking up lent item: %v", err)
	}
	for _, leg := range []model.Leg{model.LegPrimary, model.LegIntermediate} {
		ref := chain.Leg(leg)
		if *ref.TenantID == "" || *ref.TenantID == chain.SecondaryRequestTenantID {
			continue
		}
		if _, err := t.ensureCirculationItem(ctx, *ref.TenantID, chain, source); err != nil {
			logrus.WithFields(logrus.Fields{"item": chain.ItemID, "tenant": *ref.TenantID}).Warnf("registering circulation item: %v", err)
		}
	}
}

// compensate cancels the legs already created for a chain that could not be
// completed. Failures are logged, the original error is what the caller sees.
func (t *TLR) compensate(ctx context.Context, chain *model.EcsTlr) {
	for _, leg := range chain.Legs() {
		ref := leg
		err := t.cancelRequest(ctx, *ref.TenantID, *ref.RequestID)
		if err != nil {
			logrus.WithFields(logrus.Fields{"chain": chain.ID, "leg": ref.Leg, "tenant": *ref.TenantID}).Errorf("compensating request: %v", err)
		}
	}
}

// GetEcsTlr returns the chain with the given id.
func (t *TLR) GetEcsTlr(ctx context.Context, id string) (*model.EcsTlr, error) {
	return t.datasource.GetEcsTlrByID(ctx, id)
}

// UpdateEcsTlr applies the caller-editable fields of update to chain id.
// Leg references and the resolved item are owned by the engine.
func (t *TLR) UpdateEcsTlr(ctx context.Context, id string, update *model.EcsTlr) (*model.EcsTlr, error) {
	chain, err := t.datasource.GetEcsTlrByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = t.withChainLock(ctx, chain.ID, func() error {
		chain.PatronComments = update.PatronComments
		chain.RequestExpirationDate = update.RequestExpirationDate
		if update.FulfillmentPreference != "" {
			chain.FulfillmentPreference = update.FulfillmentPreference
		}
		if update.PickupServicePointID != "" {
			chain.PickupServicePointID = update.PickupServicePointID
		}
		return t.datasource.UpdateEcsTlr(ctx, chain)
	})
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// DeleteEcsTlr removes the chain record. Requests in member tenants are left untouched.
func (t *TLR) DeleteEcsTlr(ctx context.Context, id string) error {
	return t.datasource.DeleteEcsTlr(ctx, id)
}
