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

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tlr/internal/tenant"
	"github.com/jerry-enebeli/tlr/model"
)

const shadowServicePointPrefix = "DCB_"

// ensureShadowUser makes user resolvable in tenantID, cloning a minimal
// shadow copy when the tenant does not know it yet.
func (t *TLR) ensureShadowUser(ctx context.Context, tenantID string, user *model.User) (*model.User, error) {
	return tenant.Call(ctx, tenantID, func(ctx context.Context, tenantID string) (*model.User, error) {
		existing, err := t.downstream.FindUser(ctx, tenantID, user.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}

		shadow := &model.User{
			ID:          user.ID,
			Username:    user.Username,
			Barcode:     user.Barcode,
			Active:      true,
			Type:        model.UserTypeShadow,
			PatronGroup: user.PatronGroup,
		}
		if user.Personal != nil {
			shadow.Personal = &model.Personal{FirstName: user.Personal.FirstName, LastName: user.Personal.LastName}
		}
		created, err := t.downstream.CreateUser(ctx, tenantID, shadow)
		if err != nil {
			return nil, fmt.Errorf("creating shadow user %s: %w", user.ID, err)
		}
		logrus.WithFields(logrus.Fields{"user": user.ID, "tenant": tenantID}).Info("shadow user created")
		return created, nil
	})
}

// ensureShadowServicePoint does the same for a pickup service point. The
// clone is renamed so staff can tell it apart from local service points.
func (t *TLR) ensureShadowServicePoint(ctx context.Context, tenantID string, sp *model.ServicePoint) (*model.ServicePoint, error) {
	return tenant.Call(ctx, tenantID, func(ctx context.Context, tenantID string) (*model.ServicePoint, error) {
		existing, err := t.downstream.FindServicePoint(ctx, tenantID, sp.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}

		shadow := &model.ServicePoint{
			ID:                    sp.ID,
			Name:                  shadowServicePointPrefix + sp.Name,
			Code:                  sp.Code,
			DiscoveryDisplayName:  sp.DiscoveryDisplayName,
			PickupLocation:        true,
			HoldShelfExpiryPeriod: sp.HoldShelfExpiryPeriod,
		}
		created, err := t.downstream.CreateServicePoint(ctx, tenantID, shadow)
		if err != nil {
			return nil, fmt.Errorf("creating shadow service point %s: %w", sp.ID, err)
		}
		logrus.WithFields(logrus.Fields{"service_point": sp.ID, "tenant": tenantID}).Info("shadow service point created")
		return created, nil
	})
}

// ensureCirculationItem registers the lent item in a borrowing tenant so
// the request there can point at it.
func (t *TLR) ensureCirculationItem(ctx context.Context, tenantID string, chain *model.EcsTlr, source *model.InventoryItem) (*model.CirculationItem, error) {
	return tenant.Call(ctx, tenantID, func(ctx context.Context, tenantID string) (*model.CirculationItem, error) {
		existing, err := t.downstream.FindCirculationItem(ctx, tenantID, chain.ItemID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}

		item := &model.CirculationItem{
			ID:                 chain.ItemID,
			HoldingsRecordID:   chain.HoldingsRecordID,
			Status:             model.LoanStatus{Name: model.ItemStatusAvailable},
			LendingLibraryCode: chain.SecondaryRequestTenantID,
			DcbItem:            true,
		}
		if source != nil {
			item.Barcode = source.Barcode
		}
		return t.downstream.CreateCirculationItem(ctx, tenantID, item)
	})
}
