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
package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jerry-enebeli/tlr/model"
)

type CreateEcsTlr struct {
	InstanceID             string     `json:"instance_id"`
	ItemID                 string     `json:"item_id,omitempty"`
	HoldingsRecordID       string     `json:"holdings_record_id,omitempty"`
	RequesterID            string     `json:"requester_id"`
	RequestType            string     `json:"request_type"`
	RequestLevel           string     `json:"request_level"`
	FulfillmentPreference  string     `json:"fulfillment_preference"`
	PickupServicePointID   string     `json:"pickup_service_point_id,omitempty"`
	RequestExpirationDate  *time.Time `json:"request_expiration_date,omitempty"`
	PatronComments         string     `json:"patron_comments,omitempty"`
	PrimaryRequestTenantID string     `json:"primary_request_tenant_id,omitempty"`
}

type UpdateEcsTlr struct {
	PatronComments        string     `json:"patron_comments,omitempty"`
	RequestExpirationDate *time.Time `json:"request_expiration_date,omitempty"`
	FulfillmentPreference string     `json:"fulfillment_preference,omitempty"`
	PickupServicePointID  string     `json:"pickup_service_point_id,omitempty"`
}

type LoanAction struct {
	LoanID         string     `json:"loan_id,omitempty"`
	ItemID         string     `json:"item_id,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	ServicePointID string     `json:"service_point_id,omitempty"`
	Comment        string     `json:"comment,omitempty"`
	ActionDate     *time.Time `json:"action_date,omitempty"`
}

var fulfillmentPreferences = []interface{}{model.FulfillmentHoldShelf, model.FulfillmentDelivery}

func notInPast(value interface{}) error {
	date, ok := value.(*time.Time)
	if !ok || date == nil {
		return nil
	}
	if date.Before(time.Now()) {
		return errors.New("request expiration date must be in the future")
	}
	return nil
}

func (r *CreateEcsTlr) ValidateCreateEcsTlr() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.InstanceID, validation.Required),
		validation.Field(&r.RequesterID, validation.Required),
		validation.Field(&r.RequestType, validation.Required, validation.In(model.RequestTypeHold, model.RequestTypePage, model.RequestTypeRecall)),
		validation.Field(&r.RequestLevel, validation.Required, validation.In(model.RequestLevelTitle, model.RequestLevelItem)),
		validation.Field(&r.ItemID, validation.When(r.RequestLevel == model.RequestLevelItem, validation.Required)),
		validation.Field(&r.FulfillmentPreference, validation.Required, validation.In(fulfillmentPreferences...)),
		validation.Field(&r.PickupServicePointID, validation.When(r.FulfillmentPreference == model.FulfillmentHoldShelf, validation.Required)),
		validation.Field(&r.RequestExpirationDate, validation.By(notInPast)),
	)
}

func (r *CreateEcsTlr) ToEcsTlr() *model.EcsTlr {
	return &model.EcsTlr{
		InstanceID:             r.InstanceID,
		ItemID:                 r.ItemID,
		HoldingsRecordID:       r.HoldingsRecordID,
		RequesterID:            r.RequesterID,
		RequestType:            r.RequestType,
		RequestLevel:           r.RequestLevel,
		FulfillmentPreference:  r.FulfillmentPreference,
		PickupServicePointID:   r.PickupServicePointID,
		RequestExpirationDate:  r.RequestExpirationDate,
		PatronComments:         r.PatronComments,
		PrimaryRequestTenantID: r.PrimaryRequestTenantID,
	}
}

func (u *UpdateEcsTlr) ValidateUpdateEcsTlr() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.FulfillmentPreference, validation.In(fulfillmentPreferences...)),
		validation.Field(&u.RequestExpirationDate, validation.By(notInPast)),
	)
}

func (u *UpdateEcsTlr) ToEcsTlr() *model.EcsTlr {
	return &model.EcsTlr{
		PatronComments:        u.PatronComments,
		RequestExpirationDate: u.RequestExpirationDate,
		FulfillmentPreference: u.FulfillmentPreference,
		PickupServicePointID:  u.PickupServicePointID,
	}
}

// ValidateLoanAction checks field shapes only. Which identifiers may be
// combined is decided by the engine.
func (l *LoanAction) ValidateLoanAction() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Comment, validation.Length(0, 2048)),
	)
}

func (l *LoanAction) ToLoanActionRequest() model.LoanActionRequest {
	return model.LoanActionRequest{
		LoanID:         l.LoanID,
		ItemID:         l.ItemID,
		UserID:         l.UserID,
		ServicePointID: l.ServicePointID,
		Comment:        l.Comment,
		ActionDate:     l.ActionDate,
	}
}
