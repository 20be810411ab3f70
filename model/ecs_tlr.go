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

import "time"

// EcsTlr is the chain record linking the mirrored requests a single patron
// request spawns across tenants. The secondary leg lives in the lending tenant,
// the primary leg in the patron's tenant and the optional intermediate leg in
// the central tenant.
type EcsTlr struct {
	ID                    string     `json:"id"`
	InstanceID            string     `json:"instance_id"`
	ItemID                string     `json:"item_id,omitempty"`
	HoldingsRecordID      string     `json:"holdings_record_id,omitempty"`
	RequesterID           string     `json:"requester_id"`
	RequestType           string     `json:"request_type"`
	RequestLevel          string     `json:"request_level"`
	FulfillmentPreference string     `json:"fulfillment_preference"`
	PickupServicePointID  string     `json:"pickup_service_point_id,omitempty"`
	RequestExpirationDate *time.Time `json:"request_expiration_date,omitempty"`
	PatronComments        string     `json:"patron_comments,omitempty"`

	PrimaryRequestID                    string `json:"primary_request_id,omitempty"`
	PrimaryRequestTenantID              string `json:"primary_request_tenant_id,omitempty"`
	PrimaryRequestDcbTransactionID      string `json:"primary_request_dcb_transaction_id,omitempty"`
	SecondaryRequestID                  string `json:"secondary_request_id,omitempty"`
	SecondaryRequestTenantID            string `json:"secondary_request_tenant_id,omitempty"`
	SecondaryRequestDcbTransactionID    string `json:"secondary_request_dcb_transaction_id,omitempty"`
	IntermediateRequestID               string `json:"intermediate_request_id,omitempty"`
	IntermediateRequestTenantID         string `json:"intermediate_request_tenant_id,omitempty"`
	IntermediateRequestDcbTransactionID string `json:"intermediate_request_dcb_transaction_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Leg identifies one of the three mirrored requests of a chain.
type Leg string

const (
	LegPrimary      Leg = "Primary"
	LegSecondary    Leg = "Secondary"
	LegIntermediate Leg = "Intermediate"
)

// LegForPhase maps a request's ecsRequestPhase to the chain leg it belongs to.
func LegForPhase(phase string) (Leg, bool) {
	switch Leg(phase) {
	case LegPrimary, LegSecondary, LegIntermediate:
		return Leg(phase), true
	}
	return "", false
}

// LegRef is a read/write view over one leg of a chain.
type LegRef struct {
	Leg           Leg
	RequestID     *string
	TenantID      *string
	TransactionID *string
}

// Leg returns a view over the requested leg so callers can treat the three legs uniformly.
func (e *EcsTlr) Leg(leg Leg) LegRef {
	switch leg {
	case LegPrimary:
		return LegRef{Leg: leg, RequestID: &e.PrimaryRequestID, TenantID: &e.PrimaryRequestTenantID, TransactionID: &e.PrimaryRequestDcbTransactionID}
	case LegIntermediate:
		return LegRef{Leg: leg, RequestID: &e.IntermediateRequestID, TenantID: &e.IntermediateRequestTenantID, TransactionID: &e.IntermediateRequestDcbTransactionID}
	default:
		return LegRef{Leg: LegSecondary, RequestID: &e.SecondaryRequestID, TenantID: &e.SecondaryRequestTenantID, TransactionID: &e.SecondaryRequestDcbTransactionID}
	}
}

// Legs returns the populated legs in secondary, primary, intermediate order.
func (e *EcsTlr) Legs() []LegRef {
	var legs []LegRef
	for _, leg := range []Leg{LegSecondary, LegPrimary, LegIntermediate} {
		ref := e.Leg(leg)
		if *ref.RequestID != "" {
			legs = append(legs, ref)
		}
	}
	return legs
}

// HasIntermediate reports whether the chain carries a leg in the central tenant.
func (e *EcsTlr) HasIntermediate() bool {
	return e.IntermediateRequestID != ""
}

// TransactionRole is the role a leg plays in its lending transaction.
func (e *EcsTlr) TransactionRole(leg Leg) TransactionRole {
	switch leg {
	case LegSecondary:
		return RoleLender
	case LegIntermediate:
		return RoleBorrower
	default:
		if e.HasIntermediate() {
			return RolePickup
		}
		return RoleBorrowingPickup
	}
}

// SetItemID records the resolved item once. It returns false when the chain
// already carries an item.
func (e *EcsTlr) SetItemID(itemID, holdingsRecordID string) bool {
	if e.ItemID != "" || itemID == "" {
		return false
	}
	e.ItemID = itemID
	if e.HoldingsRecordID == "" {
		e.HoldingsRecordID = holdingsRecordID
	}
	return true
}

// TenantIDs returns the distinct tenants hosting a leg of the chain.
func (e *EcsTlr) TenantIDs() []string {
	var tenants []string
	seen := map[string]bool{}
	for _, leg := range e.Legs() {
		if t := *leg.TenantID; t != "" && !seen[t] {
			seen[t] = true
			tenants = append(tenants, t)
		}
	}
	return tenants
}
