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
	"strings"
	"time"
)

const (
	RequestLevelTitle = "Title"
	RequestLevelItem  = "Item"

	RequestTypePage   = "Page"
	RequestTypeHold   = "Hold"
	RequestTypeRecall = "Recall"

	FulfillmentHoldShelf = "Hold Shelf"
	FulfillmentDelivery  = "Delivery"
)

// Request statuses as reported by circulation.
const (
	RequestStatusOpenNotYetFilled     = "Open - Not yet filled"
	RequestStatusOpenAwaitingPickup   = "Open - Awaiting pickup"
	RequestStatusOpenAwaitingDelivery = "Open - Awaiting delivery"
	RequestStatusOpenInTransit        = "Open - In transit"
	RequestStatusClosedFilled         = "Closed - Filled"
	RequestStatusClosedCancelled      = "Closed - Cancelled"
	RequestStatusClosedUnfilled       = "Closed - Unfilled"
	RequestStatusClosedPickupExpired  = "Closed - Pickup expired"
)

// Item statuses used when scoring tenants.
const (
	ItemStatusAvailable  = "Available"
	ItemStatusCheckedOut = "Checked out"
	ItemStatusInTransit  = "In transit"
)

const (
	LoanStatusOpen   = "Open"
	LoanStatusClosed = "Closed"

	LoanActionCheckedIn = "checkedin"
	LoanActionRenewed   = "renewed"
)

type RequestItem struct {
	Barcode string `json:"barcode,omitempty"`
}

// Request is a circulation request in a single tenant.
type Request struct {
	ID                    string       `json:"id,omitempty"`
	RequestLevel          string       `json:"requestLevel,omitempty"`
	RequestType           string       `json:"requestType,omitempty"`
	EcsRequestPhase       string       `json:"ecsRequestPhase,omitempty"`
	RequestDate           *time.Time   `json:"requestDate,omitempty"`
	RequesterID           string       `json:"requesterId,omitempty"`
	InstanceID            string       `json:"instanceId,omitempty"`
	HoldingsRecordID      string       `json:"holdingsRecordId,omitempty"`
	ItemID                string       `json:"itemId,omitempty"`
	Status                string       `json:"status,omitempty"`
	Position              int          `json:"position,omitempty"`
	FulfillmentPreference string       `json:"fulfillmentPreference,omitempty"`
	PickupServicePointID  string       `json:"pickupServicePointId,omitempty"`
	RequestExpirationDate *time.Time   `json:"requestExpirationDate,omitempty"`
	PatronComments        string       `json:"patronComments,omitempty"`
	CancellationReasonID  string       `json:"cancellationReasonId,omitempty"`
	CancelledDate         *time.Time   `json:"cancelledDate,omitempty"`
	Item                  *RequestItem `json:"item,omitempty"`
}

// IsOpen reports whether the request still occupies a queue slot.
func (r *Request) IsOpen() bool {
	return strings.HasPrefix(r.Status, "Open")
}

type LoanStatus struct {
	Name string `json:"name"`
}

// Loan is a circulation loan in a single tenant.
type Loan struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	ItemID       string     `json:"itemId"`
	Status       LoanStatus `json:"status"`
	Action       string     `json:"action,omitempty"`
	LoanDate     *time.Time `json:"loanDate,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ReturnDate   *time.Time `json:"returnDate,omitempty"`
	RenewalCount int        `json:"renewalCount,omitempty"`
	ItemStatus   string     `json:"itemStatus,omitempty"`
}

func (l *Loan) IsOpen() bool {
	return l.Status.Name == LoanStatusOpen
}

type Personal struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// User is a patron record. Shadow users mirror a patron into a tenant that
// does not own them.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username,omitempty"`
	Barcode     string    `json:"barcode,omitempty"`
	Active      bool      `json:"active"`
	Type        string    `json:"type,omitempty"`
	PatronGroup string    `json:"patronGroup,omitempty"`
	Personal    *Personal `json:"personal,omitempty"`
}

const UserTypeShadow = "shadow"

type HoldShelfExpiryPeriod struct {
	Duration   int    `json:"duration"`
	IntervalID string `json:"intervalId"`
}

type ServicePoint struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	Code                  string                 `json:"code"`
	DiscoveryDisplayName  string                 `json:"discoveryDisplayName"`
	PickupLocation        bool                   `json:"pickupLocation"`
	HoldShelfExpiryPeriod *HoldShelfExpiryPeriod `json:"holdShelfExpiryPeriod,omitempty"`
}

// CirculationItem is the lightweight item record a borrowing tenant keeps for
// an item owned by another tenant.
type CirculationItem struct {
	ID                 string     `json:"id"`
	HoldingsRecordID   string     `json:"holdingsRecordId,omitempty"`
	Barcode            string     `json:"barcode,omitempty"`
	Status             LoanStatus `json:"status"`
	MaterialTypeID     string     `json:"materialTypeId,omitempty"`
	InstanceTitle      string     `json:"instanceTitle,omitempty"`
	LendingLibraryCode string     `json:"lendingLibraryCode,omitempty"`
	DcbItem            bool       `json:"dcbItem"`
}

type InventoryItem struct {
	ID               string     `json:"id"`
	HoldingsRecordID string     `json:"holdingsRecordId,omitempty"`
	Barcode          string     `json:"barcode,omitempty"`
	Status           LoanStatus `json:"status"`
}

type SearchItem struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenantId"`
	InstanceID       string     `json:"instanceId,omitempty"`
	HoldingsRecordID string     `json:"holdingsRecordId,omitempty"`
	Barcode          string     `json:"barcode,omitempty"`
	Status           LoanStatus `json:"status"`
}

// SearchInstance is the consortium-wide view of a title and its items in every tenant.
type SearchInstance struct {
	ID       string       `json:"id"`
	TenantID string       `json:"tenantId"`
	Title    string       `json:"title,omitempty"`
	Items    []SearchItem `json:"items"`
}

type UserTenant struct {
	UserID        string `json:"userId"`
	TenantID      string `json:"tenantId"`
	CentralTenant string `json:"centralTenantId"`
	ConsortiumID  string `json:"consortiumId"`
}
