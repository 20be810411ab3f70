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

type TransactionRole string

const (
	RoleLender          TransactionRole = "LENDER"
	RoleBorrower        TransactionRole = "BORROWER"
	RolePickup          TransactionRole = "PICKUP"
	RoleBorrowingPickup TransactionRole = "BORROWING-PICKUP"
)

// IsBorrowingSide reports whether the role sits on the borrowing side of a chain.
func (r TransactionRole) IsBorrowingSide() bool {
	return r == RolePickup || r == RoleBorrowingPickup || r == RoleBorrower
}

type TransactionStatus string

const (
	TransactionCreated        TransactionStatus = "CREATED"
	TransactionOpen           TransactionStatus = "OPEN"
	TransactionAwaitingPickup TransactionStatus = "AWAITING_PICKUP"
	TransactionItemCheckedOut TransactionStatus = "ITEM_CHECKED_OUT"
	TransactionItemCheckedIn  TransactionStatus = "ITEM_CHECKED_IN"
	TransactionClosed         TransactionStatus = "CLOSED"
	TransactionCancelled      TransactionStatus = "CANCELLED"
	TransactionError          TransactionStatus = "ERROR"
)

var transactionStatusRank = map[TransactionStatus]int{
	TransactionCreated:        0,
	TransactionOpen:           1,
	TransactionAwaitingPickup: 2,
	TransactionItemCheckedOut: 3,
	TransactionItemCheckedIn:  4,
	TransactionClosed:         5,
}

// IsTerminal reports whether no further status change is accepted.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionClosed || s == TransactionCancelled || s == TransactionError
}

// CanMoveTo reports whether moving from s to next follows the transaction lifecycle.
// Cancellation is allowed from any non-terminal status.
func (s TransactionStatus) CanMoveTo(next TransactionStatus) bool {
	if s == next || s.IsTerminal() {
		return false
	}
	if next == TransactionCancelled || next == TransactionError {
		return true
	}
	from, okFrom := transactionStatusRank[s]
	to, okTo := transactionStatusRank[next]
	return okFrom && okTo && to > from
}

type DcbItem struct {
	ID                 string `json:"id"`
	Barcode            string `json:"barcode,omitempty"`
	Title              string `json:"title,omitempty"`
	MaterialType       string `json:"materialType,omitempty"`
	LendingLibraryCode string `json:"lendingLibraryCode,omitempty"`
}

type DcbPatron struct {
	ID      string `json:"id"`
	Barcode string `json:"barcode,omitempty"`
	Group   string `json:"group,omitempty"`
}

type DcbPickup struct {
	ServicePointID   string `json:"servicePointId,omitempty"`
	ServicePointName string `json:"servicePointName,omitempty"`
	LibraryCode      string `json:"libraryCode,omitempty"`
}

// DcbTransaction is a lending transaction shadowing one leg of a chain.
type DcbTransaction struct {
	Role      TransactionRole `json:"role"`
	RequestID string          `json:"requestId"`
	Item      DcbItem         `json:"item"`
	Patron    DcbPatron       `json:"patron"`
	Pickup    DcbPickup       `json:"pickup"`
}

// TransactionStatusResponse is the current state of a lending transaction.
type TransactionStatusResponse struct {
	Status  TransactionStatus `json:"status"`
	Role    TransactionRole   `json:"role,omitempty"`
	Message string            `json:"message,omitempty"`
	Item    *DcbItem          `json:"item,omitempty"`
}
