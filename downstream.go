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
	"time"

	"github.com/jerry-enebeli/tlr/model"
)

// The interfaces below are the per-tenant REST collaborators the engine needs.
// Every method takes the tenant explicitly. Find methods return nil, nil when
// the resource does not exist.

type searchService interface {
	SearchInstance(ctx context.Context, tenantID, instanceID string) (*model.SearchInstance, error)
	SearchItem(ctx context.Context, tenantID, itemID string) (*model.SearchItem, error)
}

type requestService interface {
	CreateRequest(ctx context.Context, tenantID string, req *model.Request) (*model.Request, error)
	FindRequest(ctx context.Context, tenantID, requestID string) (*model.Request, error)
	UpdateRequest(ctx context.Context, tenantID string, req *model.Request) error
	GetRequestsQueueByInstanceID(ctx context.Context, tenantID, instanceID string) ([]model.Request, error)
	GetRequestsQueueByItemID(ctx context.Context, tenantID, itemID string) ([]model.Request, error)
}

type loanService interface {
	FindLoan(ctx context.Context, tenantID, loanID string) (*model.Loan, error)
	FindOpenLoan(ctx context.Context, tenantID, userID, itemID string) (*model.Loan, error)
	ChangeDueDate(ctx context.Context, tenantID, loanID string, dueDate time.Time) error
	PerformLoanAction(ctx context.Context, tenantID, loanID, action string, body interface{}) error
}

type userService interface {
	FindUser(ctx context.Context, tenantID, userID string) (*model.User, error)
	CreateUser(ctx context.Context, tenantID string, user *model.User) (*model.User, error)
	FindUserTenant(ctx context.Context, tenantID, userID string) (*model.UserTenant, error)
}

type servicePointService interface {
	FindServicePoint(ctx context.Context, tenantID, servicePointID string) (*model.ServicePoint, error)
	CreateServicePoint(ctx context.Context, tenantID string, sp *model.ServicePoint) (*model.ServicePoint, error)
}

type itemService interface {
	FindItem(ctx context.Context, tenantID, itemID string) (*model.InventoryItem, error)
	FindCirculationItem(ctx context.Context, tenantID, itemID string) (*model.CirculationItem, error)
	CreateCirculationItem(ctx context.Context, tenantID string, item *model.CirculationItem) (*model.CirculationItem, error)
	UpdateCirculationItem(ctx context.Context, tenantID string, item *model.CirculationItem) error
}

type transactionService interface {
	CreateTransaction(ctx context.Context, tenantID, transactionID string, txn *model.DcbTransaction) (*model.TransactionStatusResponse, error)
	GetTransactionStatus(ctx context.Context, tenantID, transactionID string) (*model.TransactionStatusResponse, error)
	UpdateTransactionStatus(ctx context.Context, tenantID, transactionID string, status model.TransactionStatus) error
	UpdateTransactionItem(ctx context.Context, tenantID, transactionID string, item model.DcbItem) error
}

// Downstream is everything the engine calls in member tenants. *okapi.Client implements it.
type Downstream interface {
	searchService
	requestService
	loanService
	userService
	servicePointService
	itemService
	transactionService
}
