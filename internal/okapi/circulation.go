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

package okapi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jerry-enebeli/tlr/model"
)

type requestCollection struct {
	Requests     []model.Request `json:"requests"`
	TotalRecords int             `json:"totalRecords"`
}

type loanCollection struct {
	Loans        []model.Loan `json:"loans"`
	TotalRecords int          `json:"totalRecords"`
}

func (c *Client) CreateRequest(ctx context.Context, tenantID string, req *model.Request) (*model.Request, error) {
	var created model.Request
	if err := c.post(ctx, tenantID, "/circulation/requests", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// FindRequest returns nil when the request does not exist in tenantID.
func (c *Client) FindRequest(ctx context.Context, tenantID, requestID string) (*model.Request, error) {
	var r model.Request
	err := c.get(ctx, tenantID, "/request-storage/requests/"+url.PathEscape(requestID), nil, &r)
	return findOrNil(&r, err)
}

func (c *Client) UpdateRequest(ctx context.Context, tenantID string, req *model.Request) error {
	return c.put(ctx, tenantID, "/request-storage/requests/"+url.PathEscape(req.ID), req)
}

// GetRequestsQueueByInstanceID returns the open requests for a title ordered by queue position.
func (c *Client) GetRequestsQueueByInstanceID(ctx context.Context, tenantID, instanceID string) ([]model.Request, error) {
	var coll requestCollection
	err := c.get(ctx, tenantID, "/circulation/requests/queue/instance/"+url.PathEscape(instanceID), nil, &coll)
	if err != nil {
		return nil, err
	}
	return coll.Requests, nil
}

// GetRequestsQueueByItemID returns the open requests for an item ordered by queue position.
func (c *Client) GetRequestsQueueByItemID(ctx context.Context, tenantID, itemID string) ([]model.Request, error) {
	var coll requestCollection
	err := c.get(ctx, tenantID, "/circulation/requests/queue/item/"+url.PathEscape(itemID), nil, &coll)
	if err != nil {
		return nil, err
	}
	return coll.Requests, nil
}

// FindLoan returns nil when the loan does not exist in tenantID.
func (c *Client) FindLoan(ctx context.Context, tenantID, loanID string) (*model.Loan, error) {
	var l model.Loan
	err := c.get(ctx, tenantID, "/circulation/loans/"+url.PathEscape(loanID), nil, &l)
	return findOrNil(&l, err)
}

// FindOpenLoan returns the open loan of itemID to userID, or nil when there is none.
func (c *Client) FindOpenLoan(ctx context.Context, tenantID, userID, itemID string) (*model.Loan, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf(`(userId==%q and itemId==%q and status.name==%q)`, userID, itemID, model.LoanStatusOpen))
	q.Set("limit", "1")

	var coll loanCollection
	if err := c.get(ctx, tenantID, "/circulation/loans", q, &coll); err != nil {
		return nil, err
	}
	if len(coll.Loans) == 0 {
		return nil, nil
	}
	return &coll.Loans[0], nil
}

func (c *Client) ChangeDueDate(ctx context.Context, tenantID, loanID string, dueDate time.Time) error {
	body := map[string]interface{}{"dueDate": dueDate.UTC()}
	return c.post(ctx, tenantID, "/circulation/loans/"+url.PathEscape(loanID)+"/change-due-date", body, nil)
}

// PerformLoanAction posts body to the named action endpoint of a loan, for
// example declare-item-lost.
func (c *Client) PerformLoanAction(ctx context.Context, tenantID, loanID, action string, body interface{}) error {
	return c.post(ctx, tenantID, "/circulation/loans/"+url.PathEscape(loanID)+"/"+action, body, nil)
}

// FindCirculationItem returns nil when tenantID keeps no circulation record for itemID.
func (c *Client) FindCirculationItem(ctx context.Context, tenantID, itemID string) (*model.CirculationItem, error) {
	var item model.CirculationItem
	err := c.get(ctx, tenantID, "/circulation-item/"+url.PathEscape(itemID), nil, &item)
	return findOrNil(&item, err)
}

func (c *Client) CreateCirculationItem(ctx context.Context, tenantID string, item *model.CirculationItem) (*model.CirculationItem, error) {
	var created model.CirculationItem
	if err := c.post(ctx, tenantID, "/circulation-item/"+url.PathEscape(item.ID), item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateCirculationItem(ctx context.Context, tenantID string, item *model.CirculationItem) error {
	return c.put(ctx, tenantID, "/circulation-item/"+url.PathEscape(item.ID), item)
}

// FindItem returns nil when the inventory item does not exist in tenantID.
func (c *Client) FindItem(ctx context.Context, tenantID, itemID string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := c.get(ctx, tenantID, "/item-storage/items/"+url.PathEscape(itemID), nil, &item)
	return findOrNil(&item, err)
}
