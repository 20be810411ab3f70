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
	"net/url"

	"github.com/jerry-enebeli/tlr/model"
)

func (c *Client) CreateTransaction(ctx context.Context, tenantID, transactionID string, txn *model.DcbTransaction) (*model.TransactionStatusResponse, error) {
	var resp model.TransactionStatusResponse
	if err := c.post(ctx, tenantID, "/transactions/"+url.PathEscape(transactionID), txn, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTransactionStatus returns ErrNotFound when the transaction is unknown in tenantID.
func (c *Client) GetTransactionStatus(ctx context.Context, tenantID, transactionID string) (*model.TransactionStatusResponse, error) {
	var resp model.TransactionStatusResponse
	if err := c.get(ctx, tenantID, "/transactions/"+url.PathEscape(transactionID)+"/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateTransactionStatus(ctx context.Context, tenantID, transactionID string, status model.TransactionStatus) error {
	body := model.TransactionStatusResponse{Status: status}
	return c.put(ctx, tenantID, "/transactions/"+url.PathEscape(transactionID)+"/status", body)
}

// UpdateTransactionItem replaces the item details of a transaction, used once the barcode becomes known.
func (c *Client) UpdateTransactionItem(ctx context.Context, tenantID, transactionID string, item model.DcbItem) error {
	body := map[string]interface{}{"item": item}
	return c.put(ctx, tenantID, "/transactions/"+url.PathEscape(transactionID), body)
}
