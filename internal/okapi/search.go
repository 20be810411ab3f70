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

	"github.com/jerry-enebeli/tlr/model"
)

type instanceCollection struct {
	Instances    []model.SearchInstance `json:"instances"`
	TotalRecords int                    `json:"totalRecords"`
}

// SearchInstance looks up a title across the consortium with all of its items
// expanded. It returns nil when the title is unknown.
func (c *Client) SearchInstance(ctx context.Context, tenantID, instanceID string) (*model.SearchInstance, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("id==%s", instanceID))
	q.Set("expandAll", "true")

	var coll instanceCollection
	if err := c.get(ctx, tenantID, "/search/instances", q, &coll); err != nil {
		return nil, err
	}
	if len(coll.Instances) == 0 {
		return nil, nil
	}
	return &coll.Instances[0], nil
}

// SearchItem locates an item and its owning tenant. It returns nil when the item is unknown.
func (c *Client) SearchItem(ctx context.Context, tenantID, itemID string) (*model.SearchItem, error) {
	var item model.SearchItem
	err := c.get(ctx, tenantID, "/search/consortium/item/"+url.PathEscape(itemID), nil, &item)
	return findOrNil(&item, err)
}
