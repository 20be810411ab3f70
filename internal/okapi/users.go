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

type userTenantCollection struct {
	UserTenants  []model.UserTenant `json:"userTenants"`
	TotalRecords int                `json:"totalRecords"`
}

// FindUser returns nil when the user does not exist in tenantID.
func (c *Client) FindUser(ctx context.Context, tenantID, userID string) (*model.User, error) {
	var u model.User
	err := c.get(ctx, tenantID, "/users/"+url.PathEscape(userID), nil, &u)
	return findOrNil(&u, err)
}

func (c *Client) CreateUser(ctx context.Context, tenantID string, user *model.User) (*model.User, error) {
	var created model.User
	if err := c.post(ctx, tenantID, "/users", user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// FindServicePoint returns nil when the service point does not exist in tenantID.
func (c *Client) FindServicePoint(ctx context.Context, tenantID, servicePointID string) (*model.ServicePoint, error) {
	var sp model.ServicePoint
	err := c.get(ctx, tenantID, "/service-points/"+url.PathEscape(servicePointID), nil, &sp)
	return findOrNil(&sp, err)
}

func (c *Client) CreateServicePoint(ctx context.Context, tenantID string, sp *model.ServicePoint) (*model.ServicePoint, error) {
	var created model.ServicePoint
	if err := c.post(ctx, tenantID, "/service-points", sp, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// FindUserTenant returns the affiliation of userID recorded in tenantID, or nil when unknown.
// Passing an empty userID returns the first affiliation, which carries the central tenant id.
func (c *Client) FindUserTenant(ctx context.Context, tenantID, userID string) (*model.UserTenant, error) {
	q := url.Values{}
	q.Set("limit", "1")
	if userID != "" {
		q.Set("userId", userID)
	}
	var coll userTenantCollection
	if err := c.get(ctx, tenantID, "/user-tenants", q, &coll); err != nil {
		return nil, err
	}
	if len(coll.UserTenants) == 0 {
		return nil, nil
	}
	return &coll.UserTenants[0], nil
}
