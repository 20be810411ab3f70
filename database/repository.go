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

package database

import (
	"context"

	"github.com/jerry-enebeli/tlr/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	ecsTlr
}

// ecsTlr persists chain records. Find methods return nil when nothing matches.
type ecsTlr interface {
	CreateEcsTlr(ctx context.Context, chain *model.EcsTlr) error
	GetEcsTlrByID(ctx context.Context, id string) (*model.EcsTlr, error)
	UpdateEcsTlr(ctx context.Context, chain *model.EcsTlr) error
	DeleteEcsTlr(ctx context.Context, id string) error
	FindEcsTlrByRequestID(ctx context.Context, leg model.Leg, requestID string) (*model.EcsTlr, error)
	FindEcsTlrByItemAndRequester(ctx context.Context, itemID, requesterID string) (*model.EcsTlr, error)
	FindEcsTlrsByItemID(ctx context.Context, itemID string) ([]*model.EcsTlr, error)
	FindEcsTlrsByRequesterAndInstance(ctx context.Context, requesterID, instanceID string) ([]*model.EcsTlr, error)
	FindEcsTlrsByCentralRequestIDs(ctx context.Context, requestIDs []string) ([]*model.EcsTlr, error)
}
