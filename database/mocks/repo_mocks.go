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

package mocks

import (
	"context"

	"github.com/jerry-enebeli/tlr/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

func chainOrNil(args mock.Arguments, i int) *model.EcsTlr {
	if v := args.Get(i); v != nil {
		return v.(*model.EcsTlr)
	}
	return nil
}

func chainsOrNil(args mock.Arguments, i int) []*model.EcsTlr {
	if v := args.Get(i); v != nil {
		return v.([]*model.EcsTlr)
	}
	return nil
}

func (m *MockDataSource) CreateEcsTlr(ctx context.Context, chain *model.EcsTlr) error {
	args := m.Called(ctx, chain)
	return args.Error(0)
}

func (m *MockDataSource) GetEcsTlrByID(ctx context.Context, id string) (*model.EcsTlr, error) {
	args := m.Called(ctx, id)
	return chainOrNil(args, 0), args.Error(1)
}

func (m *MockDataSource) UpdateEcsTlr(ctx context.Context, chain *model.EcsTlr) error {
	args := m.Called(ctx, chain)
	return args.Error(0)
}

func (m *MockDataSource) DeleteEcsTlr(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDataSource) FindEcsTlrByRequestID(ctx context.Context, leg model.Leg, requestID string) (*model.EcsTlr, error) {
	args := m.Called(ctx, leg, requestID)
	return chainOrNil(args, 0), args.Error(1)
}

func (m *MockDataSource) FindEcsTlrByItemAndRequester(ctx context.Context, itemID, requesterID string) (*model.EcsTlr, error) {
	args := m.Called(ctx, itemID, requesterID)
	return chainOrNil(args, 0), args.Error(1)
}

func (m *MockDataSource) FindEcsTlrsByItemID(ctx context.Context, itemID string) ([]*model.EcsTlr, error) {
	args := m.Called(ctx, itemID)
	return chainsOrNil(args, 0), args.Error(1)
}

func (m *MockDataSource) FindEcsTlrsByRequesterAndInstance(ctx context.Context, requesterID, instanceID string) ([]*model.EcsTlr, error) {
	args := m.Called(ctx, requesterID, instanceID)
	return chainsOrNil(args, 0), args.Error(1)
}

func (m *MockDataSource) FindEcsTlrsByCentralRequestIDs(ctx context.Context, requestIDs []string) ([]*model.EcsTlr, error) {
	args := m.Called(ctx, requestIDs)
	return chainsOrNil(args, 0), args.Error(1)
}
