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
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/tlr/model"
)

const testBaseURL = "http://okapi.test"

func newTestClient(t *testing.T) *Client {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewClient(testBaseURL, "token-1", 5*time.Second)
}

func TestFindUserSendsTenantHeader(t *testing.T) {
	client := newTestClient(t)
	userID := gofakeit.UUID()

	httpmock.RegisterResponder("GET", testBaseURL+"/users/"+userID,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "college", req.Header.Get(HeaderTenant))
			assert.Equal(t, "token-1", req.Header.Get(HeaderToken))
			return httpmock.NewJsonResponse(200, model.User{ID: userID, Active: true, Username: "jdoe"})
		})

	user, err := client.FindUser(context.Background(), "college", userID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "jdoe", user.Username)
	assert.True(t, user.Active)
}

func TestFindUserNotFoundReturnsNil(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/users/missing", httpmock.NewStringResponder(404, "not found"))

	user, err := client.FindUser(context.Background(), "university", "missing")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestGetTransactionStatusNotFound(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/transactions/tx-1/status", httpmock.NewStringResponder(404, ""))

	_, err := client.GetTransactionStatus(context.Background(), "university", "tx-1")
	assert.True(t, IsNotFound(err))
}

func TestServerErrorIsWrapped(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("POST", testBaseURL+"/circulation/requests", httpmock.NewStringResponder(500, "boom"))

	_, err := client.CreateRequest(context.Background(), "university", &model.Request{InstanceID: "inst"})
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "as university")
}

func TestCreateRequestSendsBody(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("POST", testBaseURL+"/circulation/requests",
		func(req *http.Request) (*http.Response, error) {
			var body model.Request
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "Secondary", body.EcsRequestPhase)
			body.ID = "req-1"
			body.Status = model.RequestStatusOpenNotYetFilled
			return httpmock.NewJsonResponse(201, body)
		})

	created, err := client.CreateRequest(context.Background(), "university", &model.Request{
		InstanceID:      "inst-1",
		RequesterID:     "user-1",
		EcsRequestPhase: "Secondary",
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", created.ID)
	assert.Equal(t, model.RequestStatusOpenNotYetFilled, created.Status)
}

func TestFindOpenLoan(t *testing.T) {
	client := newTestClient(t)
	due := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	httpmock.RegisterResponder("GET", testBaseURL+"/circulation/loans",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"loans":        []model.Loan{{ID: "loan-1", UserID: "u", ItemID: "i", Status: model.LoanStatus{Name: "Open"}, DueDate: &due}},
			"totalRecords": 1,
		}))

	loan, err := client.FindOpenLoan(context.Background(), "college", "u", "i")
	require.NoError(t, err)
	require.NotNil(t, loan)
	assert.Equal(t, "loan-1", loan.ID)
	assert.True(t, loan.DueDate.Equal(due))
}

func TestFindOpenLoanNone(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/circulation/loans",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"loans": []model.Loan{}, "totalRecords": 0}))

	loan, err := client.FindOpenLoan(context.Background(), "college", "u", "i")
	assert.NoError(t, err)
	assert.Nil(t, loan)
}

func TestSearchInstance(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/search/instances",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"instances": []model.SearchInstance{{
				ID: "inst-1",
				Items: []model.SearchItem{
					{ID: "i1", TenantID: "university", Status: model.LoanStatus{Name: model.ItemStatusAvailable}},
				},
			}},
			"totalRecords": 1,
		}))

	instance, err := client.SearchInstance(context.Background(), "consortium", "inst-1")
	require.NoError(t, err)
	require.NotNil(t, instance)
	assert.Len(t, instance.Items, 1)
}

func TestUpdateTransactionStatus(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("PUT", testBaseURL+"/transactions/tx-1/status",
		func(req *http.Request) (*http.Response, error) {
			var body model.TransactionStatusResponse
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, model.TransactionAwaitingPickup, body.Status)
			return httpmock.NewStringResponse(204, ""), nil
		})

	err := client.UpdateTransactionStatus(context.Background(), "college", "tx-1", model.TransactionAwaitingPickup)
	assert.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}
