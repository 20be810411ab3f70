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
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jerry-enebeli/tlr/config"
	"github.com/jerry-enebeli/tlr/internal/apierror"
	"github.com/jerry-enebeli/tlr/internal/okapi"
	"github.com/jerry-enebeli/tlr/model"
)

const (
	centralTenant = "central"
	collegeTenant = "college"
)

func testConfig() *config.Configuration {
	return &config.Configuration{
		Queue: config.QueueConfig{
			ItemQueue:              "inventory_item",
			LoanQueue:              "circulation_loan",
			RequestQueue:           "circulation_request",
			RequestQueueReordering: "circulation_request_queue_reordering",
			MaxRetryAttempts:       3,
		},
		Consortium: config.ConsortiumConfig{
			CentralTenantID:    centralTenant,
			FanOutLimit:        4,
			FanOutTimeoutSec:   5,
			LockTimeoutSec:     5,
			LockWaitTimeoutSec: 1,
		},
	}
}

func newTestTLR(t *testing.T, ds *fakeStore, down *fakeDownstream) *TLR {
	t.Helper()
	return newTLR(testConfig(), ds, down, nil)
}

// fakeStore keeps chains in memory and hands out copies like a database would.
type fakeStore struct {
	mu      sync.Mutex
	chains  map[string]model.EcsTlr
	updates int
}

func newFakeStore(chains ...*model.EcsTlr) *fakeStore {
	s := &fakeStore{chains: map[string]model.EcsTlr{}}
	for _, c := range chains {
		s.chains[c.ID] = *c
	}
	return s
}

func (s *fakeStore) get(id string) *model.EcsTlr {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chains[id]
	if !ok {
		return nil
	}
	return &c
}

func (s *fakeStore) find(match func(c model.EcsTlr) bool) []*model.EcsTlr {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.chains {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []*model.EcsTlr
	for _, id := range ids {
		c := s.chains[id]
		if match(c) {
			out = append(out, &c)
		}
	}
	return out
}

func (s *fakeStore) CreateEcsTlr(_ context.Context, chain *model.EcsTlr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chains[chain.ID]; ok {
		return apierror.NewAPIError(apierror.ErrConflict, "duplicate", nil)
	}
	chain.CreatedAt = time.Now().UTC()
	chain.UpdatedAt = chain.CreatedAt
	s.chains[chain.ID] = *chain
	return nil
}

func (s *fakeStore) GetEcsTlrByID(_ context.Context, id string) (*model.EcsTlr, error) {
	if c := s.get(id); c != nil {
		return c, nil
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("ecs tlr with ID '%s' not found", id), nil)
}

func (s *fakeStore) UpdateEcsTlr(_ context.Context, chain *model.EcsTlr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.chains[chain.ID]
	if !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, "not found", nil)
	}
	if existing.ItemID != "" {
		chain.ItemID = existing.ItemID
	}
	s.chains[chain.ID] = *chain
	s.updates++
	return nil
}

func (s *fakeStore) DeleteEcsTlr(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chains, id)
	return nil
}

func first(chains []*model.EcsTlr) *model.EcsTlr {
	if len(chains) == 0 {
		return nil
	}
	return chains[0]
}

func (s *fakeStore) FindEcsTlrByRequestID(_ context.Context, leg model.Leg, requestID string) (*model.EcsTlr, error) {
	return first(s.find(func(c model.EcsTlr) bool { return *c.Leg(leg).RequestID == requestID })), nil
}

func (s *fakeStore) FindEcsTlrByItemAndRequester(_ context.Context, itemID, requesterID string) (*model.EcsTlr, error) {
	return first(s.find(func(c model.EcsTlr) bool { return c.ItemID == itemID && c.RequesterID == requesterID })), nil
}

func (s *fakeStore) FindEcsTlrsByItemID(_ context.Context, itemID string) ([]*model.EcsTlr, error) {
	return s.find(func(c model.EcsTlr) bool { return c.ItemID == itemID }), nil
}

func (s *fakeStore) FindEcsTlrsByRequesterAndInstance(_ context.Context, requesterID, instanceID string) ([]*model.EcsTlr, error) {
	return s.find(func(c model.EcsTlr) bool { return c.RequesterID == requesterID && c.InstanceID == instanceID }), nil
}

func (s *fakeStore) FindEcsTlrsByCentralRequestIDs(_ context.Context, requestIDs []string) ([]*model.EcsTlr, error) {
	ids := map[string]bool{}
	for _, id := range requestIDs {
		ids[id] = true
	}
	return s.find(func(c model.EcsTlr) bool {
		return (c.PrimaryRequestID != "" && ids[c.PrimaryRequestID]) || (c.IntermediateRequestID != "" && ids[c.IntermediateRequestID])
	}), nil
}

type statusWrite struct {
	Tenant        string
	TransactionID string
	Status        model.TransactionStatus
}

type loanActionCall struct {
	Tenant string
	LoanID string
	Action string
}

// fakeDownstream is an in-memory consortium. Maps are keyed by tenant first.
type fakeDownstream struct {
	mu sync.Mutex

	instances     map[string]*model.SearchInstance
	searchItems   map[string]*model.SearchItem
	userTenants   map[string]*model.UserTenant
	users         map[string]map[string]model.User
	servicePoints map[string]map[string]model.ServicePoint
	requests      map[string]map[string]model.Request
	queues        map[string]map[string][]string
	loans         map[string]map[string]model.Loan
	items         map[string]map[string]model.InventoryItem
	circItems     map[string]map[string]model.CirculationItem
	transactions  map[string]map[string]model.TransactionStatusResponse

	createRequestErr map[string]error
	loanActionErr    map[string]error

	createdRequests []string
	requestUpdates  []model.Request
	statusWrites    []statusWrite
	itemWrites      int
	circItemWrites  int
	dueDateChanges  []string
	loanActions     []loanActionCall
	nextID          int
}

func newFakeDownstream() *fakeDownstream {
	return &fakeDownstream{
		instances:        map[string]*model.SearchInstance{},
		searchItems:      map[string]*model.SearchItem{},
		userTenants:      map[string]*model.UserTenant{},
		users:            map[string]map[string]model.User{},
		servicePoints:    map[string]map[string]model.ServicePoint{},
		requests:         map[string]map[string]model.Request{},
		queues:           map[string]map[string][]string{},
		loans:            map[string]map[string]model.Loan{},
		items:            map[string]map[string]model.InventoryItem{},
		circItems:        map[string]map[string]model.CirculationItem{},
		transactions:     map[string]map[string]model.TransactionStatusResponse{},
		createRequestErr: map[string]error{},
		loanActionErr:    map[string]error{},
	}
}

func ensure[T any](m map[string]map[string]T, tenantID string) map[string]T {
	if m[tenantID] == nil {
		m[tenantID] = map[string]T{}
	}
	return m[tenantID]
}

func (f *fakeDownstream) addUser(tenantID string, u model.User) {
	ensure(f.users, tenantID)[u.ID] = u
}

func (f *fakeDownstream) addServicePoint(tenantID string, sp model.ServicePoint) {
	ensure(f.servicePoints, tenantID)[sp.ID] = sp
}

func (f *fakeDownstream) addRequest(tenantID string, r model.Request) {
	ensure(f.requests, tenantID)[r.ID] = r
}

func (f *fakeDownstream) addTransaction(tenantID, id string, role model.TransactionRole, status model.TransactionStatus) {
	ensure(f.transactions, tenantID)[id] = model.TransactionStatusResponse{Role: role, Status: status}
}

func (f *fakeDownstream) transactionStatus(tenantID, id string) model.TransactionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transactions[tenantID][id].Status
}

func (f *fakeDownstream) writesTo(transactionID string) []model.TransactionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TransactionStatus
	for _, w := range f.statusWrites {
		if w.TransactionID == transactionID {
			out = append(out, w.Status)
		}
	}
	return out
}

func (f *fakeDownstream) SearchInstance(_ context.Context, _ string, instanceID string) (*model.SearchInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.instances[instanceID], nil
}

func (f *fakeDownstream) SearchItem(_ context.Context, _ string, itemID string) (*model.SearchItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchItems[itemID], nil
}

func (f *fakeDownstream) CreateRequest(_ context.Context, tenantID string, req *model.Request) (*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createRequestErr[tenantID]; err != nil {
		return nil, err
	}
	created := *req
	if created.ID == "" {
		f.nextID++
		created.ID = fmt.Sprintf("req-%d", f.nextID)
	}
	if _, exists := f.requests[tenantID][created.ID]; exists {
		return nil, fmt.Errorf("request %s already exists in %s", created.ID, tenantID)
	}
	if created.Status == "" {
		created.Status = model.RequestStatusOpenNotYetFilled
	}
	ensure(f.requests, tenantID)[created.ID] = created
	f.createdRequests = append(f.createdRequests, tenantID+"/"+created.ID)
	return &created, nil
}

func (f *fakeDownstream) FindRequest(_ context.Context, tenantID, requestID string) (*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.requests[tenantID][requestID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeDownstream) UpdateRequest(_ context.Context, tenantID string, req *model.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ensure(f.requests, tenantID)[req.ID] = *req
	f.requestUpdates = append(f.requestUpdates, *req)
	return nil
}

func (f *fakeDownstream) queue(tenantID, key string) []model.Request {
	var out []model.Request
	for _, id := range f.queues[tenantID][key] {
		out = append(out, f.requests[tenantID][id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (f *fakeDownstream) GetRequestsQueueByInstanceID(_ context.Context, tenantID, instanceID string) ([]model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue(tenantID, instanceID), nil
}

func (f *fakeDownstream) GetRequestsQueueByItemID(_ context.Context, tenantID, itemID string) ([]model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue(tenantID, itemID), nil
}

func (f *fakeDownstream) FindLoan(_ context.Context, tenantID, loanID string) (*model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.loans[tenantID][loanID]; ok {
		return &l, nil
	}
	return nil, nil
}

func (f *fakeDownstream) FindOpenLoan(_ context.Context, tenantID, userID, itemID string) (*model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.loans[tenantID] {
		if l.UserID == userID && l.ItemID == itemID && l.IsOpen() {
			return &l, nil
		}
	}
	return nil, nil
}

func (f *fakeDownstream) ChangeDueDate(_ context.Context, tenantID, loanID string, dueDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.loans[tenantID][loanID]
	if !ok {
		return okapi.ErrNotFound
	}
	l.DueDate = &dueDate
	f.loans[tenantID][loanID] = l
	f.dueDateChanges = append(f.dueDateChanges, tenantID+"/"+loanID)
	return nil
}

func (f *fakeDownstream) PerformLoanAction(_ context.Context, tenantID, loanID, action string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loanActionErr[tenantID]; err != nil {
		return err
	}
	f.loanActions = append(f.loanActions, loanActionCall{Tenant: tenantID, LoanID: loanID, Action: action})
	return nil
}

func (f *fakeDownstream) FindUser(_ context.Context, tenantID, userID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[tenantID][userID]; ok {
		return &u, nil
	}
	return nil, nil
}

func (f *fakeDownstream) CreateUser(_ context.Context, tenantID string, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ensure(f.users, tenantID)[user.ID] = *user
	return user, nil
}

func (f *fakeDownstream) FindUserTenant(_ context.Context, _ string, userID string) (*model.UserTenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userTenants[userID], nil
}

func (f *fakeDownstream) FindServicePoint(_ context.Context, tenantID, id string) (*model.ServicePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sp, ok := f.servicePoints[tenantID][id]; ok {
		return &sp, nil
	}
	return nil, nil
}

func (f *fakeDownstream) CreateServicePoint(_ context.Context, tenantID string, sp *model.ServicePoint) (*model.ServicePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ensure(f.servicePoints, tenantID)[sp.ID] = *sp
	return sp, nil
}

func (f *fakeDownstream) FindItem(_ context.Context, tenantID, itemID string) (*model.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.items[tenantID][itemID]; ok {
		return &it, nil
	}
	return nil, nil
}

func (f *fakeDownstream) FindCirculationItem(_ context.Context, tenantID, itemID string) (*model.CirculationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.circItems[tenantID][itemID]; ok {
		return &it, nil
	}
	return nil, nil
}

func (f *fakeDownstream) CreateCirculationItem(_ context.Context, tenantID string, item *model.CirculationItem) (*model.CirculationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ensure(f.circItems, tenantID)[item.ID] = *item
	return item, nil
}

func (f *fakeDownstream) UpdateCirculationItem(_ context.Context, tenantID string, item *model.CirculationItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ensure(f.circItems, tenantID)[item.ID] = *item
	f.circItemWrites++
	return nil
}

func (f *fakeDownstream) CreateTransaction(_ context.Context, tenantID, transactionID string, txn *model.DcbTransaction) (*model.TransactionStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := txn.Item
	resp := model.TransactionStatusResponse{Status: model.TransactionCreated, Role: txn.Role, Item: &item}
	ensure(f.transactions, tenantID)[transactionID] = resp
	return &resp, nil
}

func (f *fakeDownstream) GetTransactionStatus(_ context.Context, tenantID, transactionID string) (*model.TransactionStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.transactions[tenantID][transactionID]; ok {
		return &txn, nil
	}
	return nil, okapi.ErrNotFound
}

func (f *fakeDownstream) UpdateTransactionStatus(_ context.Context, tenantID, transactionID string, status model.TransactionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.transactions[tenantID][transactionID]
	if !ok {
		return okapi.ErrNotFound
	}
	txn.Status = status
	f.transactions[tenantID][transactionID] = txn
	f.statusWrites = append(f.statusWrites, statusWrite{Tenant: tenantID, TransactionID: transactionID, Status: status})
	return nil
}

func (f *fakeDownstream) UpdateTransactionItem(_ context.Context, tenantID, transactionID string, item model.DcbItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.transactions[tenantID][transactionID]
	if !ok {
		return okapi.ErrNotFound
	}
	txn.Item = &item
	f.transactions[tenantID][transactionID] = txn
	f.itemWrites++
	return nil
}
var _ Downstream = (*fakeDownstream)(nil)

const universityTenant = "university"

// linkedChain is a chain whose item is resolved and whose three legs carry
// lending transactions: university lends, college picks up, central borrows.
func linkedChain(down *fakeDownstream, status model.TransactionStatus) *model.EcsTlr {
	chain := &model.EcsTlr{
		ID:                                  "chain-1",
		InstanceID:                          "instance-1",
		ItemID:                              "item-1",
		RequesterID:                         "user-1",
		RequestLevel:                        model.RequestLevelTitle,
		SecondaryRequestID:                  "req-1",
		SecondaryRequestTenantID:            universityTenant,
		SecondaryRequestDcbTransactionID:    "txn-sec",
		PrimaryRequestID:                    "req-1",
		PrimaryRequestTenantID:              collegeTenant,
		PrimaryRequestDcbTransactionID:      "txn-pri",
		IntermediateRequestID:               "req-1",
		IntermediateRequestTenantID:         centralTenant,
		IntermediateRequestDcbTransactionID: "txn-int",
	}
	down.addTransaction(universityTenant, "txn-sec", model.RoleLender, status)
	down.addTransaction(collegeTenant, "txn-pri", model.RolePickup, status)
	down.addTransaction(centralTenant, "txn-int", model.RoleBorrower, status)
	return chain
}
