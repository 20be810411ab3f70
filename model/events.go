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

import "time"

type EventType string

const (
	EventCreated EventType = "CREATED"
	EventUpdated EventType = "UPDATED"
	EventDeleted EventType = "DELETED"
)

type EventData[T any] struct {
	Old *T `json:"old,omitempty"`
	New *T `json:"new,omitempty"`
}

// DomainEvent is the envelope every inbound domain event arrives in. TenantID
// is the tenant the event originated from.
type DomainEvent[T any] struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TenantID  string       `json:"tenant"`
	Timestamp *time.Time   `json:"timestamp,omitempty"`
	Data      EventData[T] `json:"data"`
}

// IsUpdate reports whether the event carries both sides of an update.
func (e DomainEvent[T]) IsUpdate() bool {
	return e.Type == EventUpdated && e.Data.Old != nil && e.Data.New != nil
}

// RequestsBatchUpdate announces that the central queue of an instance (or item) was reordered.
type RequestsBatchUpdate struct {
	InstanceID   string `json:"instanceId"`
	ItemID       string `json:"itemId,omitempty"`
	RequestLevel string `json:"requestLevel,omitempty"`
}

type ItemEvent = DomainEvent[InventoryItem]
type LoanEvent = DomainEvent[Loan]
type RequestEvent = DomainEvent[Request]
type RequestsBatchUpdateEvent = DomainEvent[RequestsBatchUpdate]

// EventTopic names the inbound streams.
type EventTopic string

const (
	TopicItem                   EventTopic = "item"
	TopicLoan                   EventTopic = "loan"
	TopicRequest                EventTopic = "request"
	TopicRequestQueueReordering EventTopic = "request-queue-reordering"
)
