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
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/tlr/config"
	"github.com/jerry-enebeli/tlr/internal/apierror"
	redis_db "github.com/jerry-enebeli/tlr/internal/redis-db"
	"github.com/jerry-enebeli/tlr/model"
)

// Queue carries inbound domain events to the workers, one asynq queue per topic.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	cnf       config.QueueConfig
}

// EventTask is the payload stored for every queued event.
type EventTask struct {
	Topic    model.EventTopic `json:"topic"`
	TenantID string           `json:"tenant"`
	Event    json.RawMessage  `json:"event"`
}

func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
		cnf:       conf.Queue,
	}
}

// QueueName returns the asynq queue that carries topic.
func QueueName(cnf config.QueueConfig, topic model.EventTopic) (string, error) {
	switch topic {
	case model.TopicItem:
		return cnf.ItemQueue, nil
	case model.TopicLoan:
		return cnf.LoanQueue, nil
	case model.TopicRequest:
		return cnf.RequestQueue, nil
	case model.TopicRequestQueueReordering:
		return cnf.RequestQueueReordering, nil
	}
	return "", apierror.NewAPIError(apierror.ErrUnrecognizedEventTopic, fmt.Sprintf("unrecognized event topic %q", topic), nil)
}

// EnqueueEvent queues a raw event published by tenantID. The event id becomes
// the task id, so a redelivered event is accepted without being queued twice.
func (q *Queue) EnqueueEvent(ctx context.Context, topic model.EventTopic, tenantID string, event json.RawMessage) (string, error) {
	ctx, span := tracer.Start(ctx, "Adding event to queue")
	defer span.End()

	queueName, err := QueueName(q.cnf, topic)
	if err != nil {
		return "", err
	}
	var header struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event, &header); err != nil {
		return "", apierror.NewAPIError(apierror.ErrInvalidInput, "event body is not valid JSON", err)
	}
	taskID := header.ID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	payload, err := json.Marshal(EventTask{Topic: topic, TenantID: tenantID, Event: event})
	if err != nil {
		return "", err
	}
	task := asynq.NewTask(string(topic), payload, asynq.TaskID(taskID), asynq.Queue(queueName))
	_, err = q.Client.EnqueueContext(ctx, task, asynq.MaxRetry(q.maxRetry()))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logrus.WithFields(logrus.Fields{"task": taskID, "queue": queueName}).Info("event already queued")
		return taskID, nil
	}
	if err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{"task": taskID, "queue": queueName, "tenant": tenantID}).Info("event queued")
	return taskID, nil
}

func (q *Queue) maxRetry() int {
	if q.cnf.MaxRetryAttempts <= 0 {
		return 5
	}
	return q.cnf.MaxRetryAttempts
}

// ProcessEvent decodes a queued event and hands it to its handler. Payloads
// that cannot be decoded are logged and dropped since retrying cannot fix
// them. Handler errors are returned so the task is retried.
func (t *TLR) ProcessEvent(ctx context.Context, payload []byte) error {
	var task EventTask
	if err := json.Unmarshal(payload, &task); err != nil {
		logrus.Errorf("dropping undecodable event task: %v", err)
		return nil
	}
	log := logrus.WithFields(logrus.Fields{"topic": task.Topic, "tenant": task.TenantID})

	switch task.Topic {
	case model.TopicItem:
		var event model.ItemEvent
		if !decodeEvent(log, task, &event) {
			return nil
		}
		withTenantHeader(&event.TenantID, task.TenantID)
		return t.HandleItemUpdated(ctx, event)
	case model.TopicLoan:
		var event model.LoanEvent
		if !decodeEvent(log, task, &event) {
			return nil
		}
		withTenantHeader(&event.TenantID, task.TenantID)
		return t.HandleLoanUpdated(ctx, event)
	case model.TopicRequest:
		var event model.RequestEvent
		if !decodeEvent(log, task, &event) {
			return nil
		}
		withTenantHeader(&event.TenantID, task.TenantID)
		return t.HandleRequestUpdated(ctx, event)
	case model.TopicRequestQueueReordering:
		var event model.RequestsBatchUpdateEvent
		if !decodeEvent(log, task, &event) {
			return nil
		}
		withTenantHeader(&event.TenantID, task.TenantID)
		return t.HandleRequestQueueReordered(ctx, event)
	}
	log.Warn("dropping event with unknown topic")
	return nil
}

func decodeEvent(log *logrus.Entry, task EventTask, v interface{}) bool {
	if err := json.Unmarshal(task.Event, v); err != nil {
		log.Errorf("dropping malformed event: %v", err)
		return false
	}
	return true
}

// withTenantHeader prefers the tenant the event was delivered for over the
// one written in the body.
func withTenantHeader(tenantID *string, header string) {
	if header != "" {
		*tenantID = header
	}
}
