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

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/tlr/config"
	"github.com/jerry-enebeli/tlr/internal/notification"
	redis_db "github.com/jerry-enebeli/tlr/internal/redis-db"
	"github.com/jerry-enebeli/tlr/model"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

var topics = []model.EventTopic{
	model.TopicItem,
	model.TopicLoan,
	model.TopicRequest,
	model.TopicRequestQueueReordering,
}

// processEvent hands a queued domain event to the engine. A returned error
// sends the task back for retry.
func (t *tlrInstance) processEvent(ctx context.Context, task *asynq.Task) error {
	ctx, span := otel.Tracer("tlr.events.worker").Start(ctx, "Process Event From Redis Queue")
	defer span.End()

	if err := t.tlr.ProcessEvent(ctx, task.Payload()); err != nil {
		logrus.WithField("topic", task.Type()).Infof("event pushed back for retry: %v", err)
		return err
	}
	return nil
}

// initializeQueues weights request events above the others since they drive
// transaction creation.
func initializeQueues(cfg *config.Configuration) map[string]int {
	return map[string]int{
		cfg.Queue.RequestQueue:           4,
		cfg.Queue.LoanQueue:              3,
		cfg.Queue.ItemQueue:              2,
		cfg.Queue.RequestQueueReordering: 1,
	}
}

// reportExhausted notifies once an event has used up its retries.
func reportExhausted(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried < maxRetry {
		return
	}
	taskID, _ := asynq.GetTaskID(ctx)
	notification.NotifyError(fmt.Errorf("event %s on %s dropped after %d retries: %w", taskID, task.Type(), retried, err))
}

func redisConnOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	connOpt, err := redisConnOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(connOpt, asynq.Config{
		Concurrency:  conf.Queue.Concurrency,
		Queues:       queues,
		ErrorHandler: asynq.ErrorHandlerFunc(reportExhausted),
	}), nil
}

func initializeTaskHandlers(t *tlrInstance, mux *asynq.ServeMux) {
	for _, topic := range topics {
		mux.HandleFunc(string(topic), t.processEvent)
	}
}

// workerCommands defines the "workers" command that consumes the event queues.
func workerCommands(t *tlrInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start tlr workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf := t.cnf

			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			srv, err := initializeWorkerServer(conf, initializeQueues(conf))
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(t, mux)

			connOpt, err := redisConnOpt(conf)
			if err != nil {
				log.Fatal(err)
			}
			h := asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: connOpt,
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
