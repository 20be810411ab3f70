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
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jerry-enebeli/tlr"
	"github.com/jerry-enebeli/tlr/api/middleware"
	"github.com/jerry-enebeli/tlr/config"
	"github.com/jerry-enebeli/tlr/internal/apierror"
	"github.com/jerry-enebeli/tlr/model"
)

// Engine is the part of the request engine exposed over HTTP.
type Engine interface {
	CreateEcsTlr(ctx context.Context, callingTenantID string, chain *model.EcsTlr) (*model.EcsTlr, error)
	GetEcsTlr(ctx context.Context, id string) (*model.EcsTlr, error)
	UpdateEcsTlr(ctx context.Context, id string, update *model.EcsTlr) (*model.EcsTlr, error)
	DeleteEcsTlr(ctx context.Context, id string) error
	PerformLoanAction(ctx context.Context, tenantID string, action tlr.LoanAction, req model.LoanActionRequest) (*model.LoanActionResult, error)
}

// EventQueue accepts inbound domain events for the workers.
type EventQueue interface {
	EnqueueEvent(ctx context.Context, topic model.EventTopic, tenantID string, event json.RawMessage) (string, error)
}

type Api struct {
	engine Engine
	queue  EventQueue
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/ecs-tlrs", a.CreateEcsTlr)
	router.GET("/ecs-tlrs/:id", a.GetEcsTlr)
	router.PUT("/ecs-tlrs/:id", a.UpdateEcsTlr)
	router.DELETE("/ecs-tlrs/:id", a.DeleteEcsTlr)

	router.POST("/loans/declare-item-lost", a.loanAction(tlr.DeclareItemLost))
	router.POST("/loans/claim-item-returned", a.loanAction(tlr.ClaimItemReturned))
	router.POST("/loans/declare-claimed-returned-item-as-missing", a.loanAction(tlr.DeclareClaimedReturnedItemAsMissing))

	router.POST("/events/:topic", a.ReceiveEvent)
	return a.router
}

func NewAPI(conf *config.Configuration, engine Engine, queue EventQueue) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware(conf))
	}
	r.Use(middleware.TenantMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{engine: engine, queue: queue, router: r}
}

func respondWithError(c *gin.Context, err error) {
	status, body := apierror.ToResponse(err)
	c.JSON(status, body)
}
