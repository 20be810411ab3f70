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
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jerry-enebeli/tlr/api/middleware"
	"github.com/jerry-enebeli/tlr/model"
)

// ReceiveEvent queues a domain event for the workers. The tenant header names
// the tenant the event came from.
func (a Api) ReceiveEvent(c *gin.Context) {
	topic := model.EventTopic(c.Param("topic"))

	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event body must be a JSON document"})
		return
	}

	taskID, err := a.queue.EnqueueEvent(c.Request.Context(), topic, middleware.Tenant(c), body)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
}
