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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jerry-enebeli/tlr"
	"github.com/jerry-enebeli/tlr/api/middleware"
	model2 "github.com/jerry-enebeli/tlr/api/model"
)

// loanAction answers 200 when the action reached both tenants and 202 when
// only the local loan was changed.
func (a Api) loanAction(action tlr.LoanAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body model2.LoanAction
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
			return
		}
		if err := body.ValidateLoanAction(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
			return
		}

		resp, err := a.engine.PerformLoanAction(c.Request.Context(), middleware.Tenant(c), action, body.ToLoanActionRequest())
		if err != nil {
			respondWithError(c, err)
			return
		}

		if resp.Partial() {
			c.JSON(http.StatusAccepted, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
