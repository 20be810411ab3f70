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

// LoanActionRequest identifies a loan either by LoanID or by the ItemID and UserID pair.
type LoanActionRequest struct {
	LoanID         string     `json:"loan_id,omitempty"`
	ItemID         string     `json:"item_id,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	ServicePointID string     `json:"service_point_id,omitempty"`
	Comment        string     `json:"comment,omitempty"`
	ActionDate     *time.Time `json:"action_date,omitempty"`
}

// LoanActionResult describes where a loan action was applied. MirrorError is
// set when the action succeeded locally but could not be repeated in the
// lending tenant.
type LoanActionResult struct {
	Action         string `json:"action"`
	LoanID         string `json:"loan_id"`
	TenantID       string `json:"tenant_id"`
	MirrorLoanID   string `json:"mirror_loan_id,omitempty"`
	MirrorTenantID string `json:"mirror_tenant_id,omitempty"`
	MirrorError    string `json:"mirror_error,omitempty"`
}

func (r LoanActionResult) Partial() bool {
	return r.MirrorError != ""
}
