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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/tlr/internal/apierror"
	"github.com/jerry-enebeli/tlr/model"
)

const ecsTlrColumns = `id, instance_id, item_id, holdings_record_id, requester_id, request_type,
	request_level, fulfillment_preference, pickup_service_point_id, request_expiration_date,
	patron_comments, primary_request_id, primary_request_tenant_id, primary_request_dcb_transaction_id,
	secondary_request_id, secondary_request_tenant_id, secondary_request_dcb_transaction_id,
	intermediate_request_id, intermediate_request_tenant_id, intermediate_request_dcb_transaction_id,
	created_at, updated_at`

var requestIDColumn = map[model.Leg]string{
	model.LegPrimary:      "primary_request_id",
	model.LegSecondary:    "secondary_request_id",
	model.LegIntermediate: "intermediate_request_id",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanEcsTlr(row rowScanner) (*model.EcsTlr, error) {
	var (
		chain                                              model.EcsTlr
		itemID, holdingsID, pickupSP, comments             sql.NullString
		primaryID, primaryTenant, primaryTx                sql.NullString
		secondaryID, secondaryTenant, secondaryTx          sql.NullString
		intermediateID, intermediateTenant, intermediateTx sql.NullString
		expiration                                         sql.NullTime
	)
	err := row.Scan(
		&chain.ID, &chain.InstanceID, &itemID, &holdingsID, &chain.RequesterID, &chain.RequestType,
		&chain.RequestLevel, &chain.FulfillmentPreference, &pickupSP, &expiration,
		&comments, &primaryID, &primaryTenant, &primaryTx,
		&secondaryID, &secondaryTenant, &secondaryTx,
		&intermediateID, &intermediateTenant, &intermediateTx,
		&chain.CreatedAt, &chain.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	chain.ItemID = itemID.String
	chain.HoldingsRecordID = holdingsID.String
	chain.PickupServicePointID = pickupSP.String
	chain.PatronComments = comments.String
	if expiration.Valid {
		t := expiration.Time
		chain.RequestExpirationDate = &t
	}
	chain.PrimaryRequestID, chain.PrimaryRequestTenantID, chain.PrimaryRequestDcbTransactionID = primaryID.String, primaryTenant.String, primaryTx.String
	chain.SecondaryRequestID, chain.SecondaryRequestTenantID, chain.SecondaryRequestDcbTransactionID = secondaryID.String, secondaryTenant.String, secondaryTx.String
	chain.IntermediateRequestID, chain.IntermediateRequestTenantID, chain.IntermediateRequestDcbTransactionID = intermediateID.String, intermediateTenant.String, intermediateTx.String
	return &chain, nil
}

func (d Datasource) queryEcsTlrs(ctx context.Context, where string, args ...interface{}) ([]*model.EcsTlr, error) {
	rows, err := d.Conn.QueryContext(ctx, `SELECT `+ecsTlrColumns+` FROM tlr.ecs_tlr WHERE `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to query ecs tlr records", err)
	}
	defer rows.Close()

	var chains []*model.EcsTlr
	for rows.Next() {
		chain, err := scanEcsTlr(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan ecs tlr record", err)
		}
		chains = append(chains, chain)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read ecs tlr records", err)
	}
	return chains, nil
}

func (d Datasource) findOne(ctx context.Context, where string, args ...interface{}) (*model.EcsTlr, error) {
	chains, err := d.queryEcsTlrs(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	if len(chains) == 0 {
		return nil, nil
	}
	return chains[0], nil
}

// CreateEcsTlr inserts a chain record. CreatedAt and UpdatedAt are set when zero.
func (d Datasource) CreateEcsTlr(ctx context.Context, chain *model.EcsTlr) error {
	ctx, span := otel.Tracer("EcsTlr").Start(ctx, "Saving ecs tlr to db")
	defer span.End()

	now := time.Now().UTC()
	if chain.CreatedAt.IsZero() {
		chain.CreatedAt = now
	}
	chain.UpdatedAt = chain.CreatedAt

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO tlr.ecs_tlr(`+ecsTlrColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		chain.ID, chain.InstanceID, nullString(chain.ItemID), nullString(chain.HoldingsRecordID), chain.RequesterID, chain.RequestType,
		chain.RequestLevel, chain.FulfillmentPreference, nullString(chain.PickupServicePointID), chain.RequestExpirationDate,
		nullString(chain.PatronComments), nullString(chain.PrimaryRequestID), nullString(chain.PrimaryRequestTenantID), nullString(chain.PrimaryRequestDcbTransactionID),
		nullString(chain.SecondaryRequestID), nullString(chain.SecondaryRequestTenantID), nullString(chain.SecondaryRequestDcbTransactionID),
		nullString(chain.IntermediateRequestID), nullString(chain.IntermediateRequestTenantID), nullString(chain.IntermediateRequestDcbTransactionID),
		chain.CreatedAt, chain.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apierror.NewAPIError(apierror.ErrConflict, "ecs tlr already exists", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save ecs tlr", err)
	}
	return nil
}

func (d Datasource) GetEcsTlrByID(ctx context.Context, id string) (*model.EcsTlr, error) {
	ctx, span := otel.Tracer("EcsTlr").Start(ctx, "Fetching ecs tlr from db")
	defer span.End()

	chain, err := scanEcsTlr(d.Conn.QueryRowContext(ctx, `SELECT `+ecsTlrColumns+` FROM tlr.ecs_tlr WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("ecs tlr with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve ecs tlr", err)
	}
	return chain, nil
}

// UpdateEcsTlr rewrites every mutable column of the chain. The item id is only
// written when the stored value is still empty.
func (d Datasource) UpdateEcsTlr(ctx context.Context, chain *model.EcsTlr) error {
	ctx, span := otel.Tracer("EcsTlr").Start(ctx, "Updating ecs tlr in db")
	defer span.End()

	chain.UpdatedAt = time.Now().UTC()
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE tlr.ecs_tlr SET
			item_id = COALESCE(item_id, $2), holdings_record_id = COALESCE(holdings_record_id, $3),
			pickup_service_point_id = $4, request_expiration_date = $5, patron_comments = $6,
			primary_request_id = $7, primary_request_tenant_id = $8, primary_request_dcb_transaction_id = $9,
			secondary_request_id = $10, secondary_request_tenant_id = $11, secondary_request_dcb_transaction_id = $12,
			intermediate_request_id = $13, intermediate_request_tenant_id = $14, intermediate_request_dcb_transaction_id = $15,
			updated_at = $16
		WHERE id = $1`,
		chain.ID, nullString(chain.ItemID), nullString(chain.HoldingsRecordID),
		nullString(chain.PickupServicePointID), chain.RequestExpirationDate, nullString(chain.PatronComments),
		nullString(chain.PrimaryRequestID), nullString(chain.PrimaryRequestTenantID), nullString(chain.PrimaryRequestDcbTransactionID),
		nullString(chain.SecondaryRequestID), nullString(chain.SecondaryRequestTenantID), nullString(chain.SecondaryRequestDcbTransactionID),
		nullString(chain.IntermediateRequestID), nullString(chain.IntermediateRequestTenantID), nullString(chain.IntermediateRequestDcbTransactionID),
		chain.UpdatedAt,
	)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update ecs tlr", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("ecs tlr with ID '%s' not found", chain.ID), nil)
	}
	return nil
}

func (d Datasource) DeleteEcsTlr(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("EcsTlr").Start(ctx, "Deleting ecs tlr from db")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `DELETE FROM tlr.ecs_tlr WHERE id = $1`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete ecs tlr", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("ecs tlr with ID '%s' not found", id), nil)
	}
	return nil
}

// FindEcsTlrByRequestID finds the chain whose given leg points at requestID.
func (d Datasource) FindEcsTlrByRequestID(ctx context.Context, leg model.Leg, requestID string) (*model.EcsTlr, error) {
	ctx, span := otel.Tracer("EcsTlr").Start(ctx, "Finding ecs tlr by request id")
	defer span.End()

	column, ok := requestIDColumn[leg]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown request phase '%s'", leg), nil)
	}
	return d.findOne(ctx, column+" = $1", requestID)
}

func (d Datasource) FindEcsTlrByItemAndRequester(ctx context.Context, itemID, requesterID string) (*model.EcsTlr, error) {
	ctx, span := otel.Tracer("EcsTlr").Start(ctx, "Finding ecs tlr by item and requester")
	defer span.End()

	return d.findOne(ctx, "item_id = $1 AND requester_id = $2", itemID, requesterID)
}

func (d Datasource) FindEcsTlrsByItemID(ctx context.Context, itemID string) ([]*model.EcsTlr, error) {
	ctx, span := otel.Tracer("EcsTlr").Start(ctx, "Finding ecs tlrs by item")
	defer span.End()

	return d.queryEcsTlrs(ctx, "item_id = $1", itemID)
}

func (d Datasource) FindEcsTlrsByRequesterAndInstance(ctx context.Context, requesterID, instanceID string) ([]*model.EcsTlr, error) {
	ctx, span := otel.Tracer("EcsTlr").Start(ctx, "Finding ecs tlrs by requester and instance")
	defer span.End()

	return d.queryEcsTlrs(ctx, "requester_id = $1 AND instance_id = $2", requesterID, instanceID)
}

// FindEcsTlrsByCentralRequestIDs returns the chains whose central-tenant leg is
// one of requestIDs. That leg is the primary one when the patron belongs to the
// central tenant and the intermediate one otherwise.
func (d Datasource) FindEcsTlrsByCentralRequestIDs(ctx context.Context, requestIDs []string) ([]*model.EcsTlr, error) {
	ctx, span := otel.Tracer("EcsTlr").Start(ctx, "Finding ecs tlrs by central request ids")
	defer span.End()

	if len(requestIDs) == 0 {
		return nil, nil
	}
	return d.queryEcsTlrs(ctx, "primary_request_id = ANY($1) OR intermediate_request_id = ANY($1)", pq.Array(requestIDs))
}
