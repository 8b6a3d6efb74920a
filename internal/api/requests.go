// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// maxRequestBody caps trigger payloads; they are tiny JSON objects.
const maxRequestBody = 1 << 16

var validate = validator.New(validator.WithRequiredStructEnabled())

// SyncTriggerRequest is the payload for POST /api/v1/sync/trigger.
// All fields are optional: an empty body triggers a default-mode batch
// across every connected tenant.
type SyncTriggerRequest struct {
	Mode     string `json:"mode" validate:"omitempty,oneof=incremental deep default"`
	TenantID string `json:"tenantId" validate:"omitempty,max=128"`
	DaysBack int    `json:"daysBack" validate:"omitempty,min=1,max=365"`
}

// HealthTriggerRequest is the payload for POST /api/v1/health/check.
type HealthTriggerRequest struct {
	TenantID string `json:"tenantId" validate:"omitempty,max=128"`
	Provider string `json:"provider" validate:"omitempty,max=64"`
}

// decodeRequest parses and validates a JSON body into dst. An empty body is
// accepted and leaves dst zero-valued.
func decodeRequest(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBody)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return validate.Struct(dst)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return validate.Struct(dst)
}
