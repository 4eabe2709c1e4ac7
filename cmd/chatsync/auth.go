package main

import (
	"context"

	"chatsync/internal/errors"
	"chatsync/internal/validation"
)

// tenantAuthorizer is the in-process stand-in for the application's
// membership service. Real room membership checks live in the surrounding
// business application; this pipeline only enforces the structural rule it
// can verify on its own: a room name must be well formed and the caller must
// present a tenant. Swap this for a client of the membership service when
// embedding the pipeline.
type tenantAuthorizer struct{}

func newTenantAuthorizer() *tenantAuthorizer {
	return &tenantAuthorizer{}
}

func (a *tenantAuthorizer) Authorize(ctx context.Context, userID, tenantID, room string) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return errors.Wrap(err, errors.ErrCodeAuthorization, "missing or malformed user identity")
	}
	if err := validation.ValidateTenantID(tenantID); err != nil {
		return errors.Wrap(err, errors.ErrCodeAuthorization, "missing or malformed tenant identity")
	}
	if err := validation.ValidateRoomName(room); err != nil {
		return errors.Wrap(err, errors.ErrCodeAuthorization, "malformed room name")
	}
	return nil
}
