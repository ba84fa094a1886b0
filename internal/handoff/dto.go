package handoff

import (
	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
)

// GenerateInput requests a confirmation code for a pickup order.
type GenerateInput struct {
	OrderID  uuid.UUID
	SellerID uuid.UUID
	Actor    *outbox.ActorRef
}

// GenerateResult carries the one-time plaintext; only its hash is stored.
type GenerateResult struct {
	OrderID uuid.UUID
	Code    string
}

// VerifyInput carries one hand-over attempt.
type VerifyInput struct {
	OrderID  uuid.UUID
	SellerID uuid.UUID
	Code     string
	Actor    *outbox.ActorRef
}
