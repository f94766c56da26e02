package echoapi

import (
	"github.com/google/uuid"
)

const (
	detailOk      = "Ok"
	detailDeleted = "Deleted"
)

type (
	DetailResponse struct {
		Detail string `json:"detail"`
	}

	CreatedResponse struct {
		Detail string    `json:"detail"`
		UUID   uuid.UUID `json:"uuid"`
	}

	// ModifiedResponse lists the modified fields in request order, followed by `updated_at`.
	ModifiedResponse struct {
		Detail   string      `json:"detail"`
		Modified []string    `json:"modified"`
		Data     interface{} `json:"data,omitempty"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)
