package utils

import (
	"fmt"

	"carelink-service/internal/pkg/constvars"

	"github.com/google/uuid"
)

func GenerateRequestID() string {
	return uuid.New().String()
}

func GenerateSlotID() string {
	return uuid.New().String()
}

// GenerateTxRef builds the gateway transaction reference. It is minted once
// per payment row and reused across retries so the gateway sees one charge.
func GenerateTxRef() string {
	return fmt.Sprintf("%s-%s", constvars.TxRefPrefix, uuid.New().String())
}

func GenerateRefundID() string {
	return uuid.New().String()
}
