package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
)

// Fingerprint binds a cart snapshot to its total:
// hex(SHA-256(json(cart) + "|" + total)).
func Fingerprint(cart []models.PricedLine, total int64) (string, error) {
	encoded, err := json.Marshal(cart)
	if err != nil {
		return "", fmt.Errorf("encode cart snapshot: %w", err)
	}

	h := sha256.New()
	h.Write(encoded)
	h.Write([]byte("|" + strconv.FormatInt(total, 10)))
	return hex.EncodeToString(h.Sum(nil)), nil
}
