// README: Order id generation.
package order

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewID returns eight hex characters taken from a random v4 UUID.
func NewID() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:4]))
}
