package importer

import (
	"crypto/md5" //nolint:gosec // dedup key
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ImportHash identifies a statement line within an account so the same line
// is never imported twice.
func ImportHash(accountID int64, cashDate time.Time, document string, amount decimal.Decimal) string {
	canonical := fmt.Sprintf("conta:%d-data:%s-doc:%s-valor:%s",
		accountID,
		cashDate.Format(time.DateOnly),
		strings.TrimSpace(document),
		amount.StringFixed(2))
	sum := md5.Sum([]byte(canonical)) //nolint:gosec // dedup key
	return hex.EncodeToString(sum[:])
}
