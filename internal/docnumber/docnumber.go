// Package docnumber generates human-readable document numbers for
// quotes and invoices.
package docnumber

import (
	"fmt"
	"math/rand"
	"time"
)

// Generate returns a number of the form "{prefix}-{YYMM}-{NNNN}", sortable
// by month. The 4-digit suffix is drawn from rng, so the function alone
// does not guarantee uniqueness; the store enforces a unique constraint
// and callers regenerate on conflict.
func Generate(prefix string, t time.Time, rng *rand.Rand) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, t.Format("0601"), rng.Intn(10000))
}
