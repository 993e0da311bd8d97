package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// nextRev builds the revision token that supersedes current: a generation
// counter plus random hex, "<n>-<hex>". The token is opaque to callers; only
// equality matters for conflict detection.
func nextRev(current string) string {
	gen := 0
	if i := strings.IndexByte(current, '-'); i > 0 {
		if n, err := strconv.Atoi(current[:i]); err == nil {
			gen = n
		}
	}
	seed := make([]byte, 8)
	_, _ = rand.Read(seed)
	return fmt.Sprintf("%d-%s", gen+1, hex.EncodeToString(seed))
}
