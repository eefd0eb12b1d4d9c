package google

import (
	"fmt"
	"strings"

	ports "backoffice/internal/sheets"
)

// parseOrderIDs collects the first cell of every row, skipping blanks and
// the header.
func parseOrderIDs(values [][]interface{}) map[string]bool {
	header := strings.TrimSpace(fmt.Sprint(ports.Header[0]))
	ids := make(map[string]bool, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.EqualFold(v, header) {
			continue
		}
		ids[v] = true
	}
	return ids
}
