package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueIndexDDL(t *testing.T) {
	keys := map[string][]string{
		"products":   {"organization_id", "sku"},
		"orders":     {"organization_id", "order_number"},
		"categories": {"organization_id", "name"},
	}

	ddl := UniqueIndexDDL()
	assert.Len(t, ddl, len(keys))

	for table, columns := range keys {
		t.Run(table, func(t *testing.T) {
			var stmt string
			for _, s := range ddl {
				if strings.Contains(s, " ON "+table+" ") {
					stmt = s
					break
				}
			}
			if !assert.NotEmpty(t, stmt, "no index statement for %s", table) {
				return
			}
			assert.Contains(t, stmt, "CREATE UNIQUE INDEX")
			assert.Contains(t, stmt, "("+strings.Join(columns, ", ")+")")
			assert.Contains(t, stmt, "WHERE is_deleted = false")
		})
	}
}
