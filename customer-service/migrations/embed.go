// Package migrations embeds the customer service schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
