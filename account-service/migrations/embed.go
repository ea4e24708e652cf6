// Package migrations embeds the account service schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
