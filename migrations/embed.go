// Package migrations embeds the SQL schema migrations for the local ledger
// database. Files are applied in lexical order by goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
