// Package migrations embeds the SQL schema so the binary carries its
// own migrations and needs no migrations directory at runtime.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
