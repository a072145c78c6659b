// Package migrations embeds the remote schema as NNN_name.sql files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
