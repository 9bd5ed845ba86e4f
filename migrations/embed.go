// Package migrations embeds the SQL schema applied at startup.
package migrations

import "embed"

// Files holds the *.sql migrations, applied in lexical order.
//
//go:embed *.sql
var Files embed.FS
