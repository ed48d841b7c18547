// Package migrations embeds the SQL schema for the baseline store, so the
// migrate tool runs the files it shipped with regardless of working
// directory.
package migrations

import "embed"

//go:embed postgres/*.sql
var Postgres embed.FS
