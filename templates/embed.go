// Package templates embeds the starter configuration written by `init`.
package templates

import "embed"

//go:embed mise.toml
var FS embed.FS
