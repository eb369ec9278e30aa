// Package defaults provides embedded default assets (config).
package defaults

import _ "embed"

//go:embed default_config.json
var DefaultConfigJSON []byte
