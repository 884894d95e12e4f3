package firewall

import (
	"strings"

	"github.com/ironclaw/runtime/internal/errx"
)

// ChainPrefix tags every chain this package creates so cleanup sweeps and
// manual inspection can tell an ironclaw chain from anything else on the
// host.
const ChainPrefix = "IRONCLAW_"

// maxChainNameLen mirrors the 28-character limit the reference
// implementation's packet-filter enforces for a chain name.
const maxChainNameLen = 28

// ChainName deterministically derives a per-VM firewall chain name from a
// VM id: non-alphanumeric characters become underscores, and the prefixed
// result must not exceed maxChainNameLen.
func ChainName(vmID string) (string, error) {
	var b strings.Builder
	for _, r := range vmID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := ChainPrefix + b.String()
	if len(name) > maxChainNameLen {
		return "", errx.With(ErrChainNameTooLong, ": %q is %d characters, limit is %d", name, len(name), maxChainNameLen)
	}
	return name, nil
}
