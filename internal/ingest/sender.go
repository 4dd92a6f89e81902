package ingest

import (
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"
)

var angleAddress = regexp.MustCompile(`<(.+?)>`)

// NormalizeAddress reduces a From value ("Name <addr>" or a bare address)
// to the lower-cased address.
func NormalizeAddress(from string) string {
	from = strings.TrimSpace(from)
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	if m := angleAddress.FindStringSubmatch(from); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	return strings.ToLower(from)
}

// AllowList is the set of senders permitted to publish
type AllowList map[string]struct{}

// NewAllowList builds an allow list from configured addresses
func NewAllowList(addresses []string) AllowList {
	list := make(AllowList, len(addresses))
	for _, address := range addresses {
		if normalized := NormalizeAddress(address); normalized != "" {
			list[normalized] = struct{}{}
		}
	}
	return list
}

// Allowed reports whether the sender of a From value is on the list
func (l AllowList) Allowed(from string) bool {
	_, ok := l[NormalizeAddress(from)]
	return ok
}
