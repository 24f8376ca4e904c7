package cache

import (
	"fmt"
	"strings"
)

// Key joins parts with ':' into a namespaced key, e.g. Key("ratelimit", ip, 42).
func Key(parts ...interface{}) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}
