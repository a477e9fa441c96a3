package sound

import (
	"fmt"
	"regexp"
	"strconv"
)

var suffixRe = regexp.MustCompile(`^(.*) \((\d+)\)$`)

// UniqueName returns name if it is not taken, otherwise the first free
// "name (n)" variant. A name already carrying a counter continues from it.
func UniqueName(name string, existing []string) string {
	taken := make(map[string]bool, len(existing))
	for _, n := range existing {
		taken[n] = true
	}
	if !taken[name] {
		return name
	}
	base, n := name, 1
	if m := suffixRe.FindStringSubmatch(name); m != nil {
		base = m[1]
		if v, err := strconv.Atoi(m[2]); err == nil {
			n = v + 1
		}
	}
	for {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !taken[candidate] {
			return candidate
		}
		n++
	}
}
