package fleet

import (
	"fmt"
	"net/netip"
	"strings"
)

// ExpandTargets resolves target specs into literal IPv4 addresses. Each spec
// is either a single address or an inclusive "start-end" range. Order is
// preserved and duplicates are kept.
func ExpandTargets(specs []string) ([]string, error) {
	out := make([]string, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if strings.Contains(spec, "-") {
			addrs, err := expandRange(spec)
			if err != nil {
				return nil, err
			}
			out = append(out, addrs...)
			continue
		}
		addr, err := parseIPv4(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid target address %q", spec)
		}
		out = append(out, addr.String())
	}
	return out, nil
}

func expandRange(spec string) ([]string, error) {
	startStr, endStr, _ := strings.Cut(spec, "-")
	start, err := parseIPv4(strings.TrimSpace(startStr))
	if err != nil {
		return nil, fmt.Errorf("invalid IP range %q", spec)
	}
	end, err := parseIPv4(strings.TrimSpace(endStr))
	if err != nil {
		return nil, fmt.Errorf("invalid IP range %q", spec)
	}
	if start.Compare(end) > 0 {
		return nil, fmt.Errorf("invalid IP range %q (start > end)", spec)
	}

	var out []string
	for a := start; a.Compare(end) <= 0; a = a.Next() {
		out = append(out, a.String())
	}
	return out, nil
}

func parseIPv4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%q is not an IPv4 address", s)
	}
	return addr, nil
}
