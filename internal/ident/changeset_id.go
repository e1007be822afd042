package ident

import (
	"fmt"
	"regexp"
	"strconv"
)

var idPrefixRE = regexp.MustCompile(`^(\d{3})-`)

// DeriveChangesetID scans existing sibling ids for their leading three-digit
// prefix and returns the next id as "{max+1:03d}-{slugify(subject)}". When no
// existing id carries a numeric prefix, numbering starts at 001.
func DeriveChangesetID(subject string, existing []string) (string, error) {
	slug := Slugify(subject)
	if slug == "" {
		return "", fmt.Errorf("ident: subject %q slugifies to empty string", subject)
	}

	max := 0
	for _, id := range existing {
		m := idPrefixRE.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}

	return fmt.Sprintf("%03d-%s", max+1, slug), nil
}
