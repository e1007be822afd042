package ident

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var scpLikeRE = regexp.MustCompile(`^([^@/]+@[^:/]+):(.+)$`)

// NormalizeRepoKey rewrites a git remote URL into a stable "host/path" key.
// "git@host:path" forms are rewritten to "ssh://git@host/path" first; the
// result is then parsed as a URL ("https://" is prepended if bare parsing
// fails), and the key is host + "/" + the URL path with leading/trailing
// slashes and a trailing ".git" suffix trimmed.
func NormalizeRepoKey(remote string) (string, error) {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return "", fmt.Errorf("ident: remote URL is empty")
	}

	candidate := remote
	if m := scpLikeRE.FindStringSubmatch(remote); m != nil {
		candidate = "ssh://" + m[1] + "/" + m[2]
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + candidate)
		if err != nil {
			return "", fmt.Errorf("ident: cannot parse remote URL %q: %w", remote, err)
		}
	}

	host := u.Host
	if host == "" {
		return "", fmt.Errorf("ident: remote URL %q has no host", remote)
	}

	path := strings.Trim(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	if path == "" {
		return host, nil
	}
	return host + "/" + path, nil
}
