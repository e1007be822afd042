package runner

import "strings"

// proxyVars are removed when a step denies network, so a tool cannot reach
// out through an inherited proxy even though the runner never opens a
// sandbox of its own.
var proxyVars = []string{
	"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY", "NO_PROXY",
	"http_proxy", "https_proxy", "all_proxy", "no_proxy",
}

// alwaysInherited is the minimal ambient environment a step receives even
// before env_allowlist is applied. Without PATH most toolchains cannot
// resolve their own binary; without HOME many write caches to /.
var alwaysInherited = []string{"PATH", "HOME"}

// buildEnv constructs a step's environment from nothing, per spec.md §4.5:
// PATH and HOME are always inherited, step.Env overrides/adds on top, then
// each name in step.EnvAllow is copied from ambientEnv if present, and
// finally proxy variables are stripped when the step denies network.
func buildEnv(step Step, ambientEnv []string) []string {
	ambient := splitEnv(ambientEnv)

	out := map[string]string{}
	for _, k := range alwaysInherited {
		if v, ok := ambient[k]; ok {
			out[k] = v
		}
	}
	for k, v := range step.Env {
		out[k] = v
	}
	for _, name := range step.EnvAllow {
		if v, ok := ambient[name]; ok {
			out[name] = v
		}
	}
	if step.Network == NetworkDeny {
		for _, p := range proxyVars {
			delete(out, p)
		}
	}

	result := make([]string, 0, len(out))
	for k, v := range out {
		result = append(result, k+"="+v)
	}
	return result
}

func splitEnv(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			m[kv[:idx]] = kv[idx+1:]
		}
	}
	return m
}
