package runner

import (
	"sort"
	"strings"
)

// MergeEnv returns base with each KEY=VALUE entry of extra set or replaced.
func MergeEnv(base, extra []string) []string {
	env := append([]string(nil), base...)
	for _, kv := range extra {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env = setEnv(env, key, value)
	}
	return env
}

// EnvList converts a map into sorted KEY=VALUE entries.
func EnvList(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
