package env

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Load applies KEY=VALUE pairs from the given files. Later files override
// earlier ones; variables set in the process environment before Load win
// over every file.
func Load(paths ...string) {
	merged := map[string]string{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		for k, v := range Parse(f) {
			merged[k] = v
		}
		_ = f.Close()
	}
	for k, v := range merged {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		_ = os.Setenv(k, v)
	}
}

func Parse(r io.Reader) map[string]string {
	out := map[string]string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		k, v, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

func parseLine(raw string) (string, string, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	k, v, ok := strings.Cut(line, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", false
	}
	v = strings.TrimSpace(v)
	if unq, quoted := unquote(v); quoted {
		return k, unq, true
	}
	if j := strings.Index(v, " #"); j >= 0 {
		v = strings.TrimSpace(v[:j])
	}
	return k, v, true
}

func unquote(v string) (string, bool) {
	if len(v) < 2 {
		return v, false
	}
	if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
		return v[1 : len(v)-1], true
	}
	return v, false
}
