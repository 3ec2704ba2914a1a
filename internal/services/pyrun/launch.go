package pyrun

import (
	"os"
	"strings"
)

// Launch describes one Python script invocation through uvx.
type Launch struct {
	// Binary is the uvx executable; empty means UVXCommand.
	Binary   string
	Packages []string
	CUDA     bool
	// Offline forbids uvx from touching the network.
	Offline bool
	// Refresh forces uvx to re-resolve cached environments.
	Refresh bool
	Script  string
	Args    []string
	// Env holds KEY=VALUE pairs layered over the process environment.
	Env []string
	Dir string
}

// Command is a fully resolved process invocation.
type Command struct {
	Binary string
	Args   []string
	Env    []string
	Dir    string
}

// Command resolves the uvx argument list and environment.
func (l Launch) Command() Command {
	binary := strings.TrimSpace(l.Binary)
	if binary == "" {
		binary = UVXCommand
	}
	args := make([]string, 0, 8+2*len(l.Packages)+len(l.Args))
	args = append(args, "--quiet")
	if l.Offline {
		args = append(args, "--offline")
	} else if l.Refresh {
		args = append(args, "--refresh")
	}
	for _, pkg := range l.Packages {
		args = append(args, "--with", pkg)
	}
	if l.CUDA {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	}
	args = append(args, "python", l.Script)
	args = append(args, l.Args...)

	return Command{
		Binary: binary,
		Args:   args,
		Env:    mergeEnv(os.Environ(), l.Env),
		Dir:    l.Dir,
	}
}

// mergeEnv overlays KEY=VALUE pairs onto base, replacing existing keys, and
// sets the torch weights-loading override unless it is already set.
func mergeEnv(base, overlay []string) []string {
	index := make(map[string]int, len(base)+len(overlay))
	out := make([]string, 0, len(base)+len(overlay)+1)
	set := func(kv string) {
		key, _, _ := strings.Cut(kv, "=")
		if pos, ok := index[key]; ok {
			out[pos] = kv
			return
		}
		index[key] = len(out)
		out = append(out, kv)
	}
	for _, kv := range base {
		set(kv)
	}
	for _, kv := range overlay {
		set(kv)
	}
	if value, _ := LookupEnv(out, torchWeightsEnv); value == "" {
		set(torchWeightsEnv + "=1")
	}
	return out
}

// LookupEnv returns the value of key in a KEY=VALUE list.
func LookupEnv(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(env[i], "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}
