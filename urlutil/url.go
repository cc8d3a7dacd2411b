// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package urlutil parses the remote URL grammar used by sync, clone,
// list-repos and register:
// "[scheme://]host[:port][/repository-path]".
package urlutil

import (
	"strconv"
	"strings"

	"github.com/passadis/orbit/orbiterr"
)

// URL is a parsed Orbit remote address.
type URL struct {
	Host       string
	Port       int
	UseTLS     bool
	ServerName string
	Repository string // "" if the URL names no repository
}

// RequiresTLS reports whether raw's scheme or port implies TLS.
func RequiresTLS(raw string) bool {
	if strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "orbits://") {
		return true
	}
	hostPort := raw
	if i := strings.Index(hostPort, "://"); i >= 0 {
		hostPort = hostPort[i+3:]
	}
	if slash := strings.IndexByte(hostPort, '/'); slash >= 0 {
		hostPort = hostPort[:slash]
	}
	colon := strings.IndexByte(hostPort, ':')
	if colon < 0 {
		return false
	}
	port := hostPort[colon+1:]
	return port == "443" || port == "8443"
}

// Parse parses raw as an Orbit remote address.
func Parse(raw string) (URL, error) {
	useTLS := RequiresTLS(raw)

	clean := raw
	for _, prefix := range []string{"https://", "http://", "orbits://", "orbit://"} {
		if strings.HasPrefix(clean, prefix) {
			clean = strings.TrimPrefix(clean, prefix)
			break
		}
	}
	if clean == "" {
		return URL{}, orbiterr.Newf("urlutil.Parse", orbiterr.Precondition, "empty remote URL")
	}

	var host, repository string
	var port int

	if colon := strings.IndexByte(clean, ':'); colon >= 0 {
		host = clean[:colon]
		remainder := clean[colon+1:]

		portStr := remainder
		if slash := strings.IndexByte(remainder, '/'); slash >= 0 {
			portStr = remainder[:slash]
			repository = remainder[slash+1:]
		}
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return URL{}, orbiterr.Newf("urlutil.Parse", orbiterr.Precondition, "invalid port %q", portStr)
		}
		port = p
	} else {
		if slash := strings.IndexByte(clean, '/'); slash >= 0 {
			host = clean[:slash]
			repository = clean[slash+1:]
		} else {
			host = clean
		}
		if useTLS {
			port = 443
		} else {
			port = 8080
		}
	}

	if host == "" {
		return URL{}, orbiterr.Newf("urlutil.Parse", orbiterr.Precondition, "missing host in %q", raw)
	}

	return URL{
		Host:       host,
		Port:       port,
		UseTLS:     useTLS,
		ServerName: host,
		Repository: repository,
	}, nil
}
