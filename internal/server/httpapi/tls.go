package httpapi

import (
	"golang.org/x/crypto/acme/autocert"
)

// certManager obtains certificates for domains through the TLS-ALPN
// challenge, so the HTTPS listener is the only one needed.
func certManager(domains []string, cacheDir string) *autocert.Manager {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
	}
	if cacheDir != "" {
		m.Cache = autocert.DirCache(cacheDir)
	}
	return m
}
