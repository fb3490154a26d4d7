package probes

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// CheckTLS performs one TLS handshake against the target host and inspects
// the leaf certificate and the negotiated protocol version. Verification is
// disabled on purpose so broken chains can still be reported instead of
// aborting the handshake.
// Options calling convention.
func CheckTLS(opts schemas.ProbeOptions) schemas.RawResult {
	start := time.Now()
	target := normalizeTarget(opts.Target)

	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return failure("Request failed", "could not derive host from target")
	}
	host := parsed.Hostname()
	port := parsed.Port()
	if port == "" {
		port = "443"
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, port), &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
	})
	if err != nil {
		return failure("Request failed", err.Error())
	}
	defer conn.Close()

	state := conn.ConnectionState()
	version := tls.VersionName(state.Version)

	var notes []string
	severity := "LOW"
	description := fmt.Sprintf("TLS handshake succeeded, negotiated %s.", version)

	if state.Version < tls.VersionTLS12 {
		severity = "HIGH"
		notes = append(notes, fmt.Sprintf("legacy protocol %s negotiated", version))
	}

	evidence := map[string]any{
		"negotiated_version": version,
		"cipher_suite":       tls.CipherSuiteName(state.CipherSuite),
	}

	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		daysLeft := int(time.Until(leaf.NotAfter).Hours() / 24)
		evidence["subject"] = leaf.Subject.CommonName
		evidence["issuer"] = leaf.Issuer.CommonName
		evidence["not_after"] = leaf.NotAfter.UTC().Format(time.RFC3339)
		evidence["days_until_expiry"] = daysLeft

		switch {
		case daysLeft < 0:
			severity = "HIGH"
			notes = append(notes, "certificate expired")
		case daysLeft < 30:
			if severity != "HIGH" {
				severity = "MEDIUM"
			}
			notes = append(notes, fmt.Sprintf("certificate expires in %d days", daysLeft))
		}
		if err := leaf.VerifyHostname(host); err != nil {
			severity = "HIGH"
			notes = append(notes, "certificate hostname mismatch")
		}
	} else {
		notes = append(notes, "no peer certificate presented")
	}

	if len(notes) > 0 {
		description += " Issues: " + strings.Join(notes, "; ") + "."
	}

	return schemas.RawResult{
		"name":        "SSL/TLS Configuration",
		"severity":    severity,
		"description": description,
		"fix":         "Serve TLS 1.2 or newer with a valid, unexpired certificate matching the hostname; renew certificates before expiry.",
		"references":  []string{"https://cheatsheetseries.owasp.org/cheatsheets/Transport_Layer_Security_Cheat_Sheet.html"},
		"evidence":    evidence,
		"tls_notes":   notes,
		"_meta":       meta(start),
	}
}
