package checks

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/fs"
	"os"
	"time"

	"incus-sync/feature/hosts"
)

// MaxKeyMode is the widest permission accepted on a client key file.
const MaxKeyMode fs.FileMode = 0o640

// ExpiryWarning is how close to expiry a client certificate gets flagged.
const ExpiryWarning = 30 * 24 * time.Hour

// CredentialReport describes the local connection material of one host.
// It never carries key contents.
type CredentialReport struct {
	Host     string     `json:"host"`
	Type     string     `json:"connection_type"`
	Status   string     `json:"status"` // "ok", "warning", "error"
	Problems []string   `json:"problems"`
	NotAfter *time.Time `json:"not_after,omitempty"`
}

func (r *CredentialReport) problem(status, format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
	if r.Status != "error" {
		r.Status = status
	}
}

// CheckCredentials inspects the socket or certificate files of each host.
func CheckCredentials(list []hosts.Host, now time.Time) []CredentialReport {
	reports := make([]CredentialReport, 0, len(list))
	for _, h := range list {
		r := CredentialReport{Host: h.Name, Type: h.ConnectionType, Status: "ok", Problems: []string{}}
		if h.ConnectionType == "https" {
			checkTLS(&r, h, now)
		} else {
			checkSocket(&r, h.SocketPath)
		}
		reports = append(reports, r)
	}
	return reports
}

func checkSocket(r *CredentialReport, path string) {
	info, err := os.Stat(path)
	if err != nil {
		r.problem("error", "socket %s: %v", path, err)
		return
	}
	if info.Mode()&fs.ModeSocket == 0 {
		r.problem("error", "%s is not a unix socket", path)
	}
}

func checkTLS(r *CredentialReport, h hosts.Host, now time.Time) {
	certOK := checkReadable(r, "client certificate", h.ClientCertPath)
	keyOK := checkReadable(r, "client key", h.ClientKeyPath)
	if keyOK {
		if info, err := os.Stat(h.ClientKeyPath); err == nil && info.Mode().Perm()&^MaxKeyMode != 0 {
			r.problem("error", "client key mode %#o is wider than %#o", info.Mode().Perm(), MaxKeyMode)
		}
	}

	if h.CACertPath != "" && checkReadable(r, "CA certificate", h.CACertPath) {
		pem, err := os.ReadFile(h.CACertPath)
		if err != nil || !x509.NewCertPool().AppendCertsFromPEM(pem) {
			r.problem("error", "CA certificate %s holds no PEM certificate", h.CACertPath)
		}
	}

	if !certOK || !keyOK {
		return
	}
	pair, err := tls.LoadX509KeyPair(h.ClientCertPath, h.ClientKeyPath)
	if err != nil {
		r.problem("error", "client certificate and key do not form a pair")
		return
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		r.problem("error", "client certificate cannot be parsed")
		return
	}

	notAfter := leaf.NotAfter.UTC()
	r.NotAfter = &notAfter
	switch {
	case now.After(notAfter):
		r.problem("error", "client certificate expired on %s", notAfter.Format(time.DateOnly))
	case notAfter.Sub(now) < ExpiryWarning:
		r.problem("warning", "client certificate expires on %s", notAfter.Format(time.DateOnly))
	}
}

func checkReadable(r *CredentialReport, label, path string) bool {
	if path == "" {
		r.problem("error", "%s path is not set", label)
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		r.problem("error", "%s %s: %v", label, path, err)
		return false
	}
	_ = f.Close()
	return true
}
