package fetchbridge

import (
	"crypto/tls"
	"testing"

	"github.com/victoria-riley-barnett/fetchbridge/tlstest"
)

func TestTLSConfig_BuildEmpty(t *testing.T) {
	var nilCfg *TLSConfig
	if got, err := nilCfg.Build(); err != nil || got != nil {
		t.Fatalf("nil config Build() = (%v, %v), want (nil, nil)", got, err)
	}
	if got, err := (&TLSConfig{}).Build(); err != nil || got != nil {
		t.Fatalf("zero config Build() = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestTLSConfig_BuildDefaults(t *testing.T) {
	cfg := &TLSConfig{SkipVerify: true, ServerName: "example.com"}
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !got.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify=true")
	}
	if got.ServerName != "example.com" {
		t.Errorf("ServerName = %q", got.ServerName)
	}
	if got.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %d, want TLS 1.2 default", got.MinVersion)
	}
}

func TestTLSConfig_BuildCustomMinVersion(t *testing.T) {
	cfg := &TLSConfig{MinVersion: tls.VersionTLS13}
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got == nil {
		t.Fatal("config with only MinVersion should still build")
	}
	if got.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %d, want TLS 1.3", got.MinVersion)
	}
}

func TestTLSConfig_BuildWithCerts(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	cfg := &TLSConfig{
		CAFile:     certs.CAFile,
		CertFile:   certs.CertFile,
		KeyFile:    certs.KeyFile,
		ServerName: "localhost",
	}
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got.RootCAs == nil {
		t.Error("expected RootCAs to be set")
	}
	if len(got.Certificates) != 1 {
		t.Errorf("expected 1 client certificate, got %d", len(got.Certificates))
	}
}

func TestTLSConfig_BuildErrors(t *testing.T) {
	if _, err := (&TLSConfig{CAFile: "/nonexistent/ca.pem"}).Build(); err == nil {
		t.Error("expected error for missing CA file")
	}
	badCA := tlstest.WriteInvalidPEM(t, "bad-ca.pem")
	if _, err := (&TLSConfig{CAFile: badCA}).Build(); err == nil {
		t.Error("expected error for invalid CA PEM content")
	}
	cfg := &TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}
	if _, err := cfg.Build(); err == nil {
		t.Error("expected error for missing client cert files")
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	var nilCfg *TLSConfig
	if err := nilCfg.Validate(); err != nil {
		t.Errorf("nil config Validate() = %v", err)
	}
	if err := (&TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}).Validate(); err != nil {
		t.Errorf("paired cert/key Validate() = %v", err)
	}
	if err := (&TLSConfig{CertFile: "cert.pem"}).Validate(); err == nil {
		t.Error("expected error when CertFile set without KeyFile")
	}
	if err := (&TLSConfig{KeyFile: "key.pem"}).Validate(); err == nil {
		t.Error("expected error when KeyFile set without CertFile")
	}
}

func TestTLSConfig_IsEnabled(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		enabled bool
	}{
		{"nil", nil, false},
		{"zero", &TLSConfig{}, false},
		{"skip_verify", &TLSConfig{SkipVerify: true}, true},
		{"ca_file", &TLSConfig{CAFile: "ca.pem"}, true},
		{"server_name", &TLSConfig{ServerName: "example.com"}, true},
		{"min_version", &TLSConfig{MinVersion: tls.VersionTLS13}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsEnabled(); got != tt.enabled {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.enabled)
			}
		})
	}
}
