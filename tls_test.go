package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// selfSignedPEMPair generates a throwaway self-signed cert/key pair in PEM
// form, for exercising loadOrGenerateTLSConfig's file-loading path.
func selfSignedPEMPair(t *testing.T) (certPEM, keyPEM []byte, err error) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, err
	}
	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

func TestGenerateSelfSignedTLSConfigReturnsValidCert(t *testing.T) {
	validity := 2 * time.Hour
	tlsCfg, fingerprint, err := generateSelfSignedTLSConfig(validity, "")
	if err != nil {
		t.Fatalf("generateSelfSignedTLSConfig: %v", err)
	}

	if tlsCfg == nil {
		t.Fatal("expected non-nil tls.Config")
	}
	if fingerprint == "" {
		t.Fatal("expected non-empty fingerprint")
	}
	if len(fingerprint) != 64 { // SHA-256 hex = 32 bytes = 64 chars
		t.Errorf("fingerprint length: got %d, want 64", len(fingerprint))
	}
	if len(tlsCfg.Certificates) != 1 {
		t.Fatalf("expected 1 certificate, got %d", len(tlsCfg.Certificates))
	}

	leaf := tlsCfg.Certificates[0].Leaf
	if leaf == nil {
		t.Fatal("expected parsed leaf certificate")
	}
	if leaf.Subject.CommonName != "evadearena" {
		t.Errorf("CN: got %q, want %q", leaf.Subject.CommonName, "evadearena")
	}

	now := time.Now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		t.Errorf("cert not valid at current time: NotBefore=%v NotAfter=%v", leaf.NotBefore, leaf.NotAfter)
	}

	expectedAfter := now.Add(validity)
	if leaf.NotAfter.Before(expectedAfter.Add(-2 * time.Hour)) {
		t.Errorf("NotAfter too early: %v (expected near %v)", leaf.NotAfter, expectedAfter)
	}
}

func TestGenerateSelfSignedTLSConfigHostnameAsCN(t *testing.T) {
	tlsCfg, _, err := generateSelfSignedTLSConfig(time.Hour, "play.example.com")
	if err != nil {
		t.Fatalf("generateSelfSignedTLSConfig: %v", err)
	}
	leaf := tlsCfg.Certificates[0].Leaf
	if leaf.Subject.CommonName != "play.example.com" {
		t.Errorf("CN: got %q, want %q", leaf.Subject.CommonName, "play.example.com")
	}
	found := false
	for _, name := range leaf.DNSNames {
		if name == "play.example.com" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected hostname in DNS SANs, got %v", leaf.DNSNames)
	}
}

func TestGenerateSelfSignedTLSConfigUniqueCerts(t *testing.T) {
	_, fp1, _ := generateSelfSignedTLSConfig(time.Hour, "")
	_, fp2, _ := generateSelfSignedTLSConfig(time.Hour, "")
	if fp1 == fp2 {
		t.Error("two calls should produce different certificates")
	}
}

func TestGenerateSelfSignedTLSConfigSelfSigned(t *testing.T) {
	tlsCfg, _, _ := generateSelfSignedTLSConfig(time.Hour, "")
	leaf := tlsCfg.Certificates[0].Leaf

	if leaf.Issuer.CommonName != leaf.Subject.CommonName {
		t.Errorf("expected self-signed cert: issuer=%q subject=%q", leaf.Issuer.CommonName, leaf.Subject.CommonName)
	}

	found := false
	for _, name := range leaf.DNSNames {
		if name == "localhost" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected localhost in DNS names, got %v", leaf.DNSNames)
	}

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	_, err := leaf.Verify(x509.VerifyOptions{
		DNSName: "localhost",
		Roots:   pool,
	})
	if err != nil {
		t.Errorf("self-verification failed: %v", err)
	}
}

func TestLoadOrGenerateTLSConfigFallsBackWithoutPaths(t *testing.T) {
	cfg, fp, err := loadOrGenerateTLSConfig("", "", "localhost")
	if err != nil {
		t.Fatalf("loadOrGenerateTLSConfig: %v", err)
	}
	if cfg == nil || fp == "" {
		t.Fatal("expected a self-signed fallback config with a fingerprint")
	}
}

func TestLoadOrGenerateTLSConfigLoadsProvidedCert(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	pemCert, pemKey, err := selfSignedPEMPair(t)
	if err != nil {
		t.Fatalf("selfSignedPEMPair: %v", err)
	}
	if err := os.WriteFile(certPath, pemCert, 0o600); err != nil {
		t.Fatalf("WriteFile cert: %v", err)
	}
	if err := os.WriteFile(keyPath, pemKey, 0o600); err != nil {
		t.Fatalf("WriteFile key: %v", err)
	}

	cfg, fp, err := loadOrGenerateTLSConfig(certPath, keyPath, "localhost")
	if err != nil {
		t.Fatalf("loadOrGenerateTLSConfig: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if fp != "" {
		t.Errorf("expected no fingerprint reported for a provided cert, got %q", fp)
	}
}
