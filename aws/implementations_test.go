package aws

import (
	"context"
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

	"github.com/gurre/s3demo/config"
)

func TestOpenAndClose(t *testing.T) {
	cfg := &config.Config{
		Region:       "us-west-2",
		Endpoint:     "http://localhost:4566",
		UsePathStyle: true,
		WaitTimeout:  time.Minute,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	clients, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if clients.Region != "us-west-2" {
		t.Errorf("expected region us-west-2, got %s", clients.Region)
	}
	if clients.S3 == nil || clients.SNS == nil || clients.SQS == nil {
		t.Fatal("expected all service clients to be constructed")
	}
	if clients.httpClient == nil {
		t.Error("expected a releasable HTTP client")
	}
	if !clients.S3.Options().UsePathStyle {
		t.Error("expected path-style addressing to be enabled")
	}

	if err := clients.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := clients.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

// writeCABundle writes a self-signed certificate in PEM form and returns its path.
func writeCABundle(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "s3demo test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ca.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write CA bundle: %v", err)
	}
	return path
}

func TestOpenWithCABundle(t *testing.T) {
	t.Setenv("AWS_CA_BUNDLE", writeCABundle(t))

	cfg := &config.Config{
		Region:      "us-east-1",
		Endpoint:    "https://localhost:4566",
		WaitTimeout: time.Minute,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	clients, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open with AWS_CA_BUNDLE failed: %v", err)
	}
	if clients.httpClient == nil {
		t.Error("expected a releasable HTTP client")
	}
	if err := clients.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
