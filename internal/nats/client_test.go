package nats

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

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/dispatch-core/pkg/logger"
)

// writeKeyPair writes a self-signed certificate and its key to dir.
func writeKeyPair(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "nats.test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestBuildTLSConfig(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir)

	cfg, err := buildTLSConfig(Config{})
	require.NoError(t, err)
	require.Nil(t, cfg)

	cfg, err = buildTLSConfig(Config{CAFile: certFile})
	require.NoError(t, err)
	require.NotNil(t, cfg.RootCAs)
	require.Empty(t, cfg.Certificates)

	cfg, err = buildTLSConfig(Config{CAFile: certFile, CertFile: certFile, KeyFile: keyFile})
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)

	cfg, err = buildTLSConfig(Config{CertFile: certFile, KeyFile: keyFile})
	require.NoError(t, err)
	require.Nil(t, cfg.RootCAs)
	require.Len(t, cfg.Certificates, 1)
}

func TestBuildTLSConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir)
	junk := filepath.Join(dir, "junk.pem")
	require.NoError(t, os.WriteFile(junk, []byte("not a certificate"), 0o600))

	cases := map[string]Config{
		"cert without key": {CertFile: certFile},
		"key without cert": {CAFile: certFile, KeyFile: keyFile},
		"missing ca":       {CAFile: filepath.Join(dir, "absent.pem")},
		"ca without pem":   {CAFile: junk},
		"bad key pair":     {CertFile: certFile, KeyFile: junk},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := buildTLSConfig(cfg)
			require.Error(t, err)
		})
	}
}

func applyOptions(t *testing.T, opts []nats.Option) nats.Options {
	t.Helper()
	o := nats.GetDefaultOptions()
	for _, opt := range opts {
		require.NoError(t, opt(&o))
	}
	return o
}

func TestConnectOptions(t *testing.T) {
	opts, err := connectOptions(Config{Token: "s3cret"}, logger.NewNop())
	require.NoError(t, err)

	o := applyOptions(t, opts)
	require.Equal(t, ClientName, o.Name)
	require.Equal(t, "s3cret", o.Token)
	require.Equal(t, -1, o.MaxReconnect)
	require.False(t, o.Secure)
	require.NotNil(t, o.DisconnectedErrCB)
	require.NotNil(t, o.ReconnectedCB)
	require.NotNil(t, o.AsyncErrorCB)

	certFile, _ := writeKeyPair(t, t.TempDir())
	opts, err = connectOptions(Config{CAFile: certFile}, logger.NewNop())
	require.NoError(t, err)
	o = applyOptions(t, opts)
	require.True(t, o.Secure)
	require.NotNil(t, o.TLSConfig.RootCAs)
	require.Empty(t, o.Token)

	_, err = connectOptions(Config{KeyFile: "key.pem"}, logger.NewNop())
	require.Error(t, err)
}

func TestClientWithoutConnection(t *testing.T) {
	var c Client
	require.False(t, c.IsConnected())
	c.Close()
}
