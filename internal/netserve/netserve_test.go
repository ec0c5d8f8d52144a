package netserve

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quic-go/quic-go/http3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok "+r.Proto)
	})
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := Listen(cfg, okHandler(), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv
}

func TestServePlainHTTP(t *testing.T) {
	srv := startServer(t, Config{Addr: "127.0.0.1:0"})
	assert.Nil(t, srv.PacketAddr())

	resp, err := http.Get("http://" + srv.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok HTTP/1.1", string(body))
}

func TestServeTLSAndHTTP3(t *testing.T) {
	tlsConf, err := selfSignedTLS("127.0.0.1")
	require.NoError(t, err)
	srv := startServer(t, Config{Addr: "127.0.0.1:0", TLS: tlsConf, H3: true})
	require.NotNil(t, srv.PacketAddr())

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}
	// Alt-Svc appears once the UDP listener is registered.
	require.Eventually(t, func() bool {
		resp, err := client.Get("https://" + srv.Addr().String() + "/")
		if err != nil {
			return false
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return string(body) == "ok HTTP/1.1" && resp.Header.Get("Alt-Svc") != ""
	}, 5*time.Second, 50*time.Millisecond)

	rt := &http3.RoundTripper{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	defer rt.Close()
	h3 := &http.Client{Transport: rt, Timeout: 5 * time.Second}
	resp, err := h3.Get("https://" + srv.PacketAddr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok HTTP/3.0", string(body))
}

func TestListenH3RequiresTLS(t *testing.T) {
	_, err := Listen(Config{Addr: "127.0.0.1:0", H3: true}, okHandler(), nil)
	assert.ErrorIs(t, err, ErrMissingTLS)
}

func writePEM(t *testing.T, notBefore, notAfter time.Time) (string, string) {
	t.Helper()
	certPEM, keyPEM, err := selfSignedPEM([]string{"localhost"}, notBefore, notAfter)
	require.NoError(t, err)
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile
}

func TestBuildFileTLS(t *testing.T) {
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		certFile, keyFile := writePEM(t, now.Add(-time.Hour), now.Add(time.Hour))
		conf, err := BuildFileTLS(certFile, keyFile)
		require.NoError(t, err)
		assert.Len(t, conf.Certificates, 1)
		assert.Equal(t, []string{"h2", "http/1.1"}, conf.NextProtos)
	})

	t.Run("expired", func(t *testing.T) {
		certFile, keyFile := writePEM(t, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
		_, err := BuildFileTLS(certFile, keyFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("not yet valid", func(t *testing.T) {
		certFile, keyFile := writePEM(t, now.Add(time.Hour), now.Add(48*time.Hour))
		_, err := BuildFileTLS(certFile, keyFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not yet valid")
	})

	t.Run("missing files", func(t *testing.T) {
		_, err := BuildFileTLS("", "key.pem")
		assert.Error(t, err)
		_, err = BuildFileTLS(filepath.Join(t.TempDir(), "nope.pem"), filepath.Join(t.TempDir(), "nope.key"))
		assert.Error(t, err)
	})
}

func TestBuildCertMagicTLSNeedsDomain(t *testing.T) {
	_, _, err := BuildCertMagicTLS(context.Background(), CertMagicConfig{})
	assert.Error(t, err)
}

// selfSignedPEM creates a throwaway certificate for hosts valid between
// notBefore and notAfter.
func selfSignedPEM(hosts []string, notBefore, notAfter time.Time) (certPEM, keyPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	templ := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{Organization: []string{"hashmark dev"}},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			templ.IPAddresses = append(templ.IPAddresses, ip)
		} else {
			templ.DNSNames = append(templ.DNSNames, h)
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, templ, templ, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})
	return certPEM, keyPEM, nil
}

// selfSignedTLS is selfSignedPEM loaded into a TLS config valid for a day.
func selfSignedTLS(hosts ...string) (*tls.Config, error) {
	certPEM, keyPEM, err := selfSignedPEM(hosts, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	c, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{c}, NextProtos: []string{"h2", "http/1.1"}}, nil
}
