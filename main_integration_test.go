package main

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anvishah1/ForReal/internal/classifier"
	"github.com/anvishah1/ForReal/internal/game"
	"github.com/anvishah1/ForReal/internal/handlers"
	"github.com/anvishah1/ForReal/internal/handoff"
	"github.com/anvishah1/ForReal/internal/sessions"
)

// blockingClassifier holds every request until release is closed.
type blockingClassifier struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingClassifier) Classify(ctx context.Context, req *classifier.Request) (*classifier.Response, error) {
	select {
	case <-b.started:
	default:
		close(b.started)
	}
	<-b.release
	return &classifier.Response{Label: classifier.LabelFake, Confidence: 88, Probabilities: []float64{0.88, 0.12}}, nil
}

func (b *blockingClassifier) Health(ctx context.Context) (*classifier.Health, error) {
	return &classifier.Health{Status: "healthy", ModelLoaded: true}, nil
}

func TestServerGracefulShutdown(t *testing.T) {
	logger := zap.NewNop()
	gin.SetMode(gin.TestMode)

	stub := &blockingClassifier{started: make(chan struct{}), release: make(chan struct{})}
	defer func() {
		select {
		case <-stub.release:
		default:
			close(stub.release)
		}
	}()

	router := gin.New()
	router.MaxMultipartMemory = handlers.MaxUploadSize
	handlers.RegisterRoutes(router, handlers.Dependencies{
		Sessions:   sessions.NewRegistry(stub, game.DefaultPool(), nil, 0, logger),
		Results:    handoff.NewMemoryStore(handoff.DefaultTTL),
		Classifier: stub,
		Logger:     logger,
	})

	t.Log("creating listener")
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	server := &http.Server{Handler: router}

	signalCh := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- serveHTTPServerWithOptions(server, 2*time.Second, logger, listener, signalCh)
	}()

	addr := listener.Addr().String()
	t.Logf("listening on %s", addr)
	waitForServer(t, addr)

	client := &http.Client{Timeout: 2 * time.Second}
	sessionID := uploadImage(t, client, "http://"+addr+"/upload")

	respCh := make(chan *http.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		t.Log("sending submit")
		req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/upload/submit", nil)
		if err != nil {
			errCh <- err
			return
		}
		req.Header.Set(handlers.SessionHeader, sessionID)
		resp, err := client.Do(req)
		if err != nil {
			errCh <- err
			return
		}
		respCh <- resp
	}()

	select {
	case <-stub.started:
		t.Log("classification started")
	case <-time.After(2 * time.Second):
		t.Fatal("classification did not start in time")
	}

	t.Log("sending signal")
	signalCh <- syscall.SIGTERM

	time.Sleep(50 * time.Millisecond)
	close(stub.release)
	t.Log("released classification")

	select {
	case resp := <-respCh:
		t.Cleanup(func() { resp.Body.Close() })
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("unexpected status: %d body: %s", resp.StatusCode, string(body))
		}
	case err := <-errCh:
		t.Fatalf("request failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server did not shutdown cleanly: %v", err)
		}
		t.Log("server shutdown complete")
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after shutdown")
	}
}

func uploadImage(t *testing.T, client *http.Client, url string) string {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="face.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write([]byte("\x89PNG\r\n\x1a\n")); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	resp, err := client.Post(url, writer.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected upload status: %d body: %s", resp.StatusCode, string(payload))
	}
	sessionID := resp.Header.Get(handlers.SessionHeader)
	if sessionID == "" {
		t.Fatal("upload did not return a session id")
	}
	return sessionID
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server %s did not become ready", addr)
}
