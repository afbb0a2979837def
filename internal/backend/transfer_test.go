package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadSendsMultipart(t *testing.T) {
	var fileName, fieldValue, auth string
	var content []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		fileName = header.Filename
		buf := make([]byte, header.Size)
		n, _ := file.Read(buf)
		content = buf[:n]
		fieldValue = r.FormValue("category")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"message":"tersimpan"}`))
	}))
	defer server.Close()

	c := testClient(t, server.URL).WithCredentials(staticTokens("tok"), nil)
	var env envelope
	err := c.Upload(context.Background(), "/assets/upload", "file", "laporan.pdf",
		strings.NewReader("%PDF-1.4 data"), map[string]string{"category": "laporan"}, &env)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if fileName != "laporan.pdf" {
		t.Fatalf("expected filename laporan.pdf, got %q", fileName)
	}
	if string(content) != "%PDF-1.4 data" {
		t.Fatalf("file content mismatch: %q", content)
	}
	if fieldValue != "laporan" {
		t.Fatalf("expected form field, got %q", fieldValue)
	}
	if auth != "Bearer tok" {
		t.Fatalf("expected bearer on upload, got %q", auth)
	}
	if !env.Success {
		t.Fatalf("expected decoded response")
	}
}

func TestDownloadFileNameFromDisposition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="rapor-2025.xlsx"`)
		_, _ = w.Write([]byte("binary-bytes"))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	data, name, err := c.Download(context.Background(), "/reports/export", nil, "fallback.xlsx")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if name != "rapor-2025.xlsx" {
		t.Fatalf("expected header filename, got %q", name)
	}
	if string(data) != "binary-bytes" {
		t.Fatalf("payload mismatch: %q", data)
	}
}

func TestDownloadFallbackFileName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, name, err := c.Download(context.Background(), "/reports/export", nil, "fallback.xlsx")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if name != "fallback.xlsx" {
		t.Fatalf("expected fallback filename, got %q", name)
	}
}

func TestDownloadEmptyBodyIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, _, err := c.Download(context.Background(), "/reports/export", nil, "fallback.xlsx")
	apiErr := AsError(err)
	if apiErr == nil || apiErr.Code != CodeDownload {
		t.Fatalf("expected DOWNLOAD_ERROR for empty payload, got %v", err)
	}
}
