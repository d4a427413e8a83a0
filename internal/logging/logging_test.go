package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	cerrors "github.com/FocuswithJustin/digitalsee/core/errors"
)

// captureLogOutput reinitializes the logger to write JSON at debug level
// into a buffer, runs f, and restores the default logger.
func captureLogOutput(t *testing.T, f func()) string {
	t.Helper()
	var buf bytes.Buffer
	InitLogger(LevelDebug, FormatJSON, &buf)
	defer InitLogger(LevelInfo, FormatText, os.Stderr)
	f()
	return buf.String()
}

func decode(t *testing.T, line string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &m); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	return m
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		format   Format
		logFn    func()
		expected bool
	}{
		{"debug shows debug", LevelDebug, FormatJSON, func() { Debug("m") }, true},
		{"info hides debug", LevelInfo, FormatJSON, func() { Debug("m") }, false},
		{"warn hides info", LevelWarn, FormatText, func() { Info("m") }, false},
		{"warn shows warn", LevelWarn, FormatText, func() { Warn("m") }, true},
		{"error shows error", LevelError, FormatJSON, func() { Error("m") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			InitLogger(tt.level, tt.format, &buf)
			defer InitLogger(LevelInfo, FormatText, os.Stderr)
			tt.logFn()
			if got := buf.Len() > 0; got != tt.expected {
				t.Errorf("output present = %v, want %v (%q)", got, tt.expected, buf.String())
			}
		})
	}
}

func TestInitLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(LevelInfo, FormatText, &buf)
	Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("unexpected text output: %q", buf.String())
	}

	out := captureLogOutput(t, func() { Info("hello") })
	m := decode(t, out)
	ts, ok := m["time"].(string)
	if !ok {
		t.Fatalf("missing time: %v", m)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("time %q is not RFC3339", ts)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo,
		"warn": LevelWarn, "warning": LevelWarn, "error": LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat('') = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	if got := GetRequestID(ctx); got != "abc" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID(empty) = %q", got)
	}

	out := captureLogOutput(t, func() { InfoContext(ctx, "with id") })
	if decode(t, out)["request_id"] != "abc" {
		t.Errorf("request_id missing: %s", out)
	}
}

func TestDomainHelpers(t *testing.T) {
	tests := []struct {
		name   string
		fn     func()
		msg    string
		level  string
		fields map[string]any
	}{
		{
			"corpus loaded",
			func() { CorpusLoaded("xmls", 4, 1, 1500*time.Millisecond) },
			"corpus_loaded", "INFO",
			map[string]any{"dir": "xmls", "documents": 4.0, "failures": 1.0, "duration_ms": 1500.0},
		},
		{
			"parse failure",
			func() { ParseFailure("broken.xml", "unexpected EOF") },
			"parse_failure", "WARN",
			map[string]any{"file": "broken.xml", "error": "unexpected EOF"},
		},
		{
			"corpus changed",
			func() { CorpusChanged("xmls", []string{"a.xml"}) },
			"corpus_changed", "INFO",
			map[string]any{"dir": "xmls"},
		},
		{
			"export written",
			func() { ExportWritten("bundle", "out.tar.xz", 2, "query", "author:smith") },
			"export_written", "INFO",
			map[string]any{"kind": "bundle", "documents": 2.0, "query": "author:smith"},
		},
		{
			"websocket",
			func() { WebSocketEvent("client_connected", 3) },
			"websocket_event", "INFO",
			map[string]any{"event": "client_connected", "client_count": 3.0},
		},
		{
			"server startup",
			func() { ServerStartup("http", "tcp", 8080) },
			"server_startup", "INFO",
			map[string]any{"server_type": "http", "port": 8080.0},
		},
		{
			"error",
			func() { ErrorContext(context.Background(), "failed", "error", errors.New("boom").Error()) },
			"failed", "ERROR",
			map[string]any{"error": "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := decode(t, captureLogOutput(t, tt.fn))
			if m["msg"] != tt.msg {
				t.Errorf("msg = %v, want %s", m["msg"], tt.msg)
			}
			if m["level"] != tt.level {
				t.Errorf("level = %v, want %s", m["level"], tt.level)
			}
			for k, want := range tt.fields {
				if m[k] != want {
					t.Errorf("%s = %v, want %v", k, m[k], want)
				}
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	out := captureLogOutput(t, func() {
		ParseFailures([]*cerrors.ParseError{
			{Format: "XML", Path: "a.xml", Message: "bad"},
			{Format: "XML", Path: "b.xml", Message: "worse"},
		})
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), out)
	}
	if m := decode(t, lines[1]); m["file"] != "b.xml" || m["error"] != "worse" {
		t.Errorf("unexpected second line: %v", m)
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound || rec.Code != http.StatusNotFound {
		t.Errorf("status = %d/%d, want first status to win", rw.statusCode, rec.Code)
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap should return the underlying writer")
	}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("Hijack should fail when the underlying writer cannot hijack")
	}

	rec = httptest.NewRecorder()
	rw = &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.Write([]byte("ok"))
	if !rw.written || rec.Code != http.StatusOK {
		t.Error("Write should imply 200")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if len(seen) != 36 {
		t.Errorf("generated id %q is not a uuid", seen)
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Error("response should echo the request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "given")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "given" {
		t.Errorf("incoming id should be kept, got %q", seen)
	}
}

func TestCombinedMiddleware(t *testing.T) {
	handler := CombinedMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	out := captureLogOutput(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search", nil))
	})
	m := decode(t, out)
	if m["msg"] != "http_request" || m["status_code"] != float64(http.StatusTeapot) || m["path"] != "/search" {
		t.Errorf("unexpected log: %v", m)
	}
	if m["request_id"] == nil {
		t.Error("log should carry the request id")
	}
}
