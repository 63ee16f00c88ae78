package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	pkgctx "github.com/baechuer/real-time-ressys/services/credential-service/internal/pkg/context"
)

// ---------- helpers ----------

func mustDecodeJSONLine(t *testing.T, b []byte, dst any) {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(dst); err != nil {
		t.Fatalf("decode json: %v, body=%q", err, string(b))
	}
}

func newReqWithBody(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ---------- DecodeJSON tests ----------

type decodeDst struct {
	A string `json:"a"`
	B int    `json:"b"`
}

func TestDecodeJSON_OK_SingleObject(t *testing.T) {
	req := newReqWithBody(t, `{"a":"x","b":1}`)

	var dst decodeDst
	if err := DecodeJSON(httptest.NewRecorder(), req, &dst); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if dst.A != "x" || dst.B != 1 {
		t.Fatalf("unexpected dst: %+v", dst)
	}
}

func TestDecodeJSON_IgnoresUnknownFields(t *testing.T) {
	req := newReqWithBody(t, `{"a":"x","c":"extra"}`)

	var dst decodeDst
	if err := DecodeJSON(httptest.NewRecorder(), req, &dst); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestDecodeJSON_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":     ``,
		"malformed": `{"a":`,
		"trailing":  `{"a":"x"}{"a":"y"}`,
		"garbage":   `{"a":"x"} nope`,
		"wrongtype": `{"b":"not-int"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dst decodeDst
			err := DecodeJSON(httptest.NewRecorder(), newReqWithBody(t, body), &dst)
			if !domain.Is(err, domain.CodeInvalidJSON) {
				t.Fatalf("expected %s, got %v", domain.CodeInvalidJSON, err)
			}
		})
	}
}

func TestDecodeJSON_RejectsOversizedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := newReqWithBody(t, `{"a":"`+strings.Repeat("x", 64)+`"}`)
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var dst decodeDst
	err := DecodeJSON(rec, req, &dst)
	if !domain.Is(err, domain.CodeBodyTooLarge) {
		t.Fatalf("expected %s, got %v", domain.CodeBodyTooLarge, err)
	}
}

func TestDecodeJSON_NoCapOfItsOwn(t *testing.T) {
	payload := strings.Repeat("x", 3<<20/2)
	rec := httptest.NewRecorder()
	req := newReqWithBody(t, `{"a":"`+payload+`"}`)
	req.Body = http.MaxBytesReader(rec, req.Body, 2<<20)

	var dst decodeDst
	if err := DecodeJSON(rec, req, &dst); err != nil {
		t.Fatalf("expected body under the configured cap to decode, got %v", err)
	}
	if len(dst.A) != len(payload) {
		t.Fatalf("expected %d bytes decoded, got %d", len(payload), len(dst.A))
	}
}

// ---------- WriteError tests ----------

func TestWriteError_DomainError_StatusAndEnvelope(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidCredentials(), http.StatusUnauthorized, domain.CodeInvalidCredentials},
		{domain.ErrAccountLocked(), http.StatusForbidden, domain.CodeAccountLocked},
		{domain.ErrResetTokenInvalid(), http.StatusBadRequest, domain.CodeResetTokenInvalid},
		{domain.ErrEmailAlreadyExists(), http.StatusConflict, domain.CodeEmailExists},
		{domain.ErrUserNotFound(), http.StatusNotFound, domain.CodeUserNotFound},
		{domain.ErrRateLimited("login"), http.StatusTooManyRequests, domain.CodeRateLimited},
		{domain.ErrBodyTooLarge(16), http.StatusRequestEntityTooLarge, domain.CodeBodyTooLarge},
		{domain.ErrDBUnavailable(errors.New("x")), http.StatusServiceUnavailable, domain.CodeDBUnavailable},
		{domain.ErrTokenSignFailed(errors.New("x")), http.StatusInternalServerError, domain.CodeTokenSignFailed},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(pkgctx.WithRequestID(req.Context(), "rid-1"))
			rr := httptest.NewRecorder()

			WriteError(rr, req, tc.err)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var body ErrorBody
			mustDecodeJSONLine(t, rr.Body.Bytes(), &body)
			if body.Error.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, body.Error.Code)
			}
			if body.Error.RequestID != "rid-1" {
				t.Fatalf("expected request id, got %q", body.Error.RequestID)
			}
		})
	}
}

func TestWriteError_NonDomain_NoLeak(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	WriteError(rr, req, errors.New("pq: password authentication failed for user secret"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret") {
		t.Fatalf("leaked cause: %s", rr.Body.String())
	}
	var body ErrorBody
	mustDecodeJSONLine(t, rr.Body.Bytes(), &body)
	if body.Error.Code != domain.CodeInternal {
		t.Fatalf("expected %s, got %q", domain.CodeInternal, body.Error.Code)
	}
}

func TestWriteError_MetaPassedThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	WriteError(rr, req, domain.ErrInvalidField("email", "must be a valid email"))

	var body ErrorBody
	mustDecodeJSONLine(t, rr.Body.Bytes(), &body)
	if body.Error.Meta["field"] != "email" {
		t.Fatalf("expected meta field, got %+v", body.Error.Meta)
	}
}

// ---------- success helpers ----------

func TestSuccessHelpers(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, map[string]string{"k": "v"})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"data":{"k":"v"}`) {
		t.Fatalf("unexpected OK: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	Created(rr, map[string]string{"id": "1"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	Accepted(rr, map[string]string{"message": "m"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	NoContent(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Fatalf("expected empty 204")
	}
}
