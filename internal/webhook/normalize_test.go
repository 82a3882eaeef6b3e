package webhook

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFormEncoded(t *testing.T) {
	body := "platform_order_id=ORD-1&status=success&payment_id=TX-9&installment=1"
	req := httptest.NewRequest("POST", "/api/v1/payments/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	fields := Normalize(req)

	assert.Equal(t, "ORD-1", fields[FieldOrderID])
	assert.Equal(t, "success", fields[FieldStatus])
	assert.Equal(t, "TX-9", fields[FieldTxnID])
	assert.Equal(t, "1", fields[FieldInstallment])
}

func TestNormalizeMultipart(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("platform_order_id", "ORD-1"))
	require.NoError(t, writer.WriteField("status", "success"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/payments/callback", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	fields := Normalize(req)

	assert.Equal(t, "ORD-1", fields[FieldOrderID])
	assert.Equal(t, "success", fields[FieldStatus])
}

func TestNormalizeJSONBody(t *testing.T) {
	body := `{"platform_order_id":"ORD-1","status":"success","payment_id":"TX-9","installment":1}`
	req := httptest.NewRequest("POST", "/api/v1/payments/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	fields := Normalize(req)

	assert.Equal(t, "ORD-1", fields[FieldOrderID])
	assert.Equal(t, "success", fields[FieldStatus])
	assert.Equal(t, "TX-9", fields[FieldTxnID])
	assert.Equal(t, "1", fields[FieldInstallment], "numbers flatten to strings")
}

func TestNormalizeRawQueryText(t *testing.T) {
	body := "platform_order_id=ORD-1&status=success&payment_id=TX-9&installment=1"
	req := httptest.NewRequest("POST", "/api/v1/payments/callback", strings.NewReader(body))
	// no content type at all

	fields := Normalize(req)

	assert.Equal(t, "ORD-1", fields[FieldOrderID])
	assert.Equal(t, "success", fields[FieldStatus])
}

// The three encodings of the same callback must normalize identically. The
// signature value carries base64 padding: its '=' must not trick the
// URL-encoded strategy into eating a JSON body.
func TestNormalizeEncodingEquivalence(t *testing.T) {
	form := httptest.NewRequest("POST", "/cb",
		strings.NewReader("platform_order_id=ORD-1&status=1&signature=q83vEjRWeJA%3D"))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	jsonReq := httptest.NewRequest("POST", "/cb",
		strings.NewReader(`{"platform_order_id":"ORD-1","status":"1","signature":"q83vEjRWeJA="}`))
	jsonReq.Header.Set("Content-Type", "application/json")

	raw := httptest.NewRequest("POST", "/cb",
		strings.NewReader("platform_order_id=ORD-1&status=1&signature=q83vEjRWeJA%3D"))

	want := map[string]string{
		FieldOrderID:   "ORD-1",
		FieldStatus:    "1",
		FieldSignature: "q83vEjRWeJA=",
	}
	assert.Equal(t, want, Normalize(form))
	assert.Equal(t, want, Normalize(jsonReq))
	assert.Equal(t, want, Normalize(raw))
}

// A JSON body sent with a form content type still normalizes as JSON.
func TestNormalizeJSONBodyWithFormContentType(t *testing.T) {
	req := httptest.NewRequest("POST", "/cb",
		strings.NewReader(`{"platform_order_id":"ORD-1","status":"success","signature":"q83vEjRWeJA="}`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	fields := Normalize(req)

	assert.Equal(t, "ORD-1", fields[FieldOrderID])
	assert.Equal(t, "q83vEjRWeJA=", fields[FieldSignature])
}

func TestNormalizeGarbageBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"no structure", "%%%garbage%%%"},
		{"truncated json", `{"platform_order_id":`},
		{"bad escapes", "a=%zz&b=%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/cb", strings.NewReader(tt.body))
			assert.Empty(t, Normalize(req))
		})
	}
}

func TestNormalizeFallsBackToURLQuery(t *testing.T) {
	req := httptest.NewRequest("POST", "/cb?platform_order_id=ORD-1&status=success", strings.NewReader(""))

	fields := Normalize(req)

	assert.Equal(t, "ORD-1", fields[FieldOrderID])
	assert.Equal(t, "success", fields[FieldStatus])
}

func TestNormalizeBodyWinsOverURLQuery(t *testing.T) {
	req := httptest.NewRequest("POST", "/cb?platform_order_id=FROM-URL&status=0",
		strings.NewReader("platform_order_id=FROM-BODY&status=success"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	fields := Normalize(req)

	assert.Equal(t, "FROM-BODY", fields[FieldOrderID])
	assert.Equal(t, "success", fields[FieldStatus])
}

func TestSignatureRoundTrip(t *testing.T) {
	sig := Signature("api-secret", "482913", "ORD-1")

	assert.True(t, VerifySignature("api-secret", "482913", "ORD-1", sig))
	assert.False(t, VerifySignature("api-secret", "482913", "ORD-2", sig), "tampered order id")
	assert.False(t, VerifySignature("other-secret", "482913", "ORD-1", sig), "wrong secret")
	assert.False(t, VerifySignature("api-secret", "482913", "ORD-1", ""), "missing signature")
}
