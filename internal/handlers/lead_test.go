package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PortNumber53/landing-intake/backend/internal/telegram"
)

func postLead(h *IntakeHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/lead", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Lead().ServeHTTP(rr, req)
	return rr
}

func TestLeadPreflight(t *testing.T) {
	h := newTestHandler(t, &fakeNotifier{configured: true}, nil)

	rr := httptest.NewRecorder()
	h.Lead().ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/lead", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Body.String())
}

func TestLeadHealthProbe(t *testing.T) {
	h := newTestHandler(t, &fakeNotifier{}, nil)

	rr := httptest.NewRecorder()
	h.Lead().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/lead", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	res := decodeResult(t, rr)
	assert.True(t, res.OK)
	assert.NotEmpty(t, res.Status)
}

func TestLeadMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &fakeNotifier{configured: true}, nil)

	rr := httptest.NewRecorder()
	h.Lead().ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/lead", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rr.Header().Get("Allow"))
	assert.False(t, decodeResult(t, rr).OK)
}

func TestLeadDelivered(t *testing.T) {
	notifier := &fakeNotifier{configured: true}
	h := newTestHandler(t, notifier, nil)

	rr := postLead(h, `{"name":"Ann","contact":"+49123456","offerTitle":"Path"}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decodeResult(t, rr).OK)
	require.Equal(t, 1, notifier.calls())

	msg := notifier.messages[0]
	assert.Contains(t, msg, "Ann")
	assert.Contains(t, msg, "+49123456")
	assert.Contains(t, msg, "Path")
	assert.Contains(t, msg, "19.10.2026, 12:30:00")
}

func TestLeadAcceptsStringEncodedBody(t *testing.T) {
	notifier := &fakeNotifier{configured: true}
	h := newTestHandler(t, notifier, nil)

	rr := postLead(h, `"{\"name\":\"Ann\",\"contact\":\"ann@example.com\",\"offerId\":\"club\"}"`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, 1, notifier.calls())
	assert.Contains(t, notifier.messages[0], "<b>Product:</b> club")
}

func TestLeadValidationSendsNothing(t *testing.T) {
	cases := map[string]string{
		"short name":         `{"name":"A","contact":"+49123456"}`,
		"whitespace name":    `{"name":"  A  ","contact":"+49123456"}`,
		"short contact":      `{"name":"Ann","contact":"1234"}`,
		"padded contact":     `{"name":"Ann","contact":"   12   "}`,
		"empty body":         ``,
		"missing everything": `{}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			notifier := &fakeNotifier{configured: true}
			h := newTestHandler(t, notifier, nil)

			rr := postLead(h, body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.False(t, decodeResult(t, rr).OK)
			assert.Zero(t, notifier.calls())
		})
	}
}

func TestLeadMalformedJSON(t *testing.T) {
	notifier := &fakeNotifier{configured: true}
	h := newTestHandler(t, notifier, nil)

	for _, body := range []string{`{"name":`, `"not json"`, `[1,2]`} {
		rr := postLead(h, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		assert.Equal(t, "invalid JSON body", decodeResult(t, rr).Error)
	}
	assert.Zero(t, notifier.calls())
}

func TestLeadEscapesMarkup(t *testing.T) {
	notifier := &fakeNotifier{configured: true}
	h := newTestHandler(t, notifier, nil)

	rr := postLead(h, `{"name":"<b>Ann</b>","contact":"a&b<script>","comment":"x > y","pageUrl":"https://e.x/?a=1&b=<2>"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	msg := notifier.messages[0]
	assert.Contains(t, msg, "&lt;b&gt;Ann&lt;/b&gt;")
	assert.Contains(t, msg, "a&amp;b&lt;script&gt;")
	assert.Contains(t, msg, "x &gt; y")
	assert.NotContains(t, msg, "<script>")
}

func TestLeadNotConfigured(t *testing.T) {
	notifier := &fakeNotifier{configured: false}
	h := newTestHandler(t, notifier, nil)

	rr := postLead(h, `{"name":"Ann","contact":"+49123456"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "telegram is not configured", decodeResult(t, rr).Error)
	assert.Zero(t, notifier.calls())
}

func TestLeadUpstreamFailure(t *testing.T) {
	notifier := &fakeNotifier{
		configured: true,
		err:        &telegram.APIError{StatusCode: 400, Description: "chat not found", Body: `{"ok":false,"description":"chat not found"}`},
	}
	h := newTestHandler(t, notifier, nil)

	rr := postLead(h, `{"name":"Ann","contact":"+49123456"}`)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	res := decodeResult(t, rr)
	assert.False(t, res.OK)
	assert.Equal(t, "telegram delivery failed", res.Error)
	assert.Equal(t, `{"ok":false,"description":"chat not found"}`, res.Details)
	assert.Equal(t, 1, notifier.calls())
}

func TestLeadTransportFailure(t *testing.T) {
	notifier := &fakeNotifier{
		configured: true,
		err:        &telegram.TransportError{Err: errors.New("dial tcp: i/o timeout")},
	}
	h := newTestHandler(t, notifier, nil)

	rr := postLead(h, `{"name":"Ann","contact":"+49123456"}`)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, decodeResult(t, rr).Details, "i/o timeout")
}

func TestLeadRecoversPanic(t *testing.T) {
	notifier := &fakeNotifier{configured: true, panicMsg: "boom"}
	h := newTestHandler(t, notifier, nil)

	rr := postLead(h, `{"name":"Ann","contact":"+49123456"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal error", decodeResult(t, rr).Error)
}
