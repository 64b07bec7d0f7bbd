package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageSuccess(t *testing.T) {
	var (
		gotPath string
		gotBody sendMessageRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	client := NewClient("123:abc", "-100200", WithBaseURL(srv.URL))
	err := client.SendMessage(context.Background(), "<b>hi</b>")
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "-100200", gotBody.ChatID)
	assert.Equal(t, "<b>hi</b>", gotBody.Text)
	assert.Equal(t, "HTML", gotBody.ParseMode)
	assert.True(t, gotBody.DisableWebPagePreview)
}

func TestSendMessageNotConfigured(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	for _, client := range []*Client{
		NewClient("", "-100", WithBaseURL(srv.URL)),
		NewClient("123:abc", " ", WithBaseURL(srv.URL)),
	} {
		err := client.SendMessage(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrNotConfigured)
	}
	assert.Zero(t, calls)
}

func TestSendMessageAPIRejection(t *testing.T) {
	body := `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	err := NewClient("t", "c", WithBaseURL(srv.URL)).SendMessage(context.Background(), "hi")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Bad Request: chat not found", apiErr.Description)
	assert.Equal(t, body, apiErr.Body)
}

func TestSendMessageOKFalseWith200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Forbidden"}`))
	}))
	defer srv.Close()

	err := NewClient("t", "c", WithBaseURL(srv.URL)).SendMessage(context.Background(), "hi")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
}

func TestSendMessageNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	err := NewClient("t", "c", WithBaseURL(srv.URL)).SendMessage(context.Background(), "hi")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "<html>bad gateway</html>", apiErr.Body)
}

func TestSendMessageTransportFailureRedactsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient("secret-token", "c", WithBaseURL(url)).SendMessage(context.Background(), "hi")

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.NotContains(t, err.Error(), "secret-token")
}
