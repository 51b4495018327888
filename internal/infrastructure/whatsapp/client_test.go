package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinme-ledger/internal/config"
	"github.com/pinme-ledger/internal/domain"
)

func TestSendText_PostsCloudAPIMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v21.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var msg textMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "whatsapp", msg.MessagingProduct)
		assert.Equal(t, "919876543210", msg.To)
		assert.Equal(t, "text", msg.Type)
		assert.Equal(t, "hello", msg.Text.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsApp{Token: "secret", PhoneNumberID: "12345", APIVersion: "v21.0", BaseURL: srv.URL + "/"})
	require.NoError(t, c.SendText(context.Background(), "919876543210", "hello"))
}

func TestSendText_APIErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Recipient not in allowed list","code":131030}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsApp{Token: "secret", PhoneNumberID: "12345", APIVersion: "v21.0", BaseURL: srv.URL})
	err := c.SendText(context.Background(), "919876543210", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "131030")
}

func TestSendText_DryRunMakesNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := NewClient(config.WhatsApp{Token: "secret", PhoneNumberID: "12345", APIVersion: "v21.0", BaseURL: srv.URL, DryRun: true})
	require.NoError(t, c.SendText(context.Background(), "919876543210", "hello"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestSendText_MissingCredentialsFailsOutsideDryRun(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	for name, wa := range map[string]config.WhatsApp{
		"no token":           {PhoneNumberID: "12345", APIVersion: "v21.0", BaseURL: srv.URL},
		"no phone number id": {Token: "secret", APIVersion: "v21.0", BaseURL: srv.URL},
		"nothing":            {APIVersion: "v21.0", BaseURL: srv.URL},
	} {
		t.Run(name, func(t *testing.T) {
			err := NewClient(wa).SendText(context.Background(), "919876543210", "hello")
			assert.ErrorIs(t, err, domain.ErrTransport)
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}
