package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestNewClientValidatesCredentials(t *testing.T) {
	_, err := NewClient("", "token", "")
	require.Error(t, err)

	_, err = NewClient("secret", " ", "")
	require.Error(t, err)

	client, err := NewClient("secret", "token", "")
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestVerifySignature(t *testing.T) {
	client, err := NewClient("channel-secret", "token", "")
	require.NoError(t, err)

	body := []byte(`{"events":[]}`)
	require.True(t, client.VerifySignature(body, sign("channel-secret", body)))
	require.False(t, client.VerifySignature(body, sign("wrong-secret", body)))
	require.False(t, client.VerifySignature(body, "not-base64-at-all"))
	require.False(t, client.VerifySignature(append(body, ' '), sign("channel-secret", body)))
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"destination": "U000",
		"events": [
			{"type":"message","replyToken":"tok-1","source":{"type":"user","userId":"U123"},"message":{"id":"m1","type":"text","text":"営業時間は？"}},
			{"type":"follow","replyToken":"tok-2","source":{"type":"user","userId":"U456"}}
		]
	}`)

	payload, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Equal(t, "U000", payload.Destination)
	require.Len(t, payload.Events, 2)
	require.Equal(t, "営業時間は？", payload.Events[0].Message.Text)
	require.Equal(t, "follow", payload.Events[1].Type)
	require.Empty(t, payload.Events[1].Message.Text)
}

func TestParseWebhookRejectsMalformedJSON(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"events":`))
	require.Error(t, err)
}

func TestReplyPostsMessages(t *testing.T) {
	var captured replyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/bot/message/reply", r.URL.Path)
		require.Equal(t, "Bearer channel-token", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient("secret", "channel-token", server.URL)
	require.NoError(t, err)

	err = client.Reply(context.Background(), "tok-1", "9時から18時です", "", "またのご来店をお待ちしております")
	require.NoError(t, err)
	require.Equal(t, "tok-1", captured.ReplyToken)
	require.Len(t, captured.Messages, 2, "blank messages are dropped")
	require.Equal(t, "text", captured.Messages[0].Type)
	require.Equal(t, "9時から18時です", captured.Messages[0].Text)
}

func TestReplyRejectsEmptyInput(t *testing.T) {
	client, err := NewClient("secret", "token", "http://localhost:1")
	require.NoError(t, err)

	require.Error(t, client.Reply(context.Background(), "", "text"))
	require.Error(t, client.Reply(context.Background(), "tok", "  "))
}

func TestReplyReportsAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer server.Close()

	client, err := NewClient("secret", "token", server.URL)
	require.NoError(t, err)

	err = client.Reply(context.Background(), "expired", "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=400")
}
