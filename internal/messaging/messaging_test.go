package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/orderdesk/pkg/api"
)

var (
	_ api.MessagingGateway = (*LogGateway)(nil)
	_ api.MessagingGateway = (*HTTPGateway)(nil)
	_ api.MessagingGateway = (*KafkaGateway)(nil)
)

func TestHTTPGateway_SendText(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		expectErr string
	}{
		{name: "accepted", status: http.StatusCreated},
		{name: "ok", status: http.StatusOK},
		{name: "rejected", status: http.StatusBadRequest, body: "number not on whatsapp", expectErr: "status 400: number not on whatsapp"},
		{name: "bridge down", status: http.StatusBadGateway, expectErr: "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/message/sendText/wa-store-1", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "secret", r.Header.Get("apikey"))

				var req sendTextRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "5511988887777", req.Number)
				assert.Equal(t, "Pedido #K7QX confirmado", req.Text)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			gw := NewHTTPGateway(server.URL+"/", "secret", time.Second)
			err := gw.SendText(context.Background(), "wa-store-1", "5511988887777", "Pedido #K7QX confirmado")
			if tt.expectErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
			assert.Contains(t, err.Error(), "wa-store-1")
		})
	}
}

func TestHTTPGateway_EmptyStoreRef(t *testing.T) {
	gw := NewHTTPGateway("http://127.0.0.1:1", "", 0)
	err := gw.SendText(context.Background(), "", "5511988887777", "hi")
	require.Error(t, err)
}

func TestHTTPGateway_RespectsContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	gw := NewHTTPGateway(server.URL, "", 5*time.Second)
	err := gw.SendText(ctx, "wa-1", "5511988887777", "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestKafkaGateway_PublishesKeyedRecord(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var msg OutboundMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return err
		}
		if msg.StoreRef != "wa-1" || msg.Phone != "5511988887777" || msg.Text != "Pedido pronto" {
			return errors.New("unexpected outbound message")
		}
		if msg.QueuedAt.IsZero() {
			return errors.New("queued_at not set")
		}
		return nil
	})

	gw := NewKafkaGateway(producer, "orderdesk.notifications")
	require.NoError(t, gw.SendText(context.Background(), "wa-1", "5511988887777", "Pedido pronto"))
	require.NoError(t, gw.Close())
}

func TestKafkaGateway_PublishFailureIsWrapped(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	gw := NewKafkaGateway(producer, "orderdesk.notifications")
	err := gw.SendText(context.Background(), "wa-1", "5511988887777", "Pedido pronto")
	require.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	assert.Contains(t, err.Error(), "orderdesk.notifications")
	require.NoError(t, gw.Close())
}

func TestKafkaGateway_CancelledContextSkipsPublish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	gw := NewKafkaGateway(producer, "orderdesk.notifications")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, gw.SendText(ctx, "wa-1", "5511988887777", "x"), context.Canceled)
	require.NoError(t, gw.Close())
}

func TestDialKafkaGateway_Validation(t *testing.T) {
	_, err := DialKafkaGateway("localhost:9092", "")
	require.Error(t, err)

	_, err = DialKafkaGateway(" , ", "topic")
	require.Error(t, err)
}

func TestLogGateway_LogsMessage(t *testing.T) {
	var buf strings.Builder
	gw := NewLogGateway(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, gw.SendText(context.Background(), "wa-1", "5511988887777", "Pedido #A1 pronto"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &rec))
	assert.Equal(t, "message", rec["msg"])
	assert.Equal(t, "wa-1", rec["store_ref"])
	assert.Equal(t, "5511988887777", rec["phone"])
	assert.Equal(t, "Pedido #A1 pronto", rec["text"])
}
