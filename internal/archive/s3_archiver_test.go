package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/orderdesk/pkg/api"
)

var _ api.PurgeArchiver = (*S3Archiver)(nil)

type fakeS3 struct {
	bucket string
	key    string
	ctype  string
	body   []byte
	calls  int
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.ctype = aws.ToString(in.ContentType)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func testOrder() *api.Order {
	created := time.Date(2026, 1, 2, 20, 0, 0, 0, time.UTC)
	printed := created.Add(3 * time.Minute)
	return &api.Order{
		ID:              "ord-1",
		StoreID:         "store-1",
		Code:            "K7QX",
		Status:          api.OrderPrinted,
		FulfillmentType: api.FulfillmentDelivery,
		PaymentMethod:   api.PaymentPix,
		CustomerName:    "Ana",
		CustomerPhone:   "11988887777",
		Items: []api.LineItem{{
			ID: "li-1", ProductID: "p-pizza", ProductName: "Pizza G", Quantity: 1, UnitPriceCents: 3500,
			Options: []api.LineOption{{Group: "Sabores", Name: "Calabresa"}, {Group: "Sabores", Name: "Marguerita"}},
		}},
		SubtotalCents:    3500,
		DeliveryFeeCents: 500,
		TotalCents:       4000,
		CreatedAt:        created,
		PrintedAt:        &printed,
	}
}

func TestS3Archiver_WritesBatchDocument(t *testing.T) {
	client := &fakeS3{}
	a := NewS3ArchiverWithClient(client, "orders-archive", "/orderdesk/purged/")
	a.now = func() time.Time { return time.Date(2026, 4, 3, 4, 0, 0, 0, time.UTC) }

	require.NoError(t, a.Archive(context.Background(), []*api.Order{testOrder()}))

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "orders-archive", client.bucket)
	assert.Equal(t, "application/json", client.ctype)
	assert.True(t, strings.HasPrefix(client.key, "orderdesk/purged/2026/04/03/purge-"), client.key)
	assert.True(t, strings.HasSuffix(client.key, ".json"), client.key)

	var batch Batch
	require.NoError(t, json.Unmarshal(client.body, &batch))
	require.Len(t, batch.Orders, 1)
	got := batch.Orders[0]
	assert.Equal(t, "K7QX", got.Code)
	assert.Equal(t, "PIX", got.PaymentMethod)
	assert.Equal(t, int64(4000), got.TotalCents)
	require.NotNil(t, got.PrintedAt)
	assert.Nil(t, got.NotifiedAt)
	require.Len(t, got.Items, 1)
	assert.Equal(t, []string{"Sabores: Calabresa", "Sabores: Marguerita"}, got.Items[0].Options)
}

func TestS3Archiver_EmptyBatchIsNoop(t *testing.T) {
	client := &fakeS3{}
	a := NewS3ArchiverWithClient(client, "b", "")
	require.NoError(t, a.Archive(context.Background(), nil))
	assert.Equal(t, 0, client.calls)
}

func TestS3Archiver_UploadErrorIsReturned(t *testing.T) {
	boom := errors.New("access denied")
	client := &fakeS3{err: boom}
	a := NewS3ArchiverWithClient(client, "b", "p")

	err := a.Archive(context.Background(), []*api.Order{testOrder()})
	require.ErrorIs(t, err, boom)
}

func TestNewS3Archiver_RequiresBucket(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), "us-east-1", "", "")
	require.Error(t, err)
}
