// Package archive stores purged orders outside the primary database before
// the retention purge deletes them.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/petrijr/orderdesk/pkg/api"
)

// PutObjectAPI is the subset of the S3 client the archiver needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes each purge page as one JSON document:
//
//	{prefix}/{yyyy}/{mm}/{dd}/purge-{unix}-{uuid}.json
//
// It implements api.PurgeArchiver.
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// Batch is the archived document.
type Batch struct {
	ArchivedAt time.Time       `json:"archived_at"`
	Orders     []ArchivedOrder `json:"orders"`
}

type ArchivedOrder struct {
	ID               string         `json:"id"`
	StoreID          string         `json:"store_id"`
	Code             string         `json:"code"`
	FulfillmentType  string         `json:"fulfillment_type"`
	PaymentMethod    string         `json:"payment_method"`
	CustomerName     string         `json:"customer_name,omitempty"`
	SubtotalCents    int64          `json:"subtotal_cents"`
	DeliveryFeeCents int64          `json:"delivery_fee_cents"`
	TotalCents       int64          `json:"total_cents"`
	CreatedAt        time.Time      `json:"created_at"`
	PrintedAt        *time.Time     `json:"printed_at,omitempty"`
	NotifiedAt       *time.Time     `json:"notified_at,omitempty"`
	Items            []ArchivedItem `json:"items"`
}

type ArchivedItem struct {
	ProductID      string   `json:"product_id"`
	ProductName    string   `json:"product_name"`
	Quantity       int      `json:"quantity"`
	UnitPriceCents int64    `json:"unit_price_cents"`
	Options        []string `json:"options,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

// NewS3Archiver loads the default AWS configuration for region.
func NewS3Archiver(ctx context.Context, region, bucket, prefix string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 archiver: empty bucket")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("s3 archiver: load aws config: %w", err)
	}
	return NewS3ArchiverWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func NewS3ArchiverWithClient(client PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *S3Archiver) Archive(ctx context.Context, orders []*api.Order) error {
	if len(orders) == 0 {
		return nil
	}

	now := a.now()
	batch := Batch{ArchivedAt: now, Orders: make([]ArchivedOrder, 0, len(orders))}
	for _, o := range orders {
		batch.Orders = append(batch.Orders, toArchived(o))
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("s3 archiver: marshal batch: %w", err)
	}

	key := a.objectKey(now)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 archiver: upload %s: %w", key, err)
	}
	return nil
}

func (a *S3Archiver) objectKey(now time.Time) string {
	name := fmt.Sprintf("purge-%d-%s.json", now.Unix(), uuid.NewString())
	return path.Join(a.prefix, now.Format("2006/01/02"), name)
}

func toArchived(o *api.Order) ArchivedOrder {
	out := ArchivedOrder{
		ID:               o.ID,
		StoreID:          o.StoreID,
		Code:             o.Code,
		FulfillmentType:  string(o.FulfillmentType),
		PaymentMethod:    string(o.PaymentMethod),
		CustomerName:     o.CustomerName,
		SubtotalCents:    o.SubtotalCents,
		DeliveryFeeCents: o.DeliveryFeeCents,
		TotalCents:       o.TotalCents,
		CreatedAt:        o.CreatedAt,
		PrintedAt:        o.PrintedAt,
		NotifiedAt:       o.CustomerNotifiedAt,
		Items:            make([]ArchivedItem, 0, len(o.Items)),
	}
	for _, li := range o.Items {
		item := ArchivedItem{
			ProductID:      li.ProductID,
			ProductName:    li.ProductName,
			Quantity:       li.Quantity,
			UnitPriceCents: li.UnitPriceCents,
			Notes:          li.Notes,
		}
		for _, opt := range li.Options {
			item.Options = append(item.Options, opt.Group+": "+opt.Name)
		}
		out.Items = append(out.Items, item)
	}
	return out
}
