package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucsky/cuid"

	"github.com/petrijr/orderdesk/internal/message"
	"github.com/petrijr/orderdesk/internal/persistence"
	"github.com/petrijr/orderdesk/pkg/api"
)

const (
	DefaultNotifyLeaseTTL = 2 * time.Minute
	DefaultNotifyLookback = 24 * time.Hour
	DefaultNotifyPageSize = 200
	defaultClaimBatch     = 50

	markNotifiedAttempts = 3
	markNotifiedBackoff  = 50 * time.Millisecond
)

// engineImpl implements api.Service on top of the persistence stores. It
// holds no locks of its own: every exclusive transition is a conditional
// update in the store.
type engineImpl struct {
	orders    persistence.OrderStore
	printJobs persistence.PrintJobStore
	settings  persistence.SettingsStore

	observer api.Observer
	clock    api.Clock
	gateway  api.MessagingGateway
	archiver api.PurgeArchiver

	notifyLeaseTTL     time.Duration
	notifyLookback     time.Duration
	notifyPageSize     int
	notifyOnPrint      bool
	defaultCountryCode string
	ownerID            string
}

// Config describes how to construct an engineImpl.
// External callers normally use the helper constructors.
type Config struct {
	Persistence persistence.Persistence
	Observer    api.Observer
	Clock       api.Clock

	// Gateway delivers customer notifications. Without one every
	// notification reports messaging_disabled.
	Gateway api.MessagingGateway
	// Archiver, when set, receives purged orders inside the purge transaction.
	Archiver api.PurgeArchiver

	NotifyLeaseTTL     time.Duration
	NotifyLookback     time.Duration
	NotifyPageSize     int
	NotifyOnPrint      bool
	DefaultCountryCode string

	// OwnerID identifies this process when taking notification leases.
	OwnerID string
}

// NewInMemoryEngine returns a Service over a fresh in-memory store with
// default settings.
func NewInMemoryEngine() api.Service {
	return NewEngineWithConfig(Config{
		Persistence: persistence.FromStore(persistence.NewInMemoryStore()),
	})
}

// NewEngineWithConfig creates a new Service using the given configuration.
func NewEngineWithConfig(cfg Config) api.Service {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = api.SystemClock{}
	}
	e := &engineImpl{
		orders:             cfg.Persistence.Orders,
		printJobs:          cfg.Persistence.PrintJobs,
		settings:           cfg.Persistence.Settings,
		observer:           obs,
		clock:              clock,
		gateway:            cfg.Gateway,
		archiver:           cfg.Archiver,
		notifyLeaseTTL:     cfg.NotifyLeaseTTL,
		notifyLookback:     cfg.NotifyLookback,
		notifyPageSize:     cfg.NotifyPageSize,
		notifyOnPrint:      cfg.NotifyOnPrint,
		defaultCountryCode: cfg.DefaultCountryCode,
		ownerID:            cfg.OwnerID,
	}
	if e.notifyLeaseTTL <= 0 {
		e.notifyLeaseTTL = DefaultNotifyLeaseTTL
	}
	if e.notifyLookback <= 0 {
		e.notifyLookback = DefaultNotifyLookback
	}
	if e.notifyPageSize <= 0 {
		e.notifyPageSize = DefaultNotifyPageSize
	}
	if e.defaultCountryCode == "" {
		e.defaultCountryCode = message.DefaultCountryCode
	}
	if e.ownerID == "" {
		e.ownerID = uuid.NewString()
	}
	return e
}

func newID() string {
	return uuid.NewString()
}

// newReceiptToken returns an opaque, unguessable token.
func newReceiptToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// newOrderCode returns a short code customers can read out at the counter.
func newOrderCode() string {
	return strings.ToUpper(cuid.Slug())
}
