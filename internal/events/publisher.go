package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"quotation-tax-service/internal/models"
)

// Event subjects published by this service
const (
	SubjectTaxCalculated  = "tax.calculated"
	SubjectTaxRateCreated = "tax.rate.created"
	SubjectTaxRateUpdated = "tax.rate.updated"
	SubjectTaxRateDeleted = "tax.rate.deleted"
)

var (
	publisher     *Publisher
	publisherOnce sync.Once
	publisherMu   sync.RWMutex
)

// Publisher publishes tax events over NATS. All publish methods are
// fire-and-forget; downstream consumers (quotation audit, notifications)
// tolerate missed events.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// InitPublisher initializes the singleton NATS publisher. When NATS_URL is
// unset, event publishing stays disabled and GetPublisher returns nil.
func InitPublisher(logger *logrus.Logger) error {
	var initErr error
	publisherOnce.Do(func() {
		natsURL := os.Getenv("NATS_URL")
		if natsURL == "" {
			logger.Warn("NATS_URL not set, event publishing disabled")
			return
		}

		conn, err := nats.Connect(natsURL,
			nats.Name("quotation-tax-service"),
			nats.ReconnectWait(2*time.Second),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			initErr = fmt.Errorf("failed to connect to NATS: %w", err)
			return
		}

		publisherMu.Lock()
		publisher = &Publisher{
			conn:   conn,
			logger: logger.WithField("component", "events.publisher"),
		}
		publisherMu.Unlock()

		logger.Info("NATS events publisher initialized")
	})
	return initErr
}

// GetPublisher returns the singleton publisher instance, or nil when
// publishing is disabled.
func GetPublisher() *Publisher {
	publisherMu.RLock()
	defer publisherMu.RUnlock()
	return publisher
}

// TaxCalculatedEvent is emitted after every successful tax calculation
type TaxCalculatedEvent struct {
	EventType     string          `json:"event_type"`
	TenantID      string          `json:"tenant_id"`
	QuotationID   *uuid.UUID      `json:"quotation_id,omitempty"`
	FrameworkID   uuid.UUID       `json:"framework_id"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

// TaxRateChangedEvent is emitted when admins create, update or delete rates
type TaxRateChangedEvent struct {
	EventType      string          `json:"event_type"`
	TenantID       string          `json:"tenant_id"`
	TaxRateID      uuid.UUID       `json:"tax_rate_id"`
	FrameworkID    uuid.UUID       `json:"framework_id"`
	JurisdictionID *uuid.UUID      `json:"jurisdiction_id,omitempty"`
	CategoryID     *uuid.UUID      `json:"category_id,omitempty"`
	Rate           decimal.Decimal `json:"rate"`
	Timestamp      time.Time       `json:"timestamp"`
}

func (p *Publisher) publish(subject string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}

// PublishTaxCalculated publishes a tax.calculated event
func (p *Publisher) PublishTaxCalculated(ctx context.Context, tenantID string, quotationID *uuid.UUID, result *models.TaxCalculationResult) {
	p.publish(SubjectTaxCalculated, TaxCalculatedEvent{
		EventType:     SubjectTaxCalculated,
		TenantID:      tenantID,
		QuotationID:   quotationID,
		FrameworkID:   result.FrameworkID,
		TaxableAmount: result.TaxableAmount,
		TotalTax:      result.TotalTax,
		TotalAmount:   result.TotalAmount,
		Timestamp:     time.Now().UTC(),
	})
}

// PublishTaxRateChanged publishes a rate lifecycle event under the given subject
func (p *Publisher) PublishTaxRateChanged(ctx context.Context, subject, tenantID string, rate *models.TaxRate) {
	p.publish(subject, TaxRateChangedEvent{
		EventType:      subject,
		TenantID:       tenantID,
		TaxRateID:      rate.ID,
		FrameworkID:    rate.FrameworkID,
		JurisdictionID: rate.JurisdictionID,
		CategoryID:     rate.CategoryID,
		Rate:           rate.Rate,
		Timestamp:      time.Now().UTC(),
	})
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains the publisher connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
