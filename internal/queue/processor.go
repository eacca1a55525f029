package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"f2dhis2/internal/dhis2"
	"f2dhis2/internal/mapping"
	"f2dhis2/internal/models"
	"f2dhis2/internal/period"
)

// Fetcher retrieves the records of one submission.
type Fetcher interface {
	Fetch(ctx context.Context, service *models.Service, recordID string) ([]models.Record, error)
}

// Publisher delivers a rendered dataValueSet.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) (*dhis2.Response, error)
}

// Bindings lists the data value sets a service feeds.
type Bindings interface {
	DataValueSetsForService(ctx context.Context, serviceID uuid.UUID) ([]models.DataValueSet, error)
}

// Mappings resolves the field mappings of a data value set.
type Mappings interface {
	FindMapping(ctx context.Context, dataValueSetID uuid.UUID) ([]mapping.Entry, error)
}

var errNothingDelivered = errors.New("no data value set accepted by dhis2")

// Config tunes a Processor.
type Config struct {
	// Workers bounds how many items are delivered concurrently.
	Workers int
	// ClaimTTL is how long a claim protects an item from other drains.
	ClaimTTL time.Duration
}

// Processor drains the queue: each unprocessed item is fetched from Formhub,
// rendered for every data value set of its service and published to DHIS2.
type Processor struct {
	store     *Store
	fetcher   Fetcher
	publisher Publisher
	bindings  Bindings
	mappings  Mappings
	config    Config

	processedCounter metric.Int64Counter
	releasedCounter  metric.Int64Counter
	publishCounter   metric.Int64Counter
	skippedCounter   metric.Int64Counter
}

// NewProcessor wires a Processor.
func NewProcessor(store *Store, fetcher Fetcher, publisher Publisher, bindings Bindings, mappings Mappings, cfg Config) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 10 * time.Minute
	}
	p := &Processor{
		store:     store,
		fetcher:   fetcher,
		publisher: publisher,
		bindings:  bindings,
		mappings:  mappings,
		config:    cfg,
	}
	p.initMetrics()
	return p
}

func (p *Processor) initMetrics() {
	meter := otel.Meter("f2dhis2/queue")
	if counter, err := meter.Int64Counter("f2dhis2_queue_items_processed",
		metric.WithDescription("Queue items delivered and marked processed"),
		metric.WithUnit("{item}")); err == nil {
		p.processedCounter = counter
	}
	if counter, err := meter.Int64Counter("f2dhis2_queue_items_released",
		metric.WithDescription("Queue items left unprocessed after a delivery attempt"),
		metric.WithUnit("{item}")); err == nil {
		p.releasedCounter = counter
	}
	if counter, err := meter.Int64Counter("f2dhis2_dhis2_publish",
		metric.WithDescription("dataValueSet posts by outcome"),
		metric.WithUnit("{request}")); err == nil {
		p.publishCounter = counter
	}
	if counter, err := meter.Int64Counter("f2dhis2_records_skipped",
		metric.WithDescription("Records skipped because their period could not be parsed"),
		metric.WithUnit("{record}")); err == nil {
		p.skippedCounter = counter
	}
}

func add(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Drain makes one pass over the unprocessed items and returns how many of
// them became processed. Per-item failures are logged and leave the item for
// the next drain; only failing to read the queue is an error.
func (p *Processor) Drain(ctx context.Context) (int, error) {
	items, err := p.store.ListUnprocessed(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	var processed atomic.Int64
	workers := pool.New().WithMaxGoroutines(p.config.Workers)
	for i := range items {
		item := items[i]
		workers.Go(func() {
			if p.processItem(ctx, &item) {
				processed.Add(1)
			}
		})
	}
	workers.Wait()

	n := int(processed.Load())
	log.Printf("Drained data queue: %d of %d items processed", n, len(items))
	return n, nil
}

// processItem delivers one item and reports whether it became processed.
// A panic while delivering releases the claim so the next drain retries.
func (p *Processor) processItem(ctx context.Context, item *models.DataQueue) (processed bool) {
	if ctx.Err() != nil {
		return false
	}

	token, ok, err := p.store.Claim(ctx, item.ID, p.config.ClaimTTL)
	if err != nil {
		log.Printf("Queue item %s: %v", item.ID, err)
		return false
	}
	if !ok {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			p.release(ctx, item, token, fmt.Errorf("panic: %v", r))
			processed = false
		}
	}()

	delivered, cause := p.deliver(ctx, item)
	if delivered {
		if err := p.store.Complete(context.WithoutCancel(ctx), item.ID, token); err != nil {
			log.Printf("Queue item %s (%s): delivered but not marked processed: %v", item.ID, item.DataID, err)
			return false
		}
		add(ctx, p.processedCounter)
		return true
	}

	if cause == nil {
		cause = errNothingDelivered
	}
	p.release(ctx, item, token, cause)
	return false
}

func (p *Processor) release(ctx context.Context, item *models.DataQueue, token string, cause error) {
	if err := p.store.Release(context.WithoutCancel(ctx), item.ID, token, cause); err != nil {
		log.Printf("Queue item %s (%s): failed to release: %v", item.ID, item.DataID, err)
	}
	add(ctx, p.releasedCounter)
	log.Printf("Queue item %s (%s) left unprocessed: %v", item.ID, item.DataID, cause)
}

// deliver pushes every record of the item to every bound data value set.
// It reports whether at least one post was accepted, and the last failure.
func (p *Processor) deliver(ctx context.Context, item *models.DataQueue) (bool, error) {
	if item.Service == nil {
		return false, fmt.Errorf("queue item %s has no service loaded", item.ID)
	}

	sets, err := p.bindings.DataValueSetsForService(ctx, item.ServiceID)
	if err != nil {
		return false, err
	}
	if len(sets) == 0 {
		return false, fmt.Errorf("service %s has no data value sets", item.Service.IDString)
	}

	var delivered bool
	var lastErr error
	for i := range sets {
		dvs := &sets[i]

		records, err := p.fetcher.Fetch(ctx, item.Service, item.DataID)
		if err != nil {
			lastErr = fmt.Errorf("fetch %s for data value set %s: %w", item.DataID, dvs.ID, err)
			log.Printf("Queue item %s: %v", item.ID, lastErr)
			continue
		}
		if len(records) == 0 {
			continue
		}

		entries, err := p.mappings.FindMapping(ctx, dvs.ID)
		if err != nil {
			lastErr = err
			log.Printf("Queue item %s: %v", item.ID, err)
			continue
		}

		for _, record := range records {
			payload, err := dhis2.Render(dvs, entries, record)
			if err != nil {
				var perr *period.ParseError
				if errors.As(err, &perr) {
					add(ctx, p.skippedCounter)
					log.Printf("Queue item %s: skipping record for data value set %s: %v", item.ID, dvs.ID, err)
				} else {
					log.Printf("Queue item %s: %v", item.ID, err)
				}
				lastErr = err
				continue
			}

			resp, err := p.publisher.Publish(ctx, payload)
			if err != nil {
				add(ctx, p.publishCounter, attribute.String("outcome", "failure"))
				lastErr = fmt.Errorf("publish %s for data value set %s: %w", item.DataID, dvs.ID, err)
				log.Printf("Queue item %s: %v", item.ID, lastErr)
				continue
			}
			add(ctx, p.publishCounter, attribute.String("outcome", "success"))
			log.Printf("Queue item %s: data value set %s accepted by dhis2 (status %d)", item.ID, dvs.ID, resp.StatusCode)
			delivered = true
		}
	}
	return delivered, lastErr
}
