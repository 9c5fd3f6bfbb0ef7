package relay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/conversion"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/delivery"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/event"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/mapper"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/metrics"
)

// Relay runs the post-verification pipeline for one inbound event:
// extract facts, build the conversion payload, deliver it. Every
// outcome here is best-effort: failures are logged with enough
// context to replay from the provider's event log, never surfaced to
// the webhook sender.
type Relay struct {
	mapper   *mapper.Mapper
	delivery *delivery.Client
	logger   *zap.Logger
}

func New(eventMapper *mapper.Mapper, deliveryClient *delivery.Client, logger *zap.Logger) *Relay {
	return &Relay{
		mapper:   eventMapper,
		delivery: deliveryClient,
		logger:   logger,
	}
}

// Process handles one verified inbound event through to delivery.
// Steps are strictly sequential; the delivery retry loop blocks until
// exhausted or successful.
func (r *Relay) Process(ctx context.Context, evt *event.InboundEvent, rc conversion.RequestContext) {
	relayID := uuid.New().String()
	log := r.logger.With(
		zap.String("relay_id", relayID),
		zap.String("event_type", string(evt.Type)),
		zap.String("event_id", evt.ID),
	)

	metrics.EventsReceived.WithLabelValues(string(evt.Type)).Inc()

	facts, err := r.mapper.Extract(ctx, evt)
	if err != nil {
		metrics.UpstreamFetchFailures.Inc()
		log.Error("Event processing aborted", zap.Error(err))
		return
	}
	if facts == nil {
		metrics.EventsDropped.WithLabelValues(string(evt.Type)).Inc()
		log.Debug("Event has no conversion mapping, dropped")
		return
	}
	if facts.EventName == "" {
		// Guard against a branch leaking unset facts downstream.
		metrics.EventsDropped.WithLabelValues(string(evt.Type)).Inc()
		log.Warn("Extracted facts have no conversion name, dropped",
			zap.String("external_id", facts.ExternalID),
		)
		return
	}

	payload := conversion.BuildPayload(*facts, rc)

	start := time.Now()
	result := r.delivery.Send(ctx, payload)
	metrics.DeliveryDuration.Observe(float64(time.Since(start).Milliseconds()))

	if result.Succeeded {
		metrics.ConversionsDelivered.WithLabelValues(facts.EventName).Inc()
		log.Info("Conversion relayed",
			zap.String("conversion_name", facts.EventName),
			zap.String("external_id", facts.ExternalID),
			zap.Int("attempts", result.AttemptsMade),
		)
		return
	}

	metrics.DeliveryFailures.WithLabelValues(facts.EventName).Inc()
	fields := []zap.Field{
		zap.String("conversion_name", facts.EventName),
		zap.String("external_id", facts.ExternalID),
		zap.Int("attempts", result.AttemptsMade),
	}
	if result.HTTPStatus != nil {
		fields = append(fields, zap.Int("http_status", *result.HTTPStatus))
	}
	log.Error("Conversion dropped after retry exhaustion", fields...)
}
