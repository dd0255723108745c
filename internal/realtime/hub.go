package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/observability"
)

const subscriberBufferSize = 16

// Resource names a collection whose changes are broadcast.
type Resource string

// Collections observed by watch subscriptions.
const (
	ResourceAssignments Resource = "assignments"
	ResourceSubmissions Resource = "submissions"
	ResourceGrades      Resource = "grades"
)

// ParseResource maps a path segment to a known resource.
func ParseResource(raw string) (Resource, bool) {
	switch Resource(strings.ToLower(strings.TrimSpace(raw))) {
	case ResourceAssignments:
		return ResourceAssignments, true
	case ResourceSubmissions:
		return ResourceSubmissions, true
	case ResourceGrades:
		return ResourceGrades, true
	default:
		return "", false
	}
}

// Event announces that a record of a resource changed.
type Event struct {
	Resource Resource  `json:"resource"`
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	At       time.Time `json:"at"`
}

// Hub fans change events out to local subscribers and, when configured, to
// other API nodes through Redis pub/sub and NATS.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[Resource]map[chan Event]struct{}

	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string

	logger zerolog.Logger
	nodeID string
	now    func() time.Time
}

// NewHub constructs a hub. Either broker client may be nil.
func NewHub(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *Hub {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":changes"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".changes"
	}

	return &Hub{
		subscribers:  make(map[Resource]map[chan Event]struct{}),
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "realtime_hub").Logger(),
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

// NodeID identifies this hub on the shared brokers.
func (h *Hub) NodeID() string {
	return h.nodeID
}

// Start consumes remote change events until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	if h.redis != nil && h.redisChannel != "" {
		go h.consumeRedis(ctx)
	}
	if h.nats != nil && h.natsSubject != "" {
		h.consumeNATS(ctx)
	}
}

// Publish notifies local subscribers and forwards the event to the brokers.
// Broker failures are logged; local delivery always happens.
func (h *Hub) Publish(ctx context.Context, resource Resource, id string) {
	event := Event{Resource: resource, ID: id, Source: h.nodeID, At: h.now().UTC()}
	h.broadcast(event)

	if err := h.forward(ctx, event); err != nil {
		h.logger.Warn().Err(err).Str("resource", string(resource)).Msg("failed to forward change event")
	}
}

// Subscribe registers a channel receiving events for the given resources.
// The returned function unregisters it and closes the channel.
func (h *Hub) Subscribe(resources ...Resource) (<-chan Event, func()) {
	channel := make(chan Event, subscriberBufferSize)

	h.mu.Lock()
	for _, resource := range resources {
		if _, exists := h.subscribers[resource]; !exists {
			h.subscribers[resource] = make(map[chan Event]struct{})
		}
		h.subscribers[resource][channel] = struct{}{}
	}
	h.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, resource := range resources {
				if subscribers, ok := h.subscribers[resource]; ok {
					delete(subscribers, channel)
					if len(subscribers) == 0 {
						delete(h.subscribers, resource)
					}
				}
			}
			close(channel)
		})
	}

	return channel, cleanup
}

func (h *Hub) broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[event.Resource] {
		select {
		case ch <- event:
		default:
			observability.RealtimeEventsDropped().WithLabelValues(string(event.Resource)).Inc()
		}
	}
}

func (h *Hub) forward(ctx context.Context, event Event) error {
	if (h.redis == nil || h.redisChannel == "") && (h.nats == nil || h.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if h.redis != nil && h.redisChannel != "" {
		if err := h.redis.Publish(ctx, h.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if h.nats != nil && h.natsSubject != "" {
		if err := h.nats.Publish(h.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *Hub) consumeRedis(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, h.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			h.logger.Error().Err(err).Msg("change feed redis subscription closed")
			return
		}
		h.handleRemote([]byte(msg.Payload))
	}
}

func (h *Hub) consumeNATS(ctx context.Context) {
	sub, err := h.nats.Subscribe(h.natsSubject, func(msg *nats.Msg) {
		h.handleRemote(msg.Data)
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to subscribe to change feed subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to drain change feed subscription")
		}
	}()
}

func (h *Hub) handleRemote(payload []byte) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Warn().Err(err).Msg("invalid change event payload")
		return
	}

	if event.Source == h.nodeID {
		return
	}

	if _, ok := ParseResource(string(event.Resource)); !ok {
		h.logger.Warn().Str("resource", string(event.Resource)).Msg("change event for unknown resource")
		return
	}

	h.broadcast(event)
}
