package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrCapacityReached    = errors.New("subscriber capacity reached")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrClosed             = errors.New("hub is closed")
)

type Config struct {
	// MaxConnectionsPerTournament and MaxTotalConnections cap admissions.
	// Zero means unlimited.
	MaxConnectionsPerTournament int
	MaxTotalConnections         int
	// ConnectionTimeout is the idle time after which the sweep evicts a
	// subscriber. Websocket keep-alive pings are derived from it.
	ConnectionTimeout   time.Duration
	HealthCheckInterval time.Duration
	// MessageRateLimit is the inbound message count allowed per RateWindow.
	// Zero disables rate signals.
	MessageRateLimit int
	RateWindow       time.Duration
	// SendBuffer is the per-subscriber outbound queue length.
	SendBuffer int
}

func DefaultConfig() Config {
	return Config{
		MaxConnectionsPerTournament: 100,
		MaxTotalConnections:         1000,
		ConnectionTimeout:           60 * time.Second,
		HealthCheckInterval:         30 * time.Second,
		MessageRateLimit:            60,
		RateWindow:                  time.Minute,
		SendBuffer:                  256,
	}
}

// Message is the envelope written to subscribers.
type Message struct {
	Type         string    `json:"type"`
	Payload      any       `json:"payload"`
	TournamentID int       `json:"tournament_id,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}

type EventType string

const (
	EventJoined          EventType = "subscriber_joined"
	EventLeft            EventType = "subscriber_left"
	EventDisconnected    EventType = "subscriber_disconnected"
	EventCapacityReached EventType = "capacity_reached"
	EventEvicted         EventType = "evicted"
	EventHighRate        EventType = "high_rate"
	EventDeliveryFailed  EventType = "delivery_failed"
)

// Event is an internal observability signal emitted by the hub.
type Event struct {
	Type         EventType `json:"type"`
	ConnectionID string    `json:"connection_id,omitempty"`
	TournamentID int       `json:"tournament_id,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	At           time.Time `json:"at"`
}

type Metrics struct {
	TotalConnections int         `json:"total_connections"`
	PerTournament    map[int]int `json:"per_tournament_connections"`
	CapacityEvents   int         `json:"capacity_events"`
	ErrorEvents      int         `json:"error_events"`
	HighRateEvents   int         `json:"high_rate_events"`
	Evictions        int         `json:"evictions"`
}

type Option func(*Hub)

// WithClock replaces time.Now for activity and rate bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) Option {
	return func(h *Hub) { h.events = make(chan Event, n) }
}

// Hub owns every subscriber and tournament room. All state is confined to the
// goroutine started by Start; public methods talk to it over a channel and
// return ErrClosed once the hub has stopped.
type Hub struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	requests chan any
	events   chan Event
	stopCh   chan struct{}
	doneCh   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool

	subscribers map[string]*subscriber
	rooms       map[int]map[string]*subscriber
	counters    Metrics
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}
	h := &Hub{
		cfg:         cfg,
		logger:      logger.With("component", "hub"),
		now:         time.Now,
		requests:    make(chan any),
		events:      make(chan Event, 64),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		subscribers: make(map[string]*subscriber),
		rooms:       make(map[int]map[string]*subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type (
	joinRequest struct {
		connID       string
		tournamentID int
		userID       int
		reply        chan joinReply
	}
	joinReply struct {
		send <-chan []byte
		err  error
	}
	leaveRequest struct {
		connID       string
		tournamentID int
		reply        chan error
	}
	disconnectRequest struct {
		connID string
		reply  chan error
	}
	activateRequest struct {
		connID string
		reply  chan error
	}
	touchRequest struct {
		connID  string
		latency time.Duration
		reply   chan error
	}
	messageRequest struct {
		connID string
		reply  chan messageReply
	}
	messageReply struct {
		exceeded bool
		err      error
	}
	broadcastRequest struct {
		tournamentID int
		data         []byte
		reply        chan int
	}
	notifyRequest struct {
		connID string
		data   []byte
		reply  chan error
	}
	sweepRequest struct {
		reply chan int
	}
	metricsRequest struct {
		reply chan Metrics
	}
	lookupRequest struct {
		connID string
		reply  chan lookupReply
	}
	lookupReply struct {
		info SubscriberInfo
		err  error
	}
)

// Start runs the hub loop in its own goroutine. It returns immediately; the
// loop stops when ctx is cancelled or Shutdown is called.
func (h *Hub) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		h.started.Store(true)
		go h.run(ctx)
	})
}

// Shutdown stops the loop, closes every subscriber queue and waits for the
// loop to exit or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stopCh) })
	select {
	case <-h.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hub shutdown: %w", ctx.Err())
	}
}

const minPingPeriod = 100 * time.Millisecond

// KeepAlive returns the websocket ping period and pong wait for the configured
// ConnectionTimeout. Pings go out twice per timeout so a connection that only
// answers pings stays active; a missing pong closes the socket after one
// timeout.
func (h *Hub) KeepAlive() (pingPeriod, pongWait time.Duration) {
	return keepAlive(h.cfg.ConnectionTimeout)
}

func keepAlive(timeout time.Duration) (pingPeriod, pongWait time.Duration) {
	if timeout <= 0 {
		timeout = DefaultConfig().ConnectionTimeout
	}
	pingPeriod = timeout / 2
	if pingPeriod < minPingPeriod {
		pingPeriod = minPingPeriod
	}
	pongWait = timeout
	if pongWait <= pingPeriod {
		pongWait = 2 * pingPeriod
	}
	return pingPeriod, pongWait
}

// Events exposes internal signals (capacity, eviction, high rate). Signals are
// dropped when the buffer is full. The channel is closed when the hub stops.
func (h *Hub) Events() <-chan Event {
	return h.events
}

func (h *Hub) run(ctx context.Context) {
	interval := h.cfg.HealthCheckInterval
	if interval <= 0 {
		interval = DefaultConfig().HealthCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.logger.Info("hub started",
		slog.Int("max_per_tournament", h.cfg.MaxConnectionsPerTournament),
		slog.Int("max_total", h.cfg.MaxTotalConnections),
		slog.Duration("health_check_interval", interval))

	defer func() {
		for _, s := range h.subscribers {
			h.remove(s, StateDisconnected)
		}
		close(h.events)
		close(h.doneCh)
		h.logger.Info("hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-ticker.C:
			if n := h.sweep(); n > 0 {
				h.logger.Info("health sweep evicted subscribers", slog.Int("evicted", n))
			}
		case req := <-h.requests:
			h.handle(req)
		}
	}
}

func (h *Hub) handle(req any) {
	switch r := req.(type) {
	case joinRequest:
		send, err := h.join(r.connID, r.tournamentID, r.userID)
		r.reply <- joinReply{send: send, err: err}
	case leaveRequest:
		r.reply <- h.leave(r.connID, r.tournamentID)
	case disconnectRequest:
		s, ok := h.subscribers[r.connID]
		if !ok {
			r.reply <- fmt.Errorf("%w: %s", ErrSubscriberNotFound, r.connID)
			return
		}
		h.remove(s, StateDisconnected)
		h.emit(Event{Type: EventDisconnected, ConnectionID: r.connID})
		r.reply <- nil
	case activateRequest:
		s, ok := h.subscribers[r.connID]
		if !ok {
			r.reply <- fmt.Errorf("%w: %s", ErrSubscriberNotFound, r.connID)
			return
		}
		s.state = StateActive
		s.lastActivity = h.now()
		r.reply <- nil
	case touchRequest:
		s, ok := h.subscribers[r.connID]
		if !ok {
			r.reply <- fmt.Errorf("%w: %s", ErrSubscriberNotFound, r.connID)
			return
		}
		s.lastActivity = h.now()
		if r.latency > 0 {
			s.latency = r.latency
		}
		r.reply <- nil
	case messageRequest:
		exceeded, err := h.recordMessage(r.connID)
		r.reply <- messageReply{exceeded: exceeded, err: err}
	case broadcastRequest:
		r.reply <- h.broadcast(r.tournamentID, r.data)
	case notifyRequest:
		r.reply <- h.notify(r.connID, r.data)
	case sweepRequest:
		r.reply <- h.sweep()
	case metricsRequest:
		r.reply <- h.metrics()
	case lookupRequest:
		s, ok := h.subscribers[r.connID]
		if !ok {
			r.reply <- lookupReply{err: fmt.Errorf("%w: %s", ErrSubscriberNotFound, r.connID)}
			return
		}
		r.reply <- lookupReply{info: s.info()}
	default:
		h.logger.Error("unknown hub request", slog.String("type", fmt.Sprintf("%T", req)))
	}
}

func (h *Hub) join(connID string, tournamentID, userID int) (<-chan []byte, error) {
	s, known := h.subscribers[connID]
	if known {
		if _, member := s.rooms[tournamentID]; member {
			return s.send, nil
		}
	}

	room := h.rooms[tournamentID]
	switch {
	case h.cfg.MaxConnectionsPerTournament > 0 && len(room) >= h.cfg.MaxConnectionsPerTournament:
		return nil, h.rejectJoin(connID, tournamentID, fmt.Sprintf("tournament limit %d", h.cfg.MaxConnectionsPerTournament))
	case !known && h.cfg.MaxTotalConnections > 0 && len(h.subscribers) >= h.cfg.MaxTotalConnections:
		return nil, h.rejectJoin(connID, tournamentID, fmt.Sprintf("global limit %d", h.cfg.MaxTotalConnections))
	}

	if !known {
		s = newSubscriber(connID, userID, h.cfg.SendBuffer, h.now())
		h.subscribers[connID] = s
	}
	if room == nil {
		room = make(map[string]*subscriber)
		h.rooms[tournamentID] = room
	}
	room[connID] = s
	s.rooms[tournamentID] = struct{}{}
	s.lastActivity = h.now()

	h.logger.Debug("subscriber joined",
		slog.String("connection_id", connID),
		slog.Int("tournament_id", tournamentID),
		slog.Int("room_size", len(room)))
	h.emit(Event{Type: EventJoined, ConnectionID: connID, TournamentID: tournamentID})
	return s.send, nil
}

func (h *Hub) rejectJoin(connID string, tournamentID int, detail string) error {
	h.counters.CapacityEvents++
	h.logger.Warn("subscriber rejected",
		slog.String("connection_id", connID),
		slog.Int("tournament_id", tournamentID),
		slog.String("reason", detail))
	h.emit(Event{Type: EventCapacityReached, ConnectionID: connID, TournamentID: tournamentID, Detail: detail})
	return fmt.Errorf("%w: %s", ErrCapacityReached, detail)
}

func (h *Hub) leave(connID string, tournamentID int) error {
	s, ok := h.subscribers[connID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSubscriberNotFound, connID)
	}
	if _, member := s.rooms[tournamentID]; !member {
		return fmt.Errorf("%w: %s is not in tournament %d", ErrSubscriberNotFound, connID, tournamentID)
	}
	h.dropMembership(s, tournamentID)
	h.emit(Event{Type: EventLeft, ConnectionID: connID, TournamentID: tournamentID})
	return nil
}

func (h *Hub) dropMembership(s *subscriber, tournamentID int) {
	delete(s.rooms, tournamentID)
	room := h.rooms[tournamentID]
	delete(room, s.connID)
	if len(room) == 0 {
		delete(h.rooms, tournamentID)
	}
}

// remove releases every slot held by s and closes its queue, which makes the
// write pump send a close frame.
func (h *Hub) remove(s *subscriber, final State) {
	for id := range s.rooms {
		h.dropMembership(s, id)
	}
	delete(h.subscribers, s.connID)
	s.state = final
	close(s.send)
}

func (h *Hub) recordMessage(connID string) (bool, error) {
	s, ok := h.subscribers[connID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrSubscriberNotFound, connID)
	}
	limit := h.cfg.MessageRateLimit
	if limit <= 0 {
		s.lastActivity = h.now()
		return false, nil
	}
	count := s.recordMessage(h.now(), h.cfg.RateWindow)
	exceeded := count > limit
	// Signal once per crossing, not for every message above the limit.
	if count == limit+1 {
		h.counters.HighRateEvents++
		h.logger.Warn("subscriber message rate high",
			slog.String("connection_id", connID),
			slog.Int("limit", h.cfg.MessageRateLimit),
			slog.Duration("window", h.cfg.RateWindow))
		h.emit(Event{Type: EventHighRate, ConnectionID: connID,
			Detail: fmt.Sprintf("more than %d messages in %s", h.cfg.MessageRateLimit, h.cfg.RateWindow)})
	}
	return exceeded, nil
}

func (h *Hub) broadcast(tournamentID int, data []byte) int {
	room := h.rooms[tournamentID]
	targets := make([]*subscriber, 0, len(room))
	for _, s := range room {
		if s.state == StateActive {
			targets = append(targets, s)
		}
	}

	delivered := 0
	for _, s := range targets {
		select {
		case s.send <- data:
			delivered++
		default:
			h.counters.ErrorEvents++
			h.logger.Warn("subscriber queue full, message dropped",
				slog.String("connection_id", s.connID),
				slog.Int("tournament_id", tournamentID))
			h.emit(Event{Type: EventDeliveryFailed, ConnectionID: s.connID, TournamentID: tournamentID, Detail: "send queue full"})
		}
	}
	return delivered
}

func (h *Hub) notify(connID string, data []byte) error {
	s, ok := h.subscribers[connID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSubscriberNotFound, connID)
	}
	select {
	case s.send <- data:
		return nil
	default:
		h.counters.ErrorEvents++
		return fmt.Errorf("send queue full for %s", connID)
	}
}

func (h *Hub) sweep() int {
	if h.cfg.ConnectionTimeout <= 0 {
		return 0
	}
	now := h.now()
	evicted := 0
	for _, s := range h.subscribers {
		idle := s.idleSince(now)
		if idle <= h.cfg.ConnectionTimeout {
			continue
		}
		h.remove(s, StateEvicted)
		h.counters.Evictions++
		evicted++
		h.logger.Info("subscriber evicted",
			slog.String("connection_id", s.connID),
			slog.Duration("idle", idle))
		h.emit(Event{Type: EventEvicted, ConnectionID: s.connID, Detail: fmt.Sprintf("idle for %s", idle)})
	}
	return evicted
}

func (h *Hub) metrics() Metrics {
	m := h.counters
	m.TotalConnections = len(h.subscribers)
	m.PerTournament = make(map[int]int, len(h.rooms))
	for id, room := range h.rooms {
		m.PerTournament[id] = len(room)
	}
	return m
}

func (h *Hub) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = h.now()
	}
	select {
	case h.events <- ev:
	default:
		h.logger.Debug("hub event dropped", slog.String("type", string(ev.Type)))
	}
}

// call hands req to the loop. The reply channel must be buffered.
func (h *Hub) call(req any) error {
	if !h.started.Load() {
		return fmt.Errorf("%w: not started", ErrClosed)
	}
	select {
	case h.requests <- req:
		return nil
	case <-h.doneCh:
		return ErrClosed
	case <-h.stopCh:
		return ErrClosed
	}
}

// Join admits connID to a tournament room. A connection already in other rooms
// counts once against MaxTotalConnections. The returned channel carries
// encoded messages for the connection and is closed when it is removed.
func (h *Hub) Join(connID string, tournamentID, userID int) (<-chan []byte, error) {
	reply := make(chan joinReply, 1)
	if err := h.call(joinRequest{connID: connID, tournamentID: tournamentID, userID: userID, reply: reply}); err != nil {
		return nil, err
	}
	r := <-reply
	return r.send, r.err
}

// Leave removes connID from one tournament room. The connection stays
// connected and keeps its other rooms.
func (h *Hub) Leave(connID string, tournamentID int) error {
	reply := make(chan error, 1)
	if err := h.call(leaveRequest{connID: connID, tournamentID: tournamentID, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// Disconnect removes connID from every room and frees its global slot.
func (h *Hub) Disconnect(connID string) error {
	reply := make(chan error, 1)
	if err := h.call(disconnectRequest{connID: connID, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// Activate marks an admitted subscriber ready to receive broadcasts.
func (h *Hub) Activate(connID string) error {
	reply := make(chan error, 1)
	if err := h.call(activateRequest{connID: connID, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// Touch refreshes the activity timestamp and records a measured round trip.
func (h *Hub) Touch(connID string, latency time.Duration) error {
	reply := make(chan error, 1)
	if err := h.call(touchRequest{connID: connID, latency: latency, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// RecordMessage counts an inbound message and reports whether the subscriber
// is over MessageRateLimit. Exceeding the limit never disconnects.
func (h *Hub) RecordMessage(connID string) (bool, error) {
	reply := make(chan messageReply, 1)
	if err := h.call(messageRequest{connID: connID, reply: reply}); err != nil {
		return false, err
	}
	r := <-reply
	return r.exceeded, r.err
}

// Broadcast delivers an event to every active subscriber of the tournament and
// returns the number of subscribers it reached. A full queue on one subscriber
// is counted as an error and does not stop delivery to the others.
func (h *Hub) Broadcast(tournamentID int, event string, payload any) (int, error) {
	data, err := json.Marshal(Message{Type: event, Payload: payload, TournamentID: tournamentID, SentAt: h.now().UTC()})
	if err != nil {
		return 0, fmt.Errorf("encode %s message: %w", event, err)
	}
	reply := make(chan int, 1)
	if err := h.call(broadcastRequest{tournamentID: tournamentID, data: data, reply: reply}); err != nil {
		return 0, err
	}
	return <-reply, nil
}

// Notify queues a message for a single subscriber regardless of its state.
func (h *Hub) Notify(connID, event string, payload any) error {
	data, err := json.Marshal(Message{Type: event, Payload: payload, SentAt: h.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode %s message: %w", event, err)
	}
	reply := make(chan error, 1)
	if err := h.call(notifyRequest{connID: connID, data: data, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// Sweep evicts subscribers idle longer than ConnectionTimeout and returns how
// many were removed. The loop calls it every HealthCheckInterval.
func (h *Hub) Sweep() (int, error) {
	reply := make(chan int, 1)
	if err := h.call(sweepRequest{reply: reply}); err != nil {
		return 0, err
	}
	return <-reply, nil
}

func (h *Hub) Metrics() (Metrics, error) {
	reply := make(chan Metrics, 1)
	if err := h.call(metricsRequest{reply: reply}); err != nil {
		return Metrics{}, err
	}
	return <-reply, nil
}

func (h *Hub) Subscriber(connID string) (SubscriberInfo, error) {
	reply := make(chan lookupReply, 1)
	if err := h.call(lookupRequest{connID: connID, reply: reply}); err != nil {
		return SubscriberInfo{}, err
	}
	r := <-reply
	return r.info, r.err
}
