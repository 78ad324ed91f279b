// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/rsvp/lib/backoff"
	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/registry"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/lib/summary"
	"github.com/bureau-foundation/rsvp/observe"
	"github.com/bureau-foundation/rsvp/transport"
)

// DefaultSummaryRetry is used when Config.SummaryRetry is zero.
var DefaultSummaryRetry = backoff.Policy{
	MaxAttempts:  5,
	InitialDelay: time.Second,
	Multiplier:   2,
	MaxDelay:     30 * time.Second,
}

// Config holds an Engine's collaborators and settings.
type Config struct {
	// Registry holds the engine's events. Required.
	Registry *registry.Registry

	// Directory lists the guests each new invitation goes to.
	// Required.
	Directory guest.Directory

	// Publisher delivers invitations to guests and summaries to
	// hosts. Required.
	Publisher transport.Publisher

	// Clock drives deadlines and retry waits. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *observe.Metrics

	Topics rsvp.Topics

	// CollectionWindow is how long an event collects responses.
	// Required, must be positive.
	CollectionWindow time.Duration

	// CompleteWhenAllResponded closes the window as soon as every
	// invited guest has answered instead of waiting for the deadline.
	CompleteWhenAllResponded bool

	// SummaryRetry bounds summary delivery. Zero means
	// DefaultSummaryRetry.
	SummaryRetry backoff.Policy
}

// Engine is the coordinator for one registry. It is safe for
// concurrent use; the transport may deliver messages from several
// goroutines.
type Engine struct {
	registry  *registry.Registry
	directory guest.Directory
	publisher transport.Publisher
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *observe.Metrics
	topics    rsvp.Topics

	window        time.Duration
	completeEarly bool
	summaryRetry  backoff.Policy

	// lifetime is cancelled by Shutdown and bounds summary delivery.
	lifetime context.Context
	cancel   context.CancelFunc

	mu           sync.Mutex
	shuttingDown bool
	summarizing  sync.WaitGroup
}

// New validates config and returns a running Engine.
func New(config Config) (*Engine, error) {
	if config.Registry == nil {
		return nil, errors.New("coordinator: registry is required")
	}
	if config.Directory == nil {
		return nil, errors.New("coordinator: guest directory is required")
	}
	if config.Publisher == nil {
		return nil, errors.New("coordinator: publisher is required")
	}
	if config.CollectionWindow <= 0 {
		return nil, fmt.Errorf("coordinator: collection window must be positive, got %s", config.CollectionWindow)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.SummaryRetry == (backoff.Policy{}) {
		config.SummaryRetry = DefaultSummaryRetry
	}
	if err := config.SummaryRetry.Validate(); err != nil {
		return nil, fmt.Errorf("coordinator: summary retry: %w", err)
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &Engine{
		registry:      config.Registry,
		directory:     config.Directory,
		publisher:     config.Publisher,
		clock:         config.Clock,
		logger:        config.Logger,
		metrics:       config.Metrics,
		topics:        config.Topics,
		window:        config.CollectionWindow,
		completeEarly: config.CompleteWhenAllResponded,
		summaryRetry:  config.SummaryRetry,
		lifetime:      lifetime,
		cancel:        cancel,
	}, nil
}

// HandleMessage is the transport handler for the intake topic. It
// returns an error only for payloads that must be dead-lettered:
// malformed messages, invitations that cannot open an event, and
// anything arriving after Shutdown. Responses that are dropped (late,
// unknown event, uninvited guest) are acknowledged with nil after
// being logged and counted.
func (e *Engine) HandleMessage(ctx context.Context, payload []byte) error {
	message, err := rsvp.Decode(payload)
	if err != nil {
		e.metrics.Malformed()
		e.logger.Warn("dead-lettering malformed message", "error", err, "bytes", len(payload))
		return err
	}

	switch m := message.(type) {
	case rsvp.Invitation:
		return e.SubmitInvitation(ctx, m)
	case rsvp.Response:
		err := e.SubmitResponse(ctx, m)
		if isDroppedResponse(err) {
			return nil
		}
		return err
	case rsvp.Summary:
		e.metrics.Malformed()
		e.logger.Warn("dead-lettering summary sent to the coordinator intake", "event_id", m.EventID)
		return &rsvp.MalformedMessageError{Field: "type", Reason: "summaries are not accepted on the intake topic"}
	default:
		return fmt.Errorf("unhandled message kind %s", message.Kind())
	}
}

// isDroppedResponse reports whether err is a response rejection that
// is logged and acknowledged rather than dead-lettered.
func isDroppedResponse(err error) bool {
	return errors.Is(err, registry.ErrLateResponse) ||
		errors.Is(err, registry.ErrUnknownEvent) ||
		errors.Is(err, registry.ErrUninvitedGuest)
}

// SubmitInvitation opens an event: it snapshots the guest directory,
// registers the event, arms the collection deadline, and sends the
// invitation to each guest's topic.
//
// A failed publish to one guest is logged and counted but does not
// fail the invitation; that guest still counts as invited and shows up
// as no_response if they never answer.
func (e *Engine) SubmitInvitation(ctx context.Context, invitation rsvp.Invitation) error {
	if e.isShuttingDown() {
		e.metrics.InvitationRejected()
		return ErrShuttingDown
	}
	if err := e.checkInvitation(invitation); err != nil {
		e.metrics.InvitationRejected()
		e.logger.Warn("rejecting invitation", "event_id", invitation.EventID, "error", err)
		return err
	}

	guests, err := e.directory.Guests(ctx)
	if err != nil {
		e.metrics.InvitationRejected()
		e.logger.Error("loading guest directory failed", "event_id", invitation.EventID, "error", err)
		return fmt.Errorf("loading guest directory: %w", err)
	}

	acceptedAt := e.clock.Now()
	snapshot, err := e.registry.Register(invitation, guests, acceptedAt, acceptedAt.Add(e.window))
	if errors.Is(err, registry.ErrClosed) {
		e.metrics.InvitationRejected()
		return ErrShuttingDown
	}
	if err != nil {
		e.metrics.InvitationRejected()
		e.logger.Warn("rejecting invitation", "event_id", invitation.EventID, "error", err)
		return err
	}

	// The window runs from acceptance, so the timer is armed before any
	// guest is contacted.
	eventID := invitation.EventID
	timer := e.clock.AfterFunc(e.window, func() {
		e.closeWindow(eventID, rsvp.TriggerDeadline)
	})
	if !e.registry.AttachDeadline(eventID, timer) {
		// Shutdown cancelled every deadline while the directory was
		// loading.
		e.metrics.InvitationRejected()
		return ErrShuttingDown
	}
	e.metrics.InvitationAccepted()
	e.logger.Info("event opened",
		"event_id", invitation.EventID,
		"event_name", invitation.EventName,
		"host_id", invitation.HostID,
		"invited", len(snapshot.Invited),
		"deadline", snapshot.Deadline,
	)

	e.fanOut(ctx, invitation, snapshot.Invited)
	e.updateEventGauges()
	return nil
}

func (e *Engine) checkInvitation(invitation rsvp.Invitation) error {
	if err := invitation.Validate(); err != nil {
		return err
	}
	if err := rsvp.ValidateToken("host id", invitation.HostID); err != nil {
		return &rsvp.MalformedMessageError{Field: "host_id", Reason: err.Error()}
	}
	return nil
}

func (e *Engine) fanOut(ctx context.Context, invitation rsvp.Invitation, guests []guest.Guest) {
	payload, err := rsvp.Encode(invitation)
	if err != nil {
		// Encoding a validated invitation cannot fail; if it does,
		// every guest is unreachable and the summary will say so.
		e.logger.Error("encoding invitation failed", "event_id", invitation.EventID, "error", err)
		return
	}

	delivered := 0
	for _, g := range guests {
		topic := e.topics.Guest(g.ID)
		if err := e.publisher.Publish(ctx, topic, payload); err != nil {
			e.metrics.FanoutFailed()
			e.logger.Warn("sending invitation to guest failed",
				"event_id", invitation.EventID,
				"guest_id", g.ID,
				"topic", topic,
				"error", err,
			)
			continue
		}
		delivered++
	}
	e.logger.Debug("invitation fanned out",
		"event_id", invitation.EventID,
		"delivered", delivered,
		"invited", len(guests),
	)
}

// SubmitResponse records one guest response. received_at is stamped
// from the engine's clock, overriding any value the guest sent.
//
// Rejections wrap the registry's sentinel errors: ErrLateResponse,
// ErrUnknownEvent, and ErrUninvitedGuest. None of them changes any
// event.
func (e *Engine) SubmitResponse(_ context.Context, response rsvp.Response) error {
	if e.isShuttingDown() {
		return ErrShuttingDown
	}
	if err := response.Validate(); err != nil {
		e.metrics.Response(observe.OutcomeInvalid)
		return err
	}
	response.Decision, _ = rsvp.ParseDecision(string(response.Decision))
	response.ReceivedAt = e.clock.Now()

	result, err := e.registry.MergeResponse(response.EventID, response)
	if err != nil {
		e.recordRejection(response, err)
		return err
	}

	e.metrics.Response(result.Outcome.String())
	e.logger.Info("response recorded",
		"event_id", response.EventID,
		"guest_id", response.GuestID,
		"decision", response.Decision,
		"outcome", result.Outcome,
		"responded", result.Responded,
		"invited", result.Invited,
	)

	if e.completeEarly && result.Complete() {
		e.closeWindow(response.EventID, rsvp.TriggerAllResponded)
	}
	return nil
}

func (e *Engine) recordRejection(response rsvp.Response, err error) {
	attrs := []any{"event_id", response.EventID, "guest_id", response.GuestID, "error", err}
	switch {
	case errors.Is(err, registry.ErrLateResponse):
		e.metrics.Response(observe.OutcomeLate)
		e.logger.Info("dropping late response", attrs...)
	case errors.Is(err, registry.ErrUnknownEvent):
		e.metrics.Response(observe.OutcomeUnknown)
		e.logger.Warn("dropping response for unknown event", attrs...)
	case errors.Is(err, registry.ErrUninvitedGuest):
		e.metrics.Response(observe.OutcomeUninvited)
		e.logger.Warn("dropping response from uninvited guest", attrs...)
	default:
		e.logger.Error("recording response failed", attrs...)
	}
}

// closeWindow ends collection for eventID. Called from the deadline
// timer and from the response that completes the guest list; only the
// first caller moves the event to Summarizing.
func (e *Engine) closeWindow(eventID string, trigger rsvp.Trigger) {
	snapshot, err := e.registry.BeginSummarizing(eventID)
	if err != nil {
		// The other trigger won, or Shutdown got here first.
		e.logger.Debug("collection window already closed", "event_id", eventID, "trigger", trigger, "error", err)
		return
	}

	e.mu.Lock()
	if e.shuttingDown {
		e.mu.Unlock()
		e.logger.Warn("discarding summary: coordinator is shutting down", "event_id", eventID)
		e.closeEvent(eventID)
		return
	}
	e.summarizing.Add(1)
	e.mu.Unlock()

	e.logger.Info("collection window closed",
		"event_id", eventID,
		"trigger", trigger,
		"responded", len(snapshot.Responses),
		"invited", len(snapshot.Invited),
	)
	// Delivery retries wait on the clock, which must not happen inside
	// a clock callback.
	go e.deliverSummary(snapshot, trigger)
}

func (e *Engine) deliverSummary(snapshot registry.Snapshot, trigger rsvp.Trigger) {
	defer e.summarizing.Done()
	defer e.closeEvent(snapshot.EventID())

	compiled := summary.Compile(snapshot, trigger, e.clock.Now())
	payload, err := rsvp.Encode(compiled)
	if err != nil {
		e.metrics.SummaryFailed(string(trigger))
		e.logger.Error("encoding summary failed", "event_id", compiled.EventID, "error", err)
		return
	}

	topic := e.topics.Host(compiled.HostID)
	attempts, err := backoff.Retry(e.lifetime, e.clock, e.summaryRetry,
		func(ctx context.Context) error {
			return e.publisher.Publish(ctx, topic, payload)
		},
		func(attempt int, delay time.Duration, err error) {
			if delay > 0 {
				e.metrics.PublishRetried()
			}
			e.logger.Warn("publishing summary failed",
				"event_id", compiled.EventID,
				"topic", topic,
				"attempt", attempt,
				"retry_in", delay,
				"error", err,
			)
		},
	)
	if err != nil {
		failure := &PublishFailureError{EventID: compiled.EventID, Topic: topic, Attempts: attempts, Err: err}
		e.metrics.SummaryFailed(string(trigger))
		e.logger.Error("summary undeliverable, closing event", "event_id", compiled.EventID, "error", failure)
		return
	}

	e.metrics.SummaryPublished(string(trigger))
	e.logger.Info("summary published",
		"event_id", compiled.EventID,
		"host_id", compiled.HostID,
		"topic", topic,
		"attempts", attempts,
		"attending", compiled.Attending,
		"not_attending", compiled.NotAttending,
		"maybe", compiled.Maybe,
		"no_response", compiled.NoResponse,
	)
}

func (e *Engine) closeEvent(eventID string) {
	if err := e.registry.Close(eventID); err != nil {
		e.logger.Error("closing event failed", "event_id", eventID, "error", err)
	}
	e.updateEventGauges()
}

func (e *Engine) updateEventGauges() {
	e.metrics.SetEvents(e.registry.Stats())
}

func (e *Engine) isShuttingDown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shuttingDown
}

// Shutdown stops accepting submissions, cancels every pending
// deadline, aborts summary retries, and waits for summaries already
// being delivered to finish or ctx to expire. Events still collecting
// are abandoned without a summary. Safe to call more than once.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	first := !e.shuttingDown
	e.shuttingDown = true
	e.mu.Unlock()

	if first {
		cancelled := e.registry.CancelAll()
		e.cancel()
		e.logger.Info("coordinator shutting down",
			"cancelled_deadlines", cancelled,
			"abandoned_events", e.registry.Stats().Collecting,
		)
	}

	done := make(chan struct{})
	go func() {
		e.summarizing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight summaries: %w", ctx.Err())
	}
}
