// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/logger"
)

// droppedEvents counts audit events dropped because the mailbox was full.
var droppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "acton_audit_events_dropped_total",
	Help: "Audit events dropped due to mailbox backpressure.",
}, []string{"service"})

// Auditor is the sealing agent. It owns the hash chain exclusively and
// processes events strictly in mailbox arrival order: seal, append to
// storage, then mirror to syslog and OTLP. Side-channel failures never
// drop the event from the remaining channels.
type Auditor struct {
	serviceName string
	cfg         config.AuditConfig

	mailbox chan *Event
	queries chan chainQuery
	stopped chan struct{}
	stop    chan struct{}

	// owned by run()
	chain   *Chain
	storage Storage
	syslog  *SyslogEmitter
	otel    *OTELEmitter
	tracker *FailureTracker
}

type chainState struct {
	Sequence     uint64
	PreviousHash string
}

type chainQuery struct{ reply chan chainState }

// NewAuditor creates the agent and resumes the chain from storage: the
// latest stored event provides the previous hash and sequence; empty or
// absent storage starts a fresh chain at sequence zero.
func NewAuditor(ctx context.Context, serviceName string, cfg config.AuditConfig, storage Storage, otelActive bool) (*Auditor, error) {
	a := &Auditor{
		serviceName: serviceName,
		cfg:         cfg,
		mailbox:     make(chan *Event, cfg.MailboxSize),
		queries:     make(chan chainQuery),
		stopped:     make(chan struct{}),
		stop:        make(chan struct{}),
		storage:     storage,
		syslog:      NewSyslogEmitter(cfg.Syslog, serviceName),
		tracker:     NewFailureTracker(cfg.Alerts),
	}
	if otelActive {
		a.otel = NewOTELEmitter()
	}

	if storage != nil {
		latest, err := storage.Latest(ctx)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			chain, err := ResumeChain(serviceName, latest.Hash, latest.Sequence)
			if err != nil {
				return nil, err
			}
			a.chain = chain
			logger.Infow("resumed audit chain", "sequence", latest.Sequence)
		}
	}
	if a.chain == nil {
		a.chain = NewChain(serviceName)
	}

	go a.run()
	return a, nil
}

// Record submits an event for sealing. It never blocks: when the mailbox
// is full the event is dropped with a warning and a metric increment.
func (a *Auditor) Record(event *Event) {
	select {
	case a.mailbox <- event:
	default:
		droppedEvents.WithLabelValues(a.serviceName).Inc()
		logger.Warnw("audit mailbox full, dropping event",
			"kind", event.Kind, "path", event.Path)
	}
}

// ChainState returns the current sequence and previous hash. The query
// goes through the agent so reads serialise with sealing.
func (a *Auditor) ChainState(ctx context.Context) (uint64, string) {
	q := chainQuery{reply: make(chan chainState, 1)}
	select {
	case a.queries <- q:
	case <-ctx.Done():
		return 0, ""
	case <-a.stopped:
		return 0, ""
	}
	select {
	case state := <-q.reply:
		return state.Sequence, state.PreviousHash
	case <-ctx.Done():
		return 0, ""
	}
}

// Close drains the mailbox, flushes side channels, and stops the agent.
func (a *Auditor) Close(ctx context.Context) {
	close(a.stop)
	select {
	case <-a.stopped:
	case <-ctx.Done():
	}
}

func (a *Auditor) run() {
	defer close(a.stopped)
	defer func() {
		if a.syslog != nil {
			_ = a.syslog.Close()
		}
	}()

	for {
		select {
		case event := <-a.mailbox:
			a.process(event)
		case q := <-a.queries:
			q.reply <- a.state()
		case <-a.stop:
			// Drain whatever producers managed to enqueue before stop.
			for {
				select {
				case event := <-a.mailbox:
					a.process(event)
				default:
					return
				}
			}
		}
	}
}

func (a *Auditor) state() chainState {
	return chainState{
		Sequence:     a.chain.Sequence(),
		PreviousHash: a.chain.PreviousHashHex(),
	}
}

// process seals one event and feeds every side channel. Detached contexts
// keep in-flight writes running through request cancellation.
func (a *Auditor) process(event *Event) {
	a.chain.Seal(event)

	if a.storage != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.storage.Append(ctx, event); err != nil {
			logger.Warnw("audit storage append failed",
				"sequence", event.Sequence, "error", err)
			a.tracker.RecordFailure(a.serviceName, err)
		} else {
			a.tracker.RecordSuccess(a.serviceName)
		}
		cancel()
	}

	if a.syslog != nil {
		a.syslog.Emit(event)
	}
	if a.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.otel.Emit(ctx, event)
		cancel()
	}
}
