// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/logger"
)

// sdID is the RFC 5424 structured-data element carrying the audit fields.
const sdID = "audit@49610"

// SyslogEmitter sends sealed audit events as RFC 5424 messages over UDP or
// TCP. Emission is best-effort: failures are logged, never surfaced.
type SyslogEmitter struct {
	network  string
	address  string
	facility int
	hostname string
	appName  string

	mu   sync.Mutex
	conn net.Conn
}

// NewSyslogEmitter creates an emitter, or nil when the transport is "none".
func NewSyslogEmitter(cfg config.SyslogConfig, serviceName string) *SyslogEmitter {
	if cfg.Transport == config.SyslogNone || cfg.Address == "" {
		return nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "-"
	}

	return &SyslogEmitter{
		network:  string(cfg.Transport),
		address:  cfg.Address,
		facility: cfg.Facility,
		hostname: hostname,
		appName:  serviceName,
	}
}

// Emit formats and sends one event. A failed write triggers a single
// reconnect attempt before giving up.
func (e *SyslogEmitter) Emit(event *Event) {
	msg := e.format(event)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		if err := e.dialLocked(); err != nil {
			logger.Warnw("syslog dial failed", "address", e.address, "error", err)
			return
		}
	}

	if _, err := e.conn.Write([]byte(msg)); err != nil {
		_ = e.conn.Close()
		e.conn = nil
		if dialErr := e.dialLocked(); dialErr != nil {
			logger.Warnw("syslog emission failed", "error", err)
			return
		}
		if _, err := e.conn.Write([]byte(msg)); err != nil {
			logger.Warnw("syslog emission failed after reconnect", "error", err)
		}
	}
}

func (e *SyslogEmitter) dialLocked() error {
	conn, err := net.DialTimeout(e.network, e.address, 3*time.Second)
	if err != nil {
		return err
	}
	e.conn = conn
	return nil
}

// Close shuts the connection down.
func (e *SyslogEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}

// format renders the RFC 5424 message. TCP framing uses a trailing newline
// (non-transparent framing); UDP carries one message per datagram.
func (e *SyslogEmitter) format(event *Event) string {
	pri := e.facility*8 + int(event.Severity)

	var sd strings.Builder
	sd.WriteString("[" + sdID)
	writeSDParam(&sd, "src_ip", event.Source.IP)
	writeSDParam(&sd, "subject", event.Source.Subject)
	writeSDParam(&sd, "request_id", event.Source.RequestID)
	writeSDParam(&sd, "method", event.Method)
	writeSDParam(&sd, "path", event.Path)
	if event.StatusCode > 0 {
		writeSDParam(&sd, "status", fmt.Sprintf("%d", event.StatusCode))
	}
	writeSDParam(&sd, "duration_ms", fmt.Sprintf("%d", event.DurationMS))
	writeSDParam(&sd, "hash", event.Hash)
	writeSDParam(&sd, "seq", fmt.Sprintf("%d", event.Sequence))
	sd.WriteString("]")

	return fmt.Sprintf("<%d>1 %s %s %s %d %s %s %s\n",
		pri,
		event.Timestamp.Format(time.RFC3339Nano),
		e.hostname,
		e.appName,
		os.Getpid(),
		event.Kind,
		sd.String(),
		event.ID,
	)
}

var sdEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `]`, `\]`)

func writeSDParam(sd *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	sd.WriteString(" " + name + `="` + sdEscaper.Replace(value) + `"`)
}
