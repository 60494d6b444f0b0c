// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/Thermoquad/ancstat/pkg/bridge"
	log "github.com/sirupsen/logrus"
)

// analysis is the outcome of processing one decoder event
type analysis struct {
	frame     *bridge.Frame
	frameErr  error
	decodeErr error

	// message is the decoded value: an ancs.Notification, a Control Point
	// request, or a complete Data Source response
	message   interface{}
	anomalies []ancs.ValidationError

	// fragment is set when a Data Source value was buffered and the
	// response is not complete yet
	fragment bool
}

// failed reports whether the event carries any error or anomaly
func (a analysis) failed() bool {
	return a.frameErr != nil || a.decodeErr != nil || len(a.anomalies) > 0
}

// pendingRequest is an attribute request waiting for its Data Source response
type pendingRequest struct {
	notification *ancs.NotificationResponseAssembler
	app          *ancs.AppResponseAssembler
	sent         time.Time
	acked        bool
}

// trafficAnalyzer decodes bridge frames, pairs Data Source responses with
// the requests that asked for them and keeps statistics. It is not safe for
// concurrent use.
type trafficAnalyzer struct {
	stats *bridge.Statistics

	// Outstanding attribute requests, oldest first. The notification
	// provider answers Control Point writes in order.
	pending []*pendingRequest
}

func newTrafficAnalyzer() *trafficAnalyzer {
	return &trafficAnalyzer{stats: bridge.NewStatistics()}
}

// expect registers a request whose response will arrive on the Data Source.
// Perform Notification Action requests have no Data Source response but
// still take a WRITE_RESULT.
func (a *trafficAnalyzer) expect(req ancs.ControlPointRequest) {
	p := &pendingRequest{sent: time.Now()}
	switch r := req.(type) {
	case ancs.GetNotificationAttributesRequest:
		p.notification = ancs.NewNotificationResponseAssembler(r)
	case ancs.GetAppAttributesRequest:
		p.app = ancs.NewAppResponseAssembler(r)
	}
	a.pending = append(a.pending, p)
}

// outstanding returns the number of requests without a response
func (a *trafficAnalyzer) outstanding() int {
	return len(a.pending)
}

// expire drops requests older than maxAge and returns how many were dropped
func (a *trafficAnalyzer) expire(maxAge time.Duration) int {
	kept := a.pending[:0]
	for _, p := range a.pending {
		if time.Since(p.sent) <= maxAge {
			kept = append(kept, p)
		}
	}
	dropped := len(a.pending) - len(kept)
	a.pending = kept
	return dropped
}

// process analyzes one decoder event and updates the statistics
func (a *trafficAnalyzer) process(ev frameEvent) analysis {
	if ev.err != nil {
		a.stats.Update(nil, ev.err, nil, nil)
		return analysis{frameErr: ev.err}
	}

	f := ev.frame
	result := analysis{frame: f}
	if err := f.ParseError(); err != nil {
		a.stats.Update(f, nil, nil, nil)
		result.decodeErr = err
		return result
	}

	switch f.Type() {
	case bridge.MsgNotify:
		c, _ := f.Characteristic()
		if c == ancs.DataSource {
			a.processDataSource(&result)
			return result
		}
		result.message, result.decodeErr = f.Decode()

	case bridge.MsgWrite:
		// Another host's request, seen through a sniffing bridge
		result.message, result.decodeErr = f.Decode()
		if req, ok := result.message.(ancs.ControlPointRequest); ok {
			a.expect(req)
		}

	case bridge.MsgWriteResult:
		a.acknowledge(f.WriteError())

	case bridge.MsgLinkState:
		if connected, ok := f.Connected(); ok && !connected && len(a.pending) > 0 {
			log.WithField("dropped", len(a.pending)).Debug("link down, dropping outstanding requests")
			a.pending = nil
		}
	}

	a.stats.Update(f, nil, result.decodeErr, nil)
	return result
}

// acknowledge applies a WRITE_RESULT to the oldest unacknowledged request.
// A rejected request will never be answered, so it is dropped.
func (a *trafficAnalyzer) acknowledge(writeErr error) {
	for i, p := range a.pending {
		if p.acked {
			continue
		}
		if writeErr != nil || (p.notification == nil && p.app == nil) {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return
		}
		p.acked = true
		return
	}
}

func (a *trafficAnalyzer) processDataSource(result *analysis) {
	f := result.frame
	value, _ := f.Value()

	head := a.nextAttributeRequest()
	if head == nil {
		// Nothing asked for this; decode it as a single-fragment response
		result.message, result.decodeErr = f.Decode()
		a.stats.Update(f, nil, result.decodeErr, nil)
		return
	}

	var (
		resp     interface{}
		complete bool
		err      error
	)
	if head.notification != nil {
		var r ancs.GetNotificationAttributesResponse
		r, complete, err = head.notification.Feed(value)
		if complete {
			resp = r
			result.anomalies = ancs.ValidateNotificationResponse(head.notification.Request(), r)
		}
	} else {
		var r ancs.GetAppAttributesResponse
		r, complete, err = head.app.Feed(value)
		if complete {
			resp = r
			result.anomalies = ancs.ValidateAppResponse(head.app.Request(), r)
		}
	}

	switch {
	case err != nil:
		result.decodeErr = err
		a.removePending(head)
		a.stats.Update(f, nil, err, nil)
	case complete:
		result.message = resp
		a.removePending(head)
		a.stats.Update(f, nil, nil, nil)
		a.stats.RecordReassembly(result.anomalies)
	default:
		result.fragment = true
		a.stats.Update(f, nil, nil, nil)
	}
}

// nextAttributeRequest returns the oldest request expecting a Data Source
// response
func (a *trafficAnalyzer) nextAttributeRequest() *pendingRequest {
	for _, p := range a.pending {
		if p.notification != nil || p.app != nil {
			return p
		}
	}
	return nil
}

func (a *trafficAnalyzer) removePending(target *pendingRequest) {
	for i, p := range a.pending {
		if p == target {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return
		}
	}
}
