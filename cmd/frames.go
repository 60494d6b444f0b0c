// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/Thermoquad/ancstat/pkg/bridge"
	log "github.com/sirupsen/logrus"
)

// maxReadErrors is how many consecutive transient read errors a serial
// connection may return before it is treated as lost
const maxReadErrors = 50

// frameEvent is one decoder result: a frame or a framing error
type frameEvent struct {
	frame *bridge.Frame
	err   error
}

// readFrames decodes bridge frames from conn until the connection fails or
// done is closed. The events channel is closed when reading stops and the
// cause (nil on shutdown) is sent on the error channel.
func readFrames(conn Connection, done <-chan struct{}) (<-chan frameEvent, <-chan error) {
	events := make(chan frameEvent, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		decoder := bridge.NewDecoder()
		buf := make([]byte, 256)
		readErrors := 0

		for {
			select {
			case <-done:
				errc <- nil
				return
			default:
			}

			n, err := conn.Read(buf)
			if err != nil {
				select {
				case <-done:
					errc <- nil
					return
				default:
				}
				if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
					errc <- err
					return
				}
				readErrors++
				if readErrors >= maxReadErrors {
					errc <- fmt.Errorf("read failed %d times: %w", readErrors, err)
					return
				}
				log.WithError(err).Debug("transient read error")
				time.Sleep(10 * time.Millisecond)
				continue
			}
			readErrors = 0

			frames, errs := decoder.Decode(buf[:n])
			for _, e := range errs {
				if !send(events, frameEvent{err: e}, done) {
					errc <- nil
					return
				}
			}
			for _, f := range frames {
				if !send(events, frameEvent{frame: f}, done) {
					errc <- nil
					return
				}
			}
		}
	}()

	return events, errc
}

func send(events chan<- frameEvent, ev frameEvent, done <-chan struct{}) bool {
	select {
	case events <- ev:
		return true
	case <-done:
		return false
	}
}

// frameSync ignores framing errors until the first valid frame, since
// attaching mid-stream always produces garbage
type frameSync struct {
	synchronized bool
	skipped      int
}

// observe reports whether ev should be processed, and whether it is the
// frame that synchronized the stream
func (s *frameSync) observe(ev frameEvent) (process, synced bool) {
	if s.synchronized {
		return true, false
	}
	if ev.err != nil {
		s.skipped++
		return false, false
	}
	s.synchronized = true
	return true, true
}

func (s *frameSync) reset() {
	*s = frameSync{}
}

// writeRequest sends a Control Point request to the bridge as a WRITE frame
func writeRequest(conn Connection, req ancs.ControlPointRequest) error {
	frame, err := bridge.NewWriteFrame(req)
	if err != nil {
		return fmt.Errorf("encode %s: %w", req.Command(), err)
	}
	wire, err := bridge.EncodeFrame(frame)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", req.Command(), err)
	}
	if _, err := conn.Write(wire); err != nil {
		return fmt.Errorf("write %s: %w", req.Command(), err)
	}
	log.WithFields(log.Fields{"command": req.Command().String(), "bytes": len(wire)}).Debug("sent control point request")
	return nil
}

// dataSourceValue returns the value of a Data Source NOTIFY frame
func dataSourceValue(f *bridge.Frame) ([]byte, bool) {
	if f.ParseError() != nil || f.Type() != bridge.MsgNotify {
		return nil, false
	}
	if c, ok := f.Characteristic(); !ok || c != ancs.DataSource {
		return nil, false
	}
	return f.Value()
}
