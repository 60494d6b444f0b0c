// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"errors"
	"fmt"
)

// A Data Source response larger than the ATT MTU arrives as several GATT
// notifications. The assemblers below buffer those fragments until the
// response holds one attribute per requested id.

// NotificationResponseAssembler reassembles the answer to a
// GetNotificationAttributesRequest
type NotificationResponseAssembler struct {
	request GetNotificationAttributesRequest
	buffer  []byte
}

// NewNotificationResponseAssembler creates an assembler for the response to req
func NewNotificationResponseAssembler(req GetNotificationAttributesRequest) *NotificationResponseAssembler {
	return &NotificationResponseAssembler{request: req}
}

// Request returns the request this assembler is answering
func (a *NotificationResponseAssembler) Request() GetNotificationAttributesRequest {
	return a.request
}

// Buffered returns the number of bytes received so far
func (a *NotificationResponseAssembler) Buffered() int {
	return len(a.buffer)
}

// Reset discards buffered fragments
func (a *NotificationResponseAssembler) Reset() {
	a.buffer = a.buffer[:0]
}

// Feed appends a fragment. It returns complete=true with the response once
// every requested attribute has arrived. On error the buffer is discarded.
func (a *NotificationResponseAssembler) Feed(fragment []byte) (resp GetNotificationAttributesResponse, complete bool, err error) {
	a.buffer = append(a.buffer, fragment...)

	resp, err = ParseGetNotificationAttributesResponse(a.buffer)
	if err != nil {
		if isIncomplete(err) {
			return GetNotificationAttributesResponse{}, false, nil
		}
		a.Reset()
		return GetNotificationAttributesResponse{}, false, err
	}

	want := len(a.request.Attributes)
	switch got := len(resp.Attributes); {
	case got < want:
		return GetNotificationAttributesResponse{}, false, nil
	case got > want:
		a.Reset()
		return GetNotificationAttributesResponse{}, false,
			fmt.Errorf("%w: %d attributes, requested %d", ErrTrailingInput, got, want)
	}

	a.Reset()
	return resp, true, nil
}

// AppResponseAssembler reassembles the answer to a GetAppAttributesRequest
type AppResponseAssembler struct {
	request GetAppAttributesRequest
	buffer  []byte
}

// NewAppResponseAssembler creates an assembler for the response to req
func NewAppResponseAssembler(req GetAppAttributesRequest) *AppResponseAssembler {
	return &AppResponseAssembler{request: req}
}

// Request returns the request this assembler is answering
func (a *AppResponseAssembler) Request() GetAppAttributesRequest {
	return a.request
}

// Buffered returns the number of bytes received so far
func (a *AppResponseAssembler) Buffered() int {
	return len(a.buffer)
}

// Reset discards buffered fragments
func (a *AppResponseAssembler) Reset() {
	a.buffer = a.buffer[:0]
}

// Feed appends a fragment. It returns complete=true with the response once
// every requested attribute has arrived. On error the buffer is discarded.
func (a *AppResponseAssembler) Feed(fragment []byte) (resp GetAppAttributesResponse, complete bool, err error) {
	a.buffer = append(a.buffer, fragment...)

	resp, err = ParseGetAppAttributesResponse(a.buffer)
	if err != nil {
		if isIncomplete(err) {
			return GetAppAttributesResponse{}, false, nil
		}
		a.Reset()
		return GetAppAttributesResponse{}, false, err
	}

	want := len(a.request.Attributes)
	switch got := len(resp.Attributes); {
	case got < want:
		return GetAppAttributesResponse{}, false, nil
	case got > want:
		a.Reset()
		return GetAppAttributesResponse{}, false,
			fmt.Errorf("%w: %d attributes, requested %d", ErrTrailingInput, got, want)
	}

	a.Reset()
	return resp, true, nil
}

// isIncomplete reports whether a parse failed only because more bytes are
// needed
func isIncomplete(err error) bool {
	return errors.Is(err, ErrTruncatedInput) || errors.Is(err, ErrTrailingInput)
}
