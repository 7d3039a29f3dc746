// Package apitypes holds the JSON shapes exchanged over the control API.
package apitypes

import "fmt"

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

// StatusResponse mirrors the bridge session state.
type StatusResponse struct {
	Mode               string `json:"mode"`
	Charter            bool   `json:"charter"`
	Status             string `json:"status"`
	Command            string `json:"command"`
	Message            string `json:"message"`
	MessageRemaining   int    `json:"messageRemaining"`
	CharterText        string `json:"charterText"`
	Peer               string `json:"peer,omitempty"`
	PeerFrames         int    `json:"peerFrames"`
	CharterUploadBytes int    `json:"charterUploadBytes"`
}

type MessageSetRequest struct {
	Text string `json:"text"`
}

type MessageSetResponse struct {
	Reports int `json:"reports"`
}

type MessageResponse struct {
	Mode             string `json:"mode"`
	MessageRemaining int    `json:"messageRemaining"`
}

type CharterSetRequest struct {
	Text string `json:"text"`
}

type CharterSetResponse struct {
	Chars int `json:"chars"`
}

type CommandResponse struct {
	Command string `json:"command"`
	Status  string `json:"status"`
}
