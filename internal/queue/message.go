package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

const messageVersion = 1

// Message is the broker payload for one job reference.
type Message struct {
	JobID      string `json:"jobId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a reference with the current time and codec version.
func NewMessage(ref string) Message {
	return Message{
		JobID:      ref,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    messageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// MessageMeta captures details useful for logging undecodable bodies.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingJobID indicates a message without a job reference.
type ErrMissingJobID struct {
	Meta MessageMeta
}

func (e ErrMissingJobID) Error() string { return "missing job id" }

// ParseMessage validates and decodes a broker body into a job reference.
func ParseMessage(body string) (string, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return "", meta, ErrEmptyBody{Meta: meta}
	}
	msg, err := DecodeMessage([]byte(body))
	if err != nil {
		return "", meta, ErrDecode{Meta: meta, Err: err}
	}
	ref := strings.TrimSpace(msg.JobID)
	if ref == "" {
		return "", meta, ErrMissingJobID{Meta: meta}
	}
	return ref, meta, nil
}
