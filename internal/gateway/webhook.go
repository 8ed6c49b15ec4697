package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const SignatureHeader = "Stripe-Signature"

var ErrInvalidSignature = errors.New("invalid webhook signature")

// EventKind is the closed set of confirmation events the service acts on.
type EventKind int

const (
	KindUnrecognized EventKind = iota
	KindCheckoutCompleted
	KindAsyncPaymentSucceeded
)

func (k EventKind) String() string {
	switch k {
	case KindCheckoutCompleted:
		return "checkout.session.completed"
	case KindAsyncPaymentSucceeded:
		return "checkout.session.async_payment_succeeded"
	}
	return "unrecognized"
}

func parseKind(eventType string) EventKind {
	switch eventType {
	case "checkout.session.completed":
		return KindCheckoutCompleted
	case "checkout.session.async_payment_succeeded":
		return KindAsyncPaymentSucceeded
	default:
		return KindUnrecognized
	}
}

type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object EventObject `json:"object"`
	} `json:"data"`
}

type EventObject struct {
	ID                string            `json:"id"`
	PaymentStatus     string            `json:"payment_status"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

func (e *Event) Kind() EventKind { return parseKind(e.Type) }

// PaymentCompleted reports whether the event represents money collected.
// A completed checkout paid by a delayed method arrives unpaid and is
// followed by an async_payment_succeeded event.
func (e *Event) PaymentCompleted() bool {
	switch e.Kind() {
	case KindCheckoutCompleted:
		switch e.Data.Object.PaymentStatus {
		case "paid", "no_payment_required":
			return true
		}
		return false
	case KindAsyncPaymentSucceeded:
		return true
	default:
		return false
	}
}

// ReservationID returns the correlation token echoed from session metadata.
func (e *Event) ReservationID() string {
	return strings.TrimSpace(e.Data.Object.Metadata[metadataReservationID])
}

// VerifySignature checks a "t=<unix>,v1=<hex>" header against the raw
// payload. Any v1 entry may match, which allows secret rotation. A zero
// tolerance disables the timestamp check.
func VerifySignature(payload []byte, header string, secret []byte, tolerance time.Duration, now time.Time) error {
	if len(secret) == 0 {
		return fmt.Errorf("%w: no secret configured", ErrInvalidSignature)
	}
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age < 0 {
			age = -age
		}
		if age > tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}

	expected := computeSignature(payload, timestamp, secret)
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", ErrInvalidSignature)
}

// SignPayload produces a header value accepted by VerifySignature.
func SignPayload(payload []byte, secret []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(computeSignature(payload, ts, secret)))
}

func computeSignature(payload []byte, timestamp int64, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (int64, [][]byte, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing header", ErrInvalidSignature)
	}

	var (
		timestamp  int64
		haveTS     bool
		signatures [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			timestamp = ts
			haveTS = true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	if !haveTS {
		return 0, nil, fmt.Errorf("%w: missing timestamp", ErrInvalidSignature)
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: missing v1 signature", ErrInvalidSignature)
	}
	return timestamp, signatures, nil
}
