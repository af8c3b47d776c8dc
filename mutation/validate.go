// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/NighttoDev/Smeraldo-Hotel/roomstatus"
)

// Validation error sentinels for better error mapping.
var (
	ErrUnknownKind = errors.New("unknown mutation kind")
	ErrBadPayload  = errors.New("bad payload")
	ErrInvalidItem = errors.New("invalid queue item")
)

// validate is the shared validator instance for payload schemas.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("roomstatus", func(fl validator.FieldLevel) bool {
		return roomstatus.Valid(roomstatus.Status(fl.Field().String()))
	})
	// Shift values come from a fixed discrete set; oneof does not cover
	// float fields so this gets its own validation.
	_ = validate.RegisterValidation("shift", func(fl validator.FieldLevel) bool {
		switch fl.Field().Float() {
		case 0, 0.5, 1, 1.5:
			return true
		}
		return false
	})
}

// DecodePayload parses and validates a raw payload against the schema of the
// given kind, returning the typed variant. Each rejection carries a specific
// reason, never a generic failure.
func DecodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload for kind %q", ErrBadPayload, kind)
	}

	var p Payload
	switch kind {
	case KindRoomOverride:
		p = &RoomOverridePayload{}
	case KindAttendance:
		p = &AttendancePayload{}
	case KindStockIn:
		p = &StockInPayload{}
	case KindStockOut:
		p = &StockOutPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("%w: malformed %s payload: %v", ErrBadPayload, kind, err)
	}
	if err := ValidatePayload(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidatePayload checks a typed payload against its field constraints.
func ValidatePayload(p Payload) error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s payload field %s fails %q constraint",
				ErrBadPayload, p.Kind(), fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// EncodePayload validates a typed payload and marshals it for storage or
// transport.
func EncodePayload(p Payload) (json.RawMessage, error) {
	if err := ValidatePayload(p); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return raw, nil
}

// ValidateItem checks a complete queue item: id present, retries
// non-negative, kind known, and payload valid for that kind.
func ValidateItem(item *QueueItem) error {
	if item.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if item.Retries < 0 {
		return fmt.Errorf("%w: negative retry count", ErrInvalidItem)
	}
	if item.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidItem)
	}
	if _, err := DecodePayload(item.Kind, item.Payload); err != nil {
		return err
	}
	return nil
}
