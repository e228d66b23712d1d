package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindCommand     MessageKind = "command"
	KindTransaction MessageKind = "transaction"
	KindIncome      MessageKind = "income"
	KindCorrection  MessageKind = "correction"
	KindUnclear     MessageKind = "unclear"
	KindUndo        MessageKind = "undo_request"
)

type (
	MessageKind string

	// StagedMessage is an inbound, not-yet-categorized candidate transaction.
	// Rows are append-only; the only mutation ever applied is the processed
	// flag flipping false to true.
	StagedMessage struct {
		ID          int64
		UserID      int64
		RawText     string
		Kind        MessageKind
		Amount      *decimal.Decimal // nil when no amount could be extracted
		Currency    string
		Description string
		IsIncome    *bool // nil means undetermined
		Confidence  int
		Processed   bool
		CreatedAt   time.Time
	}

	// LedgerTransaction is a fully categorized transaction. Never mutated
	// after insert; corrections produce new rows.
	LedgerTransaction struct {
		ID              int64
		StagedMessageID int64
		Timestamp       time.Time
		Amount          decimal.Decimal
		Currency        string
		Description     string
		Category        string
		IsIncome        bool
		RawText         string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyRawText     = errors.New("empty raw text")
	ErrInvalidKind      = errors.New("invalid message kind")
	ErrUnknownCategory  = errors.New("unknown category")
)

func (k MessageKind) Validate() error {
	switch k {
	case KindCommand, KindTransaction, KindIncome, KindCorrection, KindUnclear, KindUndo:
		return nil
	}
	return ErrInvalidKind
}

func (m StagedMessage) Validate() error {
	if strings.TrimSpace(m.RawText) == "" {
		return ErrEmptyRawText
	}
	if err := m.Kind.Validate(); err != nil {
		return err
	}
	if m.Amount != nil {
		if m.Amount.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if strings.TrimSpace(m.Currency) == "" {
			return errors.New("amount without currency")
		}
	}
	return nil
}

// Eligible reports whether the message belongs in the categorization queue.
// Commands, undo requests and amount-less rows are kept for audit only.
func (m StagedMessage) Eligible() bool {
	if m.Amount == nil {
		return false
	}
	switch m.Kind {
	case KindCommand, KindUndo:
		return false
	}
	return true
}

func (t LedgerTransaction) Validate() error {
	if t.StagedMessageID <= 0 {
		return errors.New("missing staged message reference")
	}
	if t.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if !IsKnownCategory(t.Category) {
		return ErrUnknownCategory
	}
	return nil
}
