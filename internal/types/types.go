// =============================================================================
// Journal Batch Upload - Shared Types
// =============================================================================
//
// This package contains the draft model shared by the ingestion pipeline,
// the validator, the payload builder and the editing session. Keeping the
// types here avoids import cycles between those packages.
//
// MODEL:
//   BatchDraft
//   └── HeaderDraft (one accounting document, in spreadsheet order)
//       └── ItemDraft (one line item, in spreadsheet order)
//
// Validation state is NOT stored on the records. It lives in a side-table
// (StateTable) keyed by FieldRef, so it can never leak into the payload.
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when a field name does not exist on a record.
var ErrUnknownField = errors.New("unknown field")

// DefaultLedgerGroup is used when the header data row leaves the ledger group blank.
const DefaultLedgerGroup = "0L"

// =============================================================================
// FIELD NAMES
// =============================================================================
// Field names are the wire names used by the receiving service.

const (
	FieldCompanyCode  = "CompanyCode"
	FieldDocType      = "DocType"
	FieldDocDate      = "DocDate"
	FieldPostDate     = "PostDate"
	FieldFiscalPeriod = "FiscalPeriod"
	FieldDocText      = "DocText"
	FieldCurrency     = "Currency"
	FieldLedgerGroup  = "LedgerGroup"
	FieldRefDocNo     = "RefDocNo"
	FieldBusinessArea = "BusinessArea"
	FieldAutoCalcTax  = "AutoCalcTax"

	FieldGlAccount      = "GlAccount"
	FieldItemText       = "ItemText"
	FieldAmountDebit    = "AmountDebit"
	FieldAmountCredit   = "AmountCredit"
	FieldAmountLc1      = "AmountLc1"
	FieldTaxCode        = "TaxCode"
	FieldOrderNumber    = "OrderNumber"
	FieldValueDate      = "ValueDate"
	FieldHouseBank      = "HouseBank"
	FieldBankAccountID  = "BankAccountId"
	FieldAssignmentNo   = "AssignmentNo"
	FieldTradingPartner = "TradingPartner"
)

// HeaderFields lists the header fields in column order.
var HeaderFields = []string{
	FieldCompanyCode, FieldDocType, FieldDocDate, FieldPostDate, FieldFiscalPeriod,
	FieldDocText, FieldCurrency, FieldLedgerGroup, FieldRefDocNo, FieldBusinessArea,
	FieldAutoCalcTax,
}

// ItemFields lists the item fields in column order.
var ItemFields = []string{
	FieldCompanyCode, FieldGlAccount, FieldItemText, FieldAmountDebit, FieldAmountCredit,
	FieldAmountLc1, FieldTaxCode, FieldOrderNumber, FieldValueDate, FieldHouseBank,
	FieldBankAccountID, FieldAssignmentNo, FieldTradingPartner,
}

// AmountFields are the three item amounts covered by the at-least-one rule.
var AmountFields = []string{FieldAmountDebit, FieldAmountCredit, FieldAmountLc1}

// IsDateField reports whether the field carries a canonical date marker.
func IsDateField(field string) bool {
	switch field {
	case FieldDocDate, FieldPostDate, FieldValueDate:
		return true
	}
	return false
}

// IsAmountField reports whether the field is one of the three item amounts.
func IsAmountField(field string) bool {
	switch field {
	case FieldAmountDebit, FieldAmountCredit, FieldAmountLc1:
		return true
	}
	return false
}

// =============================================================================
// DRAFT RECORDS
// =============================================================================

// BatchDraft is the root aggregate of one editing session.
type BatchDraft struct {
	FileName     string        `json:"FileName"`
	FileMimeType string        `json:"FileMimeType"`
	Note         string        `json:"Note"`
	Headers      []HeaderDraft `json:"ToHeaders"`

	// States is the validation side-table. It is never serialized.
	States StateTable `json:"-"`
}

// NewBatchDraft returns an empty draft.
func NewBatchDraft() *BatchDraft {
	return &BatchDraft{
		Headers: []HeaderDraft{},
		States:  StateTable{},
	}
}

// ItemCount returns the number of items across all headers.
func (b *BatchDraft) ItemCount() int {
	n := 0
	for i := range b.Headers {
		n += len(b.Headers[i].Items)
	}
	return n
}

// HeaderDraft is one accounting document draft.
//
// Dates are either empty (absent) or a canonical /Date(ms)/ marker.
type HeaderDraft struct {
	CompanyCode  string `json:"CompanyCode" validate:"present"`
	DocType      string `json:"DocType" validate:"present"`
	DocDate      string `json:"DocDate" validate:"present"`
	PostDate     string `json:"PostDate" validate:"present"`
	FiscalPeriod string `json:"FiscalPeriod" validate:"present"`
	DocText      string `json:"DocText" validate:"present"`
	Currency     string `json:"Currency" validate:"present"`
	LedgerGroup  string `json:"LedgerGroup"`
	RefDocNo     string `json:"RefDocNo" validate:"present"`
	BusinessArea string `json:"BusinessArea" validate:"present"`
	AutoCalcTax  string `json:"AutoCalcTax"`

	Items []ItemDraft `json:"ToItems" validate:"-"`

	// SourceRow is the 0-indexed row of the header marker. Zero for
	// headers that did not come from a spreadsheet.
	SourceRow int `json:"-"`
}

// ItemDraft is one line item under a header.
//
// Amounts keep the text the user entered; they are canonicalized only when
// the payload is built.
type ItemDraft struct {
	CompanyCode    string `json:"CompanyCode"`
	GlAccount      string `json:"GlAccount" validate:"present"`
	ItemText       string `json:"ItemText" validate:"present"`
	AmountDebit    string `json:"AmountDebit"`
	AmountCredit   string `json:"AmountCredit"`
	AmountLc1      string `json:"AmountLc1"`
	TaxCode        string `json:"TaxCode"`
	OrderNumber    string `json:"OrderNumber"`
	ValueDate      string `json:"ValueDate"`
	HouseBank      string `json:"HouseBank" validate:"present"`
	BankAccountID  string `json:"BankAccountId" validate:"present"`
	AssignmentNo   string `json:"AssignmentNo"`
	TradingPartner string `json:"TradingPartner"`

	SourceRow int `json:"-"`
}

// =============================================================================
// FIELD ACCESS
// =============================================================================

func (h *HeaderDraft) fieldPtr(field string) (*string, error) {
	switch field {
	case FieldCompanyCode:
		return &h.CompanyCode, nil
	case FieldDocType:
		return &h.DocType, nil
	case FieldDocDate:
		return &h.DocDate, nil
	case FieldPostDate:
		return &h.PostDate, nil
	case FieldFiscalPeriod:
		return &h.FiscalPeriod, nil
	case FieldDocText:
		return &h.DocText, nil
	case FieldCurrency:
		return &h.Currency, nil
	case FieldLedgerGroup:
		return &h.LedgerGroup, nil
	case FieldRefDocNo:
		return &h.RefDocNo, nil
	case FieldBusinessArea:
		return &h.BusinessArea, nil
	case FieldAutoCalcTax:
		return &h.AutoCalcTax, nil
	}
	return nil, fmt.Errorf("header field %q: %w", field, ErrUnknownField)
}

// Get returns the value of a header field by wire name.
func (h *HeaderDraft) Get(field string) (string, error) {
	p, err := h.fieldPtr(field)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// Set assigns a header field by wire name.
func (h *HeaderDraft) Set(field, value string) error {
	p, err := h.fieldPtr(field)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

func (it *ItemDraft) fieldPtr(field string) (*string, error) {
	switch field {
	case FieldCompanyCode:
		return &it.CompanyCode, nil
	case FieldGlAccount:
		return &it.GlAccount, nil
	case FieldItemText:
		return &it.ItemText, nil
	case FieldAmountDebit:
		return &it.AmountDebit, nil
	case FieldAmountCredit:
		return &it.AmountCredit, nil
	case FieldAmountLc1:
		return &it.AmountLc1, nil
	case FieldTaxCode:
		return &it.TaxCode, nil
	case FieldOrderNumber:
		return &it.OrderNumber, nil
	case FieldValueDate:
		return &it.ValueDate, nil
	case FieldHouseBank:
		return &it.HouseBank, nil
	case FieldBankAccountID:
		return &it.BankAccountID, nil
	case FieldAssignmentNo:
		return &it.AssignmentNo, nil
	case FieldTradingPartner:
		return &it.TradingPartner, nil
	}
	return nil, fmt.Errorf("item field %q: %w", field, ErrUnknownField)
}

// Get returns the value of an item field by wire name.
func (it *ItemDraft) Get(field string) (string, error) {
	p, err := it.fieldPtr(field)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// Set assigns an item field by wire name.
func (it *ItemDraft) Set(field, value string) error {
	p, err := it.fieldPtr(field)
	if err != nil {
		return err
	}
	*p = value
	return nil
}
