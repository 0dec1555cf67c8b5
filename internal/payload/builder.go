// =============================================================================
// Journal Batch Upload - Payload Builder
// =============================================================================
//
// Turns a validated BatchDraft into the transfer document sent to the
// receiving service.
//
// BUILD STEPS:
//   1. Dates go through the lenient date path (markers pass through, other
//      parseable dates are reduced to UTC midnight, the rest become null).
//   2. The three item amounts go through the amount canonicalizer.
//   3. File metadata is attached; the MIME type is cut to 40 characters.
//
// The payload types below have no validation-state fields, so nothing from
// the draft's StateTable can reach the wire.
//
// The builder does not validate. Callers gate on the validator first; a
// draft whose state table still holds errors is refused with
// ErrInvalidDraft.
//
// =============================================================================

package payload

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ginjaninja78/journal-batch-upload/internal/canon"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
)

// ErrInvalidDraft is returned when the draft still carries Error states.
var ErrInvalidDraft = errors.New("draft has unresolved validation errors")

const (
	// MaxMimeTypeLength is the longest MIME type the service stores.
	MaxMimeTypeLength = 40

	DefaultMimeType = "application/octet-stream"
)

// =============================================================================
// PAYLOAD TYPES
// =============================================================================

// Batch is the transfer document.
type Batch struct {
	FileName     string   `json:"FileName"`
	FileMimeType string   `json:"FileMimeType"`
	FileContent  string   `json:"FileContent"`
	Note         string   `json:"Note"`
	Headers      []Header `json:"ToHeaders"`
}

// Header is one accounting document. Absent dates are null.
type Header struct {
	CompanyCode  string  `json:"CompanyCode"`
	DocType      string  `json:"DocType"`
	DocDate      *string `json:"DocDate"`
	PostDate     *string `json:"PostDate"`
	FiscalPeriod string  `json:"FiscalPeriod"`
	DocText      string  `json:"DocText"`
	Currency     string  `json:"Currency"`
	LedgerGroup  string  `json:"LedgerGroup"`
	RefDocNo     string  `json:"RefDocNo"`
	BusinessArea string  `json:"BusinessArea"`
	AutoCalcTax  string  `json:"AutoCalcTax"`
	Items        []Item  `json:"ToItems"`
}

// Item is one line item. Amounts are two-decimal strings.
type Item struct {
	CompanyCode    string  `json:"CompanyCode"`
	GlAccount      string  `json:"GlAccount"`
	ItemText       string  `json:"ItemText"`
	AmountDebit    string  `json:"AmountDebit"`
	AmountCredit   string  `json:"AmountCredit"`
	AmountLc1      string  `json:"AmountLc1"`
	TaxCode        string  `json:"TaxCode"`
	OrderNumber    string  `json:"OrderNumber"`
	ValueDate      *string `json:"ValueDate"`
	HouseBank      string  `json:"HouseBank"`
	BankAccountID  string  `json:"BankAccountId"`
	AssignmentNo   string  `json:"AssignmentNo"`
	TradingPartner string  `json:"TradingPartner"`
}

// ItemCount returns the number of items across all headers.
func (b *Batch) ItemCount() int {
	n := 0
	for i := range b.Headers {
		n += len(b.Headers[i].Items)
	}
	return n
}

// JSON returns the request body for the create call.
func (b *Batch) JSON() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// =============================================================================
// BUILDER
// =============================================================================

// Build assembles the transfer document from draft and the base64 encoded
// file content.
//
// RETURNS:
//   - The payload.
//   - ErrInvalidDraft if draft.States holds any Error.
func Build(draft *types.BatchDraft, fileContent string) (*Batch, error) {
	if draft == nil {
		return nil, fmt.Errorf("nil draft: %w", ErrInvalidDraft)
	}
	if draft.States.HasErrors() {
		return nil, fmt.Errorf("%d field(s) in error: %w", len(draft.States.Errors()), ErrInvalidDraft)
	}

	batch := &Batch{
		FileName:     draft.FileName,
		FileMimeType: TruncateMimeType(draft.FileMimeType),
		FileContent:  fileContent,
		Note:         draft.Note,
		Headers:      make([]Header, 0, len(draft.Headers)),
	}
	for i := range draft.Headers {
		batch.Headers = append(batch.Headers, buildHeader(&draft.Headers[i]))
	}
	return batch, nil
}

// TruncateMimeType applies the default and the length limit.
func TruncateMimeType(mime string) string {
	if mime == "" {
		return DefaultMimeType
	}
	if len(mime) > MaxMimeTypeLength {
		return mime[:MaxMimeTypeLength]
	}
	return mime
}

func buildHeader(h *types.HeaderDraft) Header {
	out := Header{
		CompanyCode:  h.CompanyCode,
		DocType:      h.DocType,
		DocDate:      date(h.DocDate),
		PostDate:     date(h.PostDate),
		FiscalPeriod: h.FiscalPeriod,
		DocText:      h.DocText,
		Currency:     h.Currency,
		LedgerGroup:  h.LedgerGroup,
		RefDocNo:     h.RefDocNo,
		BusinessArea: h.BusinessArea,
		AutoCalcTax:  h.AutoCalcTax,
		Items:        make([]Item, 0, len(h.Items)),
	}
	for i := range h.Items {
		out.Items = append(out.Items, buildItem(&h.Items[i]))
	}
	return out
}

func buildItem(it *types.ItemDraft) Item {
	return Item{
		CompanyCode:    it.CompanyCode,
		GlAccount:      it.GlAccount,
		ItemText:       it.ItemText,
		AmountDebit:    canon.ToAmount(it.AmountDebit),
		AmountCredit:   canon.ToAmount(it.AmountCredit),
		AmountLc1:      canon.ToAmount(it.AmountLc1),
		TaxCode:        it.TaxCode,
		OrderNumber:    it.OrderNumber,
		ValueDate:      date(it.ValueDate),
		HouseBank:      it.HouseBank,
		BankAccountID:  it.BankAccountID,
		AssignmentNo:   it.AssignmentNo,
		TradingPartner: it.TradingPartner,
	}
}

func date(s string) *string {
	m := canon.Recanonicalize(s)
	if m == "" {
		return nil
	}
	return &m
}
