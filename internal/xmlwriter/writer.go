// =============================================================================
// Journal Batch Upload - XML Writer Module
// =============================================================================
//
// Renders a built payload as XML. Used for dry runs and for archiving what
// was sent; the receiving service itself takes JSON.
//
// XML STRUCTURE:
//
//   <Batch FileName="upload.xlsx" FileMimeType="...">
//     <Note>Imported from Excel</Note>
//     <FileContent>UEsDBA...</FileContent>
//     <Header n="1">
//       <CompanyCode>1000</CompanyCode>
//       <DocDate>/Date(1705276800000)/</DocDate>
//       <PostDate null="true"/>              <!-- absent date -->
//       ...
//       <Item n="1">                          <!-- global numbering -->
//         <GlAccount>400000</GlAccount>
//         <AmountDebit>5000000.00</AmountDebit>
//       </Item>
//     </Header>
//     <Header n="2">
//       <Item n="2">...</Item>                <!-- numbering continues -->
//     </Header>
//   </Batch>
//
// Element names are the payload's wire names, in column order.
//
// =============================================================================

package xmlwriter

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/ginjaninja78/journal-batch-upload/internal/payload"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the number of spaces per level. Zero writes a single line.
	Indent int

	IncludeXMLDeclaration bool

	// IncludeFileContent writes the base64 file content element. Disable it
	// to keep archives small.
	IncludeFileContent bool

	// LineItemNumberingGlobal numbers items 1, 2, 3... across all headers.
	// When false numbering restarts for every header.
	LineItemNumberingGlobal bool

	// IndexAttribute is the attribute holding header and item numbers.
	IndexAttribute string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                  2,
		IncludeXMLDeclaration:   true,
		IncludeFileContent:      true,
		LineItemNumberingGlobal: true,
		IndexAttribute:          "n",
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders batch with the default options.
func Generate(batch *payload.Batch) ([]byte, error) {
	return GenerateWithOptions(batch, DefaultGenerateOptions())
}

// GenerateWithOptions renders batch as an XML document.
func GenerateWithOptions(batch *payload.Batch, options GenerateOptions) ([]byte, error) {
	if batch == nil {
		return nil, fmt.Errorf("nothing to render: nil batch")
	}

	doc := BuildDocument(batch, options)
	if options.Indent > 0 {
		doc.Indent(options.Indent)
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write XML: %w", err)
	}
	return out, nil
}

// BuildDocument builds the element tree without serializing it.
func BuildDocument(batch *payload.Batch, options GenerateOptions) *etree.Document {
	doc := etree.NewDocument()
	if options.IncludeXMLDeclaration {
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	}

	root := doc.CreateElement("Batch")
	root.CreateAttr("FileName", batch.FileName)
	root.CreateAttr("FileMimeType", batch.FileMimeType)
	text(root, "Note", batch.Note)
	if options.IncludeFileContent {
		text(root, "FileContent", batch.FileContent)
	}

	itemIndex := 0
	for hi, h := range batch.Headers {
		if !options.LineItemNumberingGlobal {
			itemIndex = 0
		}
		he := root.CreateElement("Header")
		index(he, options, hi+1)
		buildHeaderElement(he, h)

		for _, it := range h.Items {
			itemIndex++
			ie := he.CreateElement("Item")
			index(ie, options, itemIndex)
			buildItemElement(ie, it)
		}
	}
	return doc
}

func buildHeaderElement(e *etree.Element, h payload.Header) {
	text(e, "CompanyCode", h.CompanyCode)
	text(e, "DocType", h.DocType)
	date(e, "DocDate", h.DocDate)
	date(e, "PostDate", h.PostDate)
	text(e, "FiscalPeriod", h.FiscalPeriod)
	text(e, "DocText", h.DocText)
	text(e, "Currency", h.Currency)
	text(e, "LedgerGroup", h.LedgerGroup)
	text(e, "RefDocNo", h.RefDocNo)
	text(e, "BusinessArea", h.BusinessArea)
	text(e, "AutoCalcTax", h.AutoCalcTax)
}

func buildItemElement(e *etree.Element, it payload.Item) {
	text(e, "CompanyCode", it.CompanyCode)
	text(e, "GlAccount", it.GlAccount)
	text(e, "ItemText", it.ItemText)
	text(e, "AmountDebit", it.AmountDebit)
	text(e, "AmountCredit", it.AmountCredit)
	text(e, "AmountLc1", it.AmountLc1)
	text(e, "TaxCode", it.TaxCode)
	text(e, "OrderNumber", it.OrderNumber)
	date(e, "ValueDate", it.ValueDate)
	text(e, "HouseBank", it.HouseBank)
	text(e, "BankAccountId", it.BankAccountID)
	text(e, "AssignmentNo", it.AssignmentNo)
	text(e, "TradingPartner", it.TradingPartner)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func text(parent *etree.Element, tag, value string) {
	parent.CreateElement(tag).SetText(value)
}

func date(parent *etree.Element, tag string, value *string) {
	e := parent.CreateElement(tag)
	if value == nil {
		e.CreateAttr("null", "true")
		return
	}
	e.SetText(*value)
}

func index(e *etree.Element, options GenerateOptions, n int) {
	if options.IndexAttribute != "" {
		e.CreateAttr(options.IndexAttribute, strconv.Itoa(n))
	}
}
