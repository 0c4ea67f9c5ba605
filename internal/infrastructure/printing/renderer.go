package printing

import (
	"fmt"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

// RenderError represents a failure while producing a PDF
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderFailed    = "RENDER_FAILED"
	ErrCodeInvalidDocument = "INVALID_DOCUMENT"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

var (
	colorPrimary = &props.Color{Red: 31, Green: 78, Blue: 121}
	colorGray    = &props.Color{Red: 110, Green: 110, Blue: 110}
)

const dateLayout = "2006-01-02"

// MarotoRenderer renders line-item documents with maroto v2
type MarotoRenderer struct{}

// NewMarotoRenderer creates a renderer
func NewMarotoRenderer() *MarotoRenderer {
	return &MarotoRenderer{}
}

// page is the renderer's view of an invoice or quotation
type page struct {
	title     string
	doc       *crm.Document
	dateLabel string
	date      *time.Time
	status    string
}

// Invoice renders an invoice
func (r *MarotoRenderer) Invoice(invoice *crm.Invoice, settings *crm.BusinessSettings) ([]byte, error) {
	if invoice == nil {
		return nil, NewRenderError(ErrCodeInvalidDocument, "invoice is required", nil)
	}
	return r.render(page{
		title:     "INVOICE",
		doc:       &invoice.Document,
		dateLabel: "Due",
		date:      invoice.DueDate,
		status:    string(invoice.EffectiveStatus(time.Now())),
	}, settings)
}

// Quotation renders a quotation
func (r *MarotoRenderer) Quotation(quotation *crm.Quotation, settings *crm.BusinessSettings) ([]byte, error) {
	if quotation == nil {
		return nil, NewRenderError(ErrCodeInvalidDocument, "quotation is required", nil)
	}
	return r.render(page{
		title:     "QUOTATION",
		doc:       &quotation.Document,
		dateLabel: "Valid until",
		date:      quotation.ValidUntil,
		status:    string(quotation.Status),
	}, settings)
}

func (r *MarotoRenderer) render(p page, settings *crm.BusinessSettings) ([]byte, error) {
	if settings == nil {
		settings = crm.DefaultBusinessSettings()
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(12).WithBottomMargin(12).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(p.title+" "+p.doc.Number, true).
		WithAuthor(settings.CompanyName, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(p, settings))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partiesRow(p, settings))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(itemHeaderRow())
	m.AddRows(itemRows(p.doc)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(p.doc))
	if notes := strings.TrimSpace(p.doc.Notes); notes != "" {
		m.AddRows(row.New(12).Add(col.New(12).Add(
			text.New("Notes: "+notes, props.Text{Size: 8, Top: 3, Color: colorGray}),
		)))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, fmt.Sprintf("failed to render %s", strings.ToLower(p.title)), err)
	}
	return doc.GetBytes(), nil
}

func headerRow(p page, settings *crm.BusinessSettings) core.Row {
	dates := "Issued: " + p.doc.IssueDate.Format(dateLayout)
	if p.date != nil {
		dates += "   " + p.dateLabel + ": " + p.date.Format(dateLayout)
	}

	return row.New(20).Add(
		col.New(7).Add(
			text.New(settings.CompanyName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(orDash(settings.TaxID, "Tax ID: "), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(p.title, props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(p.doc.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6,
			}),
			text.New(dates, props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
			text.New(strings.ToUpper(p.status), props.Text{
				Size: 7, Align: align.Right, Top: 17, Color: colorGray,
			}),
		),
	)
}

func partiesRow(p page, settings *crm.BusinessSettings) core.Row {
	return row.New(18).Add(
		col.New(6).Add(
			text.New("FROM", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(orDash(settings.Address, ""), props.Text{Size: 8, Top: 6}),
			text.New(orDash(settings.Email, "")+"   "+orDash(settings.Phone, ""), props.Text{
				Size: 8, Top: 11, Color: colorGray,
			}),
		),
		col.New(6).Add(
			text.New("BILL TO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(p.doc.CustomerName, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(orDash(p.doc.CustomerEmail, ""), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

func itemHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Description", 5, align.Left),
		h("Qty", 1, align.Right),
		h("Unit price", 2, align.Right),
		h("Tax %", 1, align.Right),
		h("Amount", 3, align.Right),
	)
}

func itemRows(doc *crm.Document) []core.Row {
	rows := make([]core.Row, 0, len(doc.Items))
	for _, item := range doc.Items {
		cell := func(value string, size int, a align.Type) core.Col {
			return col.New(size).Add(text.New(value, props.Text{
				Size: 8, Align: a, Top: 1, Left: 1, Right: 1,
			}))
		}
		rows = append(rows, row.New(7).Add(
			cell(item.Description, 5, align.Left),
			cell(item.Quantity.String(), 1, align.Right),
			cell(FormatAmount(item.UnitPrice), 2, align.Right),
			cell(item.TaxRate.String(), 1, align.Right),
			cell(FormatAmount(item.Net()), 3, align.Right),
		))
	}
	return rows
}

func totalsRow(doc *crm.Document) core.Row {
	label := func(s string, top float64, bold bool) core.Component {
		p := props.Text{Size: 9, Align: align.Right, Right: 2, Top: top}
		if bold {
			p.Style = fontstyle.Bold
			p.Color = colorPrimary
		}
		return text.New(s, p)
	}

	return row.New(22).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal", 2, false),
			label("Tax", 8, false),
			label("Total", 14, true),
		),
		col.New(3).Add(
			label(FormatAmount(doc.Subtotal), 2, false),
			label(FormatAmount(doc.TaxTotal), 8, false),
			label(doc.Currency+" "+FormatAmount(doc.Total), 14, true),
		),
	)
}

func orDash(s, prefix string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return prefix + s
}

// FormatAmount renders an amount with two decimals and comma thousand separators
func FormatAmount(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + "." + frac
}
