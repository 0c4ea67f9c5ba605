// Package printing renders invoices and quotations to PDF with maroto.
//
// Every document shares one A4 layout: a header with the company and the
// document number, the issuer and customer blocks, the line item table and
// a right-aligned totals block.
//
//	renderer := printing.NewMarotoRenderer()
//	pdf, err := renderer.Invoice(invoice, settings)
package printing
