package app

import (
	"context"
	"fmt"
	"strings"

	"sme-billing/internal/core"
	"sme-billing/internal/export"
)

func exportFilter(req ExportRequest) (core.DocumentListFilter, error) {
	f, err := documentFilter(ListDocumentsRequest{From: req.From, To: req.To})
	if err != nil {
		return f, err
	}
	f.Limit = exportPageSize
	return f, nil
}

func exportFilename(kind string, req ExportRequest) string {
	parts := []string{kind}
	if req.From != "" {
		parts = append(parts, req.From)
	}
	if req.To != "" {
		parts = append(parts, req.To)
	}
	return strings.Join(parts, "_") + ".xlsx"
}

// collect pages through a list call until a short page comes back. More than
// maxExportDocuments rows is an error.
func collect[T any](ctx context.Context, filter core.DocumentListFilter,
	list func(context.Context, core.DocumentListFilter) ([]T, error),
) ([]T, error) {
	var all []T
	for {
		page, err := list(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(all) > maxExportDocuments {
			return nil, validationError("export is limited to %d documents; narrow the date range", maxExportDocuments)
		}
		if len(page) < filter.Limit {
			return all, nil
		}
		filter.Offset += len(page)
	}
}

func (s *appService) ExportInvoices(ctx context.Context, companyID int, req ExportRequest) (*ExportResult, error) {
	filter, err := exportFilter(req)
	if err != nil {
		return nil, err
	}
	invoices, err := collect(ctx, filter, func(ctx context.Context, f core.DocumentListFilter) ([]core.Invoice, error) {
		return s.invoices.ListInvoices(ctx, companyID, f)
	})
	if err != nil {
		return nil, err
	}
	buf, err := export.Invoices(invoices)
	if err != nil {
		return nil, fmt.Errorf("export invoices: %w", err)
	}
	return &ExportResult{Filename: exportFilename("invoices", req), ContentType: export.ContentType, Data: buf.Bytes()}, nil
}

func (s *appService) ExportQuotations(ctx context.Context, companyID int, req ExportRequest) (*ExportResult, error) {
	filter, err := exportFilter(req)
	if err != nil {
		return nil, err
	}
	quotations, err := collect(ctx, filter, func(ctx context.Context, f core.DocumentListFilter) ([]core.Quotation, error) {
		return s.quotations.ListQuotations(ctx, companyID, f)
	})
	if err != nil {
		return nil, err
	}
	buf, err := export.Quotations(quotations)
	if err != nil {
		return nil, fmt.Errorf("export quotations: %w", err)
	}
	return &ExportResult{Filename: exportFilename("quotations", req), ContentType: export.ContentType, Data: buf.Bytes()}, nil
}
