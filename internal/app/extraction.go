package app

import (
	"context"

	"sme-billing/internal/ai"
	"sme-billing/internal/core"
)

func (r ExtractRequest) gatewayRequest() ai.ExtractRequest {
	images := make([]ai.Image, len(r.Attachments))
	for i, a := range r.Attachments {
		images[i] = ai.Image{Filename: a.Filename, MIMEType: a.MimeType, Data: a.Data}
	}
	return ai.ExtractRequest{CompanyID: r.CompanyID, UserID: r.UserID, Text: r.Text, Images: images}
}

func (s *appService) ExtractItems(ctx context.Context, req ExtractRequest) (*ai.ItemsResult, error) {
	if s.extractor == nil {
		return nil, ErrAIUnavailable
	}
	return s.extractor.ExtractItems(ctx, req.gatewayRequest())
}

func (s *appService) ExtractCustomer(ctx context.Context, req ExtractRequest) (*core.CustomerInput, error) {
	if s.extractor == nil {
		return nil, ErrAIUnavailable
	}
	return s.extractor.ExtractCustomer(ctx, req.gatewayRequest())
}

func (s *appService) AIUsage(ctx context.Context, companyID int) (*ai.UsageSummary, error) {
	if s.extractor == nil {
		return nil, ErrAIUnavailable
	}
	return s.extractor.Usage(ctx, companyID)
}
