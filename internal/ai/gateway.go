package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"sme-billing/internal/core"
	"sme-billing/internal/logger"
)

// Upload limits for a single extraction call.
const (
	MaxImages     = 5
	MaxImageBytes = 10 << 20
	MaxTextRunes  = 20000
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Kind names the extraction task.
type Kind string

const (
	KindItems    Kind = "items"
	KindCustomer Kind = "customer"
)

// Usage log statuses.
const (
	StatusSuccess       = "success"
	StatusError         = "error"
	StatusQuotaExceeded = "quota_exceeded"
)

// Image is an uploaded picture to send with the prompt.
type Image struct {
	Filename string
	MIMEType string // sniffed from Data when empty
	Data     []byte
}

// ExtractRequest is one user-initiated extraction call.
type ExtractRequest struct {
	CompanyID int
	UserID    string
	Text      string
	Images    []Image
}

// CompletionRequest is what the gateway sends to the model.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Images       []Image
}

// Completion is the model's reply plus accounting data.
type Completion struct {
	Content          string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// Completer calls a chat-completion endpoint.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// UsageRecord is one row of the AI usage log.
type UsageRecord struct {
	CompanyID        int
	UserID           string
	Kind             Kind
	Status           string
	ErrorMessage     string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	Duration         time.Duration
}

// UsageSummary reports a company's quota position for the current month.
type UsageSummary struct {
	PeriodStart time.Time `json:"period_start"`
	Used        int       `json:"used"`
	Quota       int       `json:"quota"`     // 0 = unlimited
	Remaining   int       `json:"remaining"` // -1 when unlimited
}

// UsageStore persists the usage log and reads the company quota.
type UsageStore interface {
	MonthlyQuota(ctx context.Context, companyID int) (int, error)
	CountSuccessful(ctx context.Context, companyID int, since time.Time) (int, error)
	RecordUsage(ctx context.Context, rec UsageRecord) error
}

// Gateway validates extraction requests, enforces the monthly quota, calls the model and
// parses its reply. Every call is written to the usage log.
type Gateway struct {
	completer Completer
	usage     UsageStore
	timeout   time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewGateway constructs a Gateway. A zero timeout disables the per-call deadline.
func NewGateway(completer Completer, usage UsageStore, timeout time.Duration) *Gateway {
	return &Gateway{
		completer: completer,
		usage:     usage,
		timeout:   timeout,
		log:       logger.WithComponent("ai"),
		now:       time.Now,
	}
}

// ExtractItems extracts line items from text and/or images.
func (g *Gateway) ExtractItems(ctx context.Context, req ExtractRequest) (*ItemsResult, error) {
	schema, err := itemsSchema()
	if err != nil {
		return nil, err
	}
	var result *ItemsResult
	err = g.run(ctx, KindItems, req, buildSystemPrompt(itemsInstructions, schema.text), func(content string) error {
		r, err := ParseItems(content)
		result = r
		return err
	})
	return result, err
}

// ExtractCustomer extracts customer details from text and/or images.
func (g *Gateway) ExtractCustomer(ctx context.Context, req ExtractRequest) (*core.CustomerInput, error) {
	schema, err := customerSchema()
	if err != nil {
		return nil, err
	}
	var result *core.CustomerInput
	err = g.run(ctx, KindCustomer, req, buildSystemPrompt(customerInstructions, schema.text), func(content string) error {
		r, err := ParseCustomer(content)
		result = r
		return err
	})
	return result, err
}

// Usage returns the company's usage for the current calendar month (UTC).
func (g *Gateway) Usage(ctx context.Context, companyID int) (*UsageSummary, error) {
	quota, err := g.usage.MonthlyQuota(ctx, companyID)
	if err != nil {
		return nil, err
	}
	start := MonthStart(g.now())
	used, err := g.usage.CountSuccessful(ctx, companyID, start)
	if err != nil {
		return nil, err
	}
	s := &UsageSummary{PeriodStart: start, Used: used, Quota: quota, Remaining: -1}
	if quota > 0 {
		s.Remaining = max(quota-used, 0)
	}
	return s, nil
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (g *Gateway) run(ctx context.Context, kind Kind, req ExtractRequest, systemPrompt string, parse func(string) error) error {
	req.Text = strings.TrimSpace(req.Text)
	images, err := validateRequest(req)
	if err != nil {
		return err
	}

	log := g.log.With().
		Int("company_id", req.CompanyID).
		Str("user_id", req.UserID).
		Str("kind", string(kind)).
		Int("images", len(images)).
		Int("text_len", len(req.Text)).
		Logger()

	rec := UsageRecord{CompanyID: req.CompanyID, UserID: req.UserID, Kind: kind}

	if err := g.checkQuota(ctx, req.CompanyID); err != nil {
		if errors.Is(err, core.ErrQuotaExceeded) {
			rec.Status = StatusQuotaExceeded
			rec.ErrorMessage = err.Error()
			g.record(ctx, log, rec)
			log.Warn().Msg("ai quota exceeded")
		}
		return err
	}

	start := time.Now()
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	completion, err := g.completer.Complete(callCtx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(kind, req.Text, len(images)),
		Images:       images,
	})
	rec.Duration = time.Since(start)
	if completion != nil {
		rec.Model = completion.Model
		rec.PromptTokens = completion.PromptTokens
		rec.CompletionTokens = completion.CompletionTokens
	}
	if err == nil {
		err = parse(completion.Content)
	}
	if err != nil {
		rec.Status = StatusError
		rec.ErrorMessage = err.Error()
		g.record(ctx, log, rec)
		log.Error().Err(err).Dur("duration", rec.Duration).Msg("ai extraction failed")
		return fmt.Errorf("ai %s extraction: %w", kind, err)
	}

	rec.Status = StatusSuccess
	g.record(ctx, log, rec)
	log.Info().
		Str("model", rec.Model).
		Int64("prompt_tokens", rec.PromptTokens).
		Int64("completion_tokens", rec.CompletionTokens).
		Dur("duration", rec.Duration).
		Msg("ai extraction succeeded")
	return nil
}

func (g *Gateway) checkQuota(ctx context.Context, companyID int) error {
	quota, err := g.usage.MonthlyQuota(ctx, companyID)
	if err != nil {
		return err
	}
	if quota == 0 {
		return nil
	}
	used, err := g.usage.CountSuccessful(ctx, companyID, MonthStart(g.now()))
	if err != nil {
		return err
	}
	if used >= quota {
		return fmt.Errorf("%w: %d of %d calls used this month", core.ErrQuotaExceeded, used, quota)
	}
	return nil
}

// record writes the usage row. A logging failure must not fail the user's request.
func (g *Gateway) record(ctx context.Context, log zerolog.Logger, rec UsageRecord) {
	if err := g.usage.RecordUsage(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn().Err(err).Str("status", rec.Status).Msg("failed to record ai usage")
	}
}

// validateRequest checks the input limits and fills in sniffed MIME types.
func validateRequest(req ExtractRequest) ([]Image, error) {
	if req.Text == "" && len(req.Images) == 0 {
		return nil, fmt.Errorf("%w: text or at least one image is required", core.ErrValidation)
	}
	if utf8.RuneCountInString(req.Text) > MaxTextRunes {
		return nil, fmt.Errorf("%w: text is longer than %d characters", core.ErrValidation, MaxTextRunes)
	}
	if len(req.Images) > MaxImages {
		return nil, fmt.Errorf("%w: at most %d images per request", core.ErrValidation, MaxImages)
	}

	images := make([]Image, len(req.Images))
	for i, img := range req.Images {
		if len(img.Data) == 0 {
			return nil, fmt.Errorf("%w: image %d is empty", core.ErrValidation, i+1)
		}
		if len(img.Data) > MaxImageBytes {
			return nil, fmt.Errorf("%w: image %d is larger than %d MB", core.ErrValidation, i+1, MaxImageBytes>>20)
		}
		sniffed := http.DetectContentType(img.Data)
		if !allowedImageTypes[sniffed] {
			return nil, fmt.Errorf("%w: image %d has unsupported type %s (jpeg, png or webp only)",
				core.ErrValidation, i+1, sniffed)
		}
		img.MIMEType = sniffed
		images[i] = img
	}
	return images, nil
}
