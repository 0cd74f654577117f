package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"consentpdf/internal/cache"
	"consentpdf/internal/config"
	"consentpdf/internal/domain"
	"consentpdf/internal/infra/logging"
	"consentpdf/internal/render"
)

const serviceName = "pdf_generator"

// generateRequest mirrors domain.ClientRecord with pointers so absent keys
// can be told apart from empty strings.
type generateRequest struct {
	FIO         *string `json:"fio"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	BirthDate   *string `json:"birth_date"`
	SubmittedAt *string `json:"submitted_at"`
	RequestID   *string `json:"request_id"`
}

func (r generateRequest) record() (domain.ClientRecord, error) {
	required := []struct {
		name string
		val  *string
	}{
		{"fio", r.FIO},
		{"phone", r.Phone},
		{"email", r.Email},
		{"birth_date", r.BirthDate},
		{"submitted_at", r.SubmittedAt},
	}
	for _, f := range required {
		if f.val == nil {
			return domain.ClientRecord{}, fmt.Errorf("%s: %w", f.name, domain.ErrMissingField)
		}
	}

	rec := domain.ClientRecord{
		FIO:         *r.FIO,
		Phone:       *r.Phone,
		Email:       *r.Email,
		BirthDate:   *r.BirthDate,
		SubmittedAt: *r.SubmittedAt,
	}
	if r.RequestID != nil {
		rec.RequestID = *r.RequestID
	}
	return rec, nil
}

// ConsentService bundles the renderer and its optional cache.
type ConsentService struct {
	Config   *config.Config
	Renderer *render.Renderer
	Cache    *cache.PDFCache
}

// NewConsentService creates a new ConsentService instance.
func NewConsentService(cfg config.Config, r *render.Renderer, pc *cache.PDFCache) *ConsentService {
	return &ConsentService{
		Config:   &cfg,
		Renderer: r,
		Cache:    pc,
	}
}

// HandleGenerate renders the consent document for the posted client record.
func (svc *ConsentService) HandleGenerate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe
		}
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}
	rec, err := req.record()
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	key := cache.Key(svc.Renderer.Font().Fingerprint(), rec)
	pdf, _ := svc.Cache.Get(c.UserContext(), key)
	if pdf == nil {
		pdf, err = svc.Renderer.Render(rec)
		if err != nil {
			logging.Error("PDF generation failed", "request_id", rec.RequestID, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "PDF generation failed")
		}
		if len(pdf) > svc.Config.Limits.MaxPDFBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
		}
		svc.Cache.Set(c.UserContext(), key, pdf)
	}

	filename := domain.Filename(rec.RequestID)
	logging.Info("PDF generated", "filename", filename, "bytes", len(pdf), "request_id", c.GetRespHeader(fiber.HeaderXRequestID))

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Send(pdf)
}

// HandleHealth reports service status and the resolved font.
func (svc *ConsentService) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": serviceName,
		"font":    svc.Renderer.Font().Name,
	})
}
