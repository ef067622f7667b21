package handlers

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"mime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"receipt2pdf/internal/access"
	"receipt2pdf/internal/compose"
	"receipt2pdf/internal/receipt"
	u "receipt2pdf/internal/utils"
)

//go:embed templates/form.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

// ReceiptService bundles configuration and dependencies for receipt rendering.
type ReceiptService struct {
	Config *u.Config
	Redis  *redis.Client
	Keys   *access.KeyStore

	composer *compose.Composer
}

// NewReceiptService creates a new ReceiptService instance. rdb and keys may be nil.
func NewReceiptService(cfg u.Config, rdb *redis.Client, keys *access.KeyStore) *ReceiptService {
	return &ReceiptService{
		Config:   &cfg,
		Redis:    rdb,
		Keys:     keys,
		composer: compose.New(cfg.Receipt.Assets, cfg.Practice),
	}
}

// receiptForm holds the four raw user fields as sent in a JSON, url-encoded
// or multipart body.
type receiptForm struct {
	Name   string      `json:"name" form:"name"`
	TaxID  string      `json:"tax_id" form:"tax_id"`
	Amount amountField `json:"amount" form:"amount"`
	Date   string      `json:"date" form:"date"`
}

// amountField accepts a JSON number as well as a string.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*a = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountField(s)
		return nil
	}
	*a = amountField(raw)
	return nil
}

func readReceiptForm(c *fiber.Ctx) (receiptForm, error) {
	var form receiptForm
	if err := c.BodyParser(&form); err != nil {
		return receiptForm{}, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return form, nil
}

// request parses and validates the raw fields. Errors match receipt.ErrValidation.
func (f receiptForm) request() (receipt.Request, error) {
	amount, err := receipt.ParseAmount(string(f.Amount))
	if err != nil {
		return receipt.Request{}, err
	}
	date, err := receipt.ParseDate(f.Date)
	if err != nil {
		return receipt.Request{}, err
	}
	req := receipt.Request{Name: f.Name, TaxID: f.TaxID, Amount: amount, Date: date}
	if err := req.Validate(); err != nil {
		return receipt.Request{}, err
	}
	return req, nil
}

// validateAndExtractReceiptParams turns the HTTP request into a valid receipt.Request.
func validateAndExtractReceiptParams(c *fiber.Ctx) (receipt.Request, error) {
	form, err := readReceiptForm(c)
	if err != nil {
		return receipt.Request{}, err
	}
	req, err := form.request()
	if err != nil {
		u.Warn("Receipt request rejected", "path", c.Path(), "reason", err.Error(), "request_id", requestID(c))
		return receipt.Request{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return req, nil
}

// HandleGenerate renders a receipt from a form or JSON body and returns it as a download.
func (svc *ReceiptService) HandleGenerate(c *fiber.Ctx) error {
	req, err := validateAndExtractReceiptParams(c)
	if err != nil {
		return err
	}
	fields, pdf, err := svc.render(req)
	if err != nil {
		return svc.renderFailure(c, err)
	}
	return deliver(c, fields, pdf)
}

// render formats the request once and composes the page.
func (svc *ReceiptService) render(req receipt.Request) (receipt.Fields, []byte, error) {
	fields, err := receipt.NewFields(req)
	if err != nil {
		return receipt.Fields{}, nil, err
	}
	pdf, err := svc.composer.Compose(fields)
	if err != nil {
		return receipt.Fields{}, nil, err
	}
	return fields, pdf, nil
}

// renderFailure logs asset and backend failures apart from each other and maps them to a fiber error.
func (svc *ReceiptService) renderFailure(c *fiber.Ctx, err error) *fiber.Error {
	id := requestID(c)
	switch {
	case errors.Is(err, receipt.ErrValidation):
		u.Warn("Receipt request rejected", "path", c.Path(), "reason", err.Error(), "request_id", id)
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, compose.ErrAssetMissing):
		u.Error("Receipt asset missing", "kind", "asset", "error", err, "request_id", id)
		return fiber.NewError(fiber.StatusInternalServerError, "Receipt assets unavailable")
	default:
		u.Error("Receipt rendering failed", "kind", "render", "error", err, "request_id", id)
		return fiber.NewError(fiber.StatusInternalServerError, "Receipt rendering failed")
	}
}

// deliver sends the PDF as an attachment named after the payer.
func deliver(c *fiber.Ctx, fields receipt.Fields, pdf []byte) error {
	name := receipt.FileName(fields.PayerName)
	u.Info("Receipt generated", "filename", name, "bytes", len(pdf), "request_id", requestID(c))

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, contentDisposition(name))
	return c.Send(pdf)
}

// contentDisposition quotes or RFC 2231-encodes the file name without altering it.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func requestID(c *fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

// formView feeds templates/form.html.
type formView struct {
	Action  string
	Service string
	Warning string
	Name    string
	TaxID   string
	Amount  string
	Date    string
}

// HandleForm serves the receipt form.
func (svc *ReceiptService) HandleForm(c *fiber.Ctx) error {
	return svc.renderForm(c, fiber.StatusOK, formView{Date: time.Now().Format("2006-01-02")})
}

// HandleFormSubmit generates the receipt from the HTML form. Input problems
// re-render the form with a warning instead of producing a document.
func (svc *ReceiptService) HandleFormSubmit(c *fiber.Ctx) error {
	form, err := readReceiptForm(c)
	if err != nil {
		return err
	}
	view := formView{Name: form.Name, TaxID: form.TaxID, Amount: string(form.Amount), Date: form.Date}

	req, err := form.request()
	if err != nil {
		u.Warn("Receipt form rejected", "reason", err.Error(), "request_id", requestID(c))
		view.Warning = warningFor(err)
		return svc.renderForm(c, fiber.StatusUnprocessableEntity, view)
	}

	fields, pdf, err := svc.render(req)
	if err != nil {
		ferr := svc.renderFailure(c, err)
		if ferr.Code == fiber.StatusBadRequest {
			view.Warning = warningFor(err)
			return svc.renderForm(c, fiber.StatusUnprocessableEntity, view)
		}
		view.Warning = "Não foi possível gerar o recibo. Tente novamente mais tarde."
		return svc.renderForm(c, ferr.Code, view)
	}
	return deliver(c, fields, pdf)
}

func (svc *ReceiptService) renderForm(c *fiber.Ctx, status int, view formView) error {
	view.Action = c.Path()
	view.Service = svc.Config.Practice.Service
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, view); err != nil {
		return err
	}
	return c.Status(status).Type("html", "utf-8").Send(buf.Bytes())
}

var fieldLabels = map[string]string{
	"name":   "nome",
	"tax_id": "CPF",
	"amount": "valor",
	"date":   "data",
}

// warningFor phrases a validation error for the person filling the form.
func warningFor(err error) string {
	var missing *receipt.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		labels := make([]string, 0, len(missing.Fields))
		for _, f := range missing.Fields {
			labels = append(labels, fieldLabels[f])
		}
		return "Por favor, preencha todos os campos para gerar o recibo. Faltando: " + strings.Join(labels, ", ") + "."
	case errors.Is(err, receipt.ErrInvalidTaxID):
		return "O CPF deve conter exatamente 11 dígitos."
	case errors.Is(err, receipt.ErrUnprintableName):
		return "O nome contém caracteres que não podem ser impressos no recibo."
	case errors.Is(err, receipt.ErrInvalidDate):
		return "Informe uma data válida (DD/MM/AAAA)."
	case errors.Is(err, receipt.ErrInvalidAmount), errors.Is(err, receipt.ErrNegativeAmount), errors.Is(err, receipt.ErrAmountTooLarge):
		return "Informe um valor válido."
	default:
		return "Não foi possível validar os dados do recibo."
	}
}

// Ready reports whether a receipt could be rendered right now.
func (svc *ReceiptService) Ready(ctx context.Context) bool {
	if compose.CheckAssets(svc.Config.Receipt.Assets) != nil {
		return false
	}
	if svc.Redis != nil {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := svc.Redis.Ping(ctx).Err(); err != nil {
			return false
		}
	}
	return true
}

// HandleStatus exposes the state of the collaborators a render depends on.
func (svc *ReceiptService) HandleStatus(c *fiber.Ctx) error {
	assets := fiber.Map{"ok": true}
	if err := compose.CheckAssets(svc.Config.Receipt.Assets); err != nil {
		assets = fiber.Map{"ok": false, "error": err.Error()}
	}

	rds := fiber.Map{"enabled": svc.Redis != nil}
	if svc.Redis != nil {
		ctx, cancel := context.WithTimeout(c.Context(), time.Second)
		defer cancel()
		if err := svc.Redis.Ping(ctx).Err(); err != nil {
			rds["ok"] = false
			rds["error"] = err.Error()
		} else {
			rds["ok"] = true
		}
	}

	keys := fiber.Map{"configured": false, "ready": false, "count": 0}
	if svc.Keys != nil {
		keys = fiber.Map{"configured": svc.Keys.Configured(), "ready": svc.Keys.Ready(), "count": svc.Keys.Len()}
	}

	return c.JSON(fiber.Map{
		"assets":   assets,
		"redis":    rds,
		"api_keys": keys,
		"practice": svc.Config.Practice.SignerName,
	})
}
