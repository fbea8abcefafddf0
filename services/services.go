package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"turks-backend/core"
	"turks-backend/models"
)

// QRCodeService handles QR code generation
type QRCodeService struct{}

// NewQRCodeService creates a new QR code service
func NewQRCodeService() *QRCodeService {
	return &QRCodeService{}
}

// GenerateQRCode renders content as a PNG of the given pixel size.
func (s *QRCodeService) GenerateQRCode(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, fmt.Errorf("failed to encode QR code to PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// PaymentRequestService describes the transfer that pays for one task.
type PaymentRequestService struct {
	treasury string
	price    uint64
	label    string
	qr       *QRCodeService
}

// NewPaymentRequestService builds a service for one treasury and price.
func NewPaymentRequestService(treasury string, price uint64, label string, qr *QRCodeService) *PaymentRequestService {
	return &PaymentRequestService{treasury: treasury, price: price, label: label, qr: qr}
}

// Request returns the transfer request for payer. The url is a Solana Pay
// transfer request; wallets that scan the QR code prefill the transfer.
func (s *PaymentRequestService) Request(payer string, withQR bool) (*models.PaymentRequestResponse, error) {
	amount := FormatSOL(s.price)
	q := url.Values{}
	q.Set("amount", amount)
	if s.label != "" {
		q.Set("label", s.label)
	}
	if payer != "" {
		q.Set("memo", "turks:"+payer)
	}
	link := "solana:" + s.treasury + "?" + q.Encode()

	resp := &models.PaymentRequestResponse{
		Recipient: s.treasury,
		Lamports:  s.price,
		AmountSOL: amount,
		URL:       link,
	}
	if withQR && s.qr != nil {
		img, err := s.qr.GenerateQRCode(link, 256)
		if err != nil {
			return nil, err
		}
		resp.QRPNGBase64 = base64.StdEncoding.EncodeToString(img)
	}
	return resp, nil
}

// FormatSOL renders lamports as a decimal SOL amount without trailing zeros.
func FormatSOL(lamports uint64) string {
	whole := lamports / core.LamportsPerSOL
	frac := lamports % core.LamportsPerSOL
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	f := fmt.Sprintf("%09d", frac)
	return strconv.FormatUint(whole, 10) + "." + strings.TrimRight(f, "0")
}

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService handles health check business logic
type HealthService struct {
	checks map[string]Pinger
}

// NewHealthService creates a new health service
func NewHealthService(checks map[string]Pinger) *HealthService {
	return &HealthService{checks: checks}
}

// GetHealthStatus returns current health status
func (s *HealthService) GetHealthStatus(ctx context.Context) *models.HealthResponse {
	resp := &models.HealthResponse{
		Status:    "healthy",
		Message:   "Backend is running!",
		Timestamp: time.Now().Unix(),
	}
	if len(s.checks) == 0 {
		return resp
	}
	resp.Checks = make(map[string]string, len(s.checks))
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}
	return resp
}
