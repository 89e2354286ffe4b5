package payment_gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"carelink-service/internal/app/config"
	"carelink-service/internal/app/contracts"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/dto/requests"
	"carelink-service/internal/pkg/dto/responses"
	"carelink-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type chapaService struct {
	BaseUrl    string
	SecretKey  string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Log        *zap.Logger
}

var (
	chapaServiceInstance contracts.PaymentGatewayService
	onceChapaService     sync.Once
)

func NewChapaService(internalConfig *config.InternalConfig, logger *zap.Logger) contracts.PaymentGatewayService {
	onceChapaService.Do(func() {
		instance := &chapaService{
			BaseUrl:   internalConfig.PaymentGateway.BaseUrl,
			SecretKey: internalConfig.PaymentGateway.SecretKey,
			HTTPClient: &http.Client{
				Timeout: time.Duration(internalConfig.PaymentGateway.RequestTimeoutInSeconds) * time.Second,
			},
			Limiter: rate.NewLimiter(
				rate.Limit(internalConfig.PaymentGateway.MaxRequestsPerSecond),
				internalConfig.PaymentGateway.MaxRequestsPerSecond,
			),
			Log: logger,
		}
		chapaServiceInstance = instance
	})
	return chapaServiceInstance
}

type chapaEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type chapaCheckoutData struct {
	CheckoutURL string `json:"checkout_url"`
}

type chapaVerifyData struct {
	Reference string      `json:"reference"`
	Method    string      `json:"method"`
	Currency  string      `json:"currency"`
	Amount    json.Number `json:"amount"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type chapaRefundData struct {
	Reference string `json:"reference"`
}

func (s *chapaService) do(ctx context.Context, method, path string, body interface{}) (*chapaEnvelope, error) {
	if err := s.Limiter.Wait(ctx); err != nil {
		return nil, exceptions.ErrGatewayRequest(err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, exceptions.ErrCannotMarshalJSON(err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, s.BaseUrl+path, reader)
	if err != nil {
		return nil, exceptions.ErrGatewayRequest(err)
	}
	request.Header.Set(constvars.HeaderAuthorization, "Bearer "+s.SecretKey)
	if body != nil {
		request.Header.Set(constvars.HeaderContentType, constvars.MIMEApplicationJSON)
	}

	response, err := s.HTTPClient.Do(request)
	if err != nil {
		return nil, exceptions.ErrGatewayRequest(err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, exceptions.ErrGatewayRequest(err)
	}

	envelope := new(chapaEnvelope)
	if err := json.Unmarshal(responseBody, envelope); err != nil {
		return nil, exceptions.ErrGatewayRequest(err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		s.Log.Error("chapaService request rejected",
			zap.String(constvars.LoggingGatewayStatusKey, envelope.Status),
			zap.Int(constvars.LoggingStatusCodeKey, response.StatusCode),
			zap.String(constvars.LoggingEndpointKey, path),
		)
		return nil, exceptions.ErrGatewayBadStatus(fmt.Sprintf("%d %s", response.StatusCode, envelope.Message))
	}
	if envelope.Status != constvars.ChapaStatusSuccess {
		return nil, exceptions.ErrGatewayBadStatus(envelope.Status)
	}
	return envelope, nil
}

func (s *chapaService) InitializeCharge(ctx context.Context, request *requests.GatewayCharge) (string, error) {
	body := map[string]interface{}{
		"amount":       strconv.FormatFloat(request.Amount, 'f', 2, 64),
		"currency":     request.Currency,
		"email":        request.Email,
		"first_name":   request.FirstName,
		"last_name":    request.LastName,
		"tx_ref":       request.TxRef,
		"callback_url": request.CallbackURL,
		"return_url":   request.ReturnURL,
	}

	envelope, err := s.do(ctx, http.MethodPost, constvars.ChapaInitializePath, body)
	if err != nil {
		return "", err
	}

	data := new(chapaCheckoutData)
	if err := json.Unmarshal(envelope.Data, data); err != nil {
		return "", exceptions.ErrGatewayRequest(err)
	}
	return data.CheckoutURL, nil
}

func (s *chapaService) Verify(ctx context.Context, txRef string) (*responses.GatewayVerification, error) {
	envelope, err := s.do(ctx, http.MethodGet, constvars.ChapaVerifyPath+txRef, nil)
	if err != nil {
		return nil, err
	}

	data := new(chapaVerifyData)
	if err := json.Unmarshal(envelope.Data, data); err != nil {
		return nil, exceptions.ErrGatewayRequest(err)
	}

	amount, _ := data.Amount.Float64()
	return &responses.GatewayVerification{
		Status:    data.Status,
		Reference: data.Reference,
		Method:    data.Method,
		Currency:  data.Currency,
		Amount:    amount,
		SettledAt: data.UpdatedAt,
	}, nil
}

func (s *chapaService) InitiateRefund(ctx context.Context, txRef string, amount float64, reason string, metadata map[string]string) (*responses.GatewayRefund, error) {
	body := map[string]interface{}{
		"amount": strconv.FormatFloat(amount, 'f', 2, 64),
		"reason": reason,
	}
	if len(metadata) > 0 {
		body["meta"] = metadata
	}

	envelope, err := s.do(ctx, http.MethodPost, constvars.ChapaRefundPath+txRef, body)
	if err != nil {
		return nil, err
	}

	data := new(chapaRefundData)
	if err := json.Unmarshal(envelope.Data, data); err != nil {
		return nil, exceptions.ErrGatewayRequest(err)
	}
	return &responses.GatewayRefund{
		Status:    envelope.Status,
		RefundRef: data.Reference,
	}, nil
}
