package migu

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"github.com/wanxtv/wanx/backend/internal/config"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/metrics"
	"github.com/wanxtv/wanx/backend/internal/telemetry"
	"go.uber.org/zap"
)

const (
	serviceCenter = "center"
	servicePay    = "pay"

	defaultTimeout = 5 * time.Second
)

// Client talks to the Migu user center and pay center. It implements Center and Pay.
type Client struct {
	center *service
	pay    *service
}

var (
	_ Center = (*Client)(nil)
	_ Pay    = (*Client)(nil)
)

// NewClient builds a client from the migu config section.
func NewClient(cfg config.MiguConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		center: newService(serviceCenter, cfg.CenterURL, cfg.AppID, cfg.AppSecret, timeout),
		pay:    newService(servicePay, cfg.PayURL, cfg.AppID, cfg.AppSecret, timeout),
	}
}

// service is one Migu endpoint family behind its own circuit breaker.
type service struct {
	name    string
	appID   string
	secret  string
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

func newService(name, baseURL, appID, secret string, timeout time.Duration) *service {
	httpClient := &http.Client{Transport: telemetry.NewInstrumentedTransport(nil)}
	rc := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	breakerName := "migu_" + name
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Business errors mean the service answered; only transport failures trip.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			apiErr, ok := IsAPIError(err)
			return ok && apiErr.StatusCode < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, int(to))
			logger.Log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &service{
		name:    name,
		appID:   appID,
		secret:  secret,
		http:    rc,
		breaker: cb,
		now:     time.Now,
	}
}

// sign returns the request signature: hex(hmac-sha256(secret, appID + timestamp)).
func (s *service) sign(ts string) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(s.appID + ts))
	return hex.EncodeToString(mac.Sum(nil))
}

// call posts body to path and decodes the envelope's data into out (when non-nil).
func (s *service) call(ctx context.Context, operation, path string, body map[string]any, out any) error {
	ctx, span := telemetry.TraceExternalCall(ctx, telemetry.ExternalServiceCallAttrs{
		Service:   "migu." + s.name,
		Operation: operation,
	})
	defer span.End()

	start := time.Now()
	var statusCode int
	result, err := s.breaker.Execute(func() (interface{}, error) {
		ts := strconv.FormatInt(s.now().Unix(), 10)
		resp, err := s.http.R().
			SetContext(ctx).
			SetHeader("X-App-Id", s.appID).
			SetHeader("X-Timestamp", ts).
			SetHeader("X-Signature", s.sign(ts)).
			SetBody(body).
			Post(path)
		if err != nil {
			return nil, err
		}
		statusCode = resp.StatusCode()
		if resp.IsError() {
			return nil, parseError(s.name, resp)
		}
		return resp, nil
	})

	if err == nil {
		err = decodeEnvelope(s.name, result.(*resty.Response), out)
	}
	metrics.RecordUpstreamRequest("migu_"+s.name, operation, time.Since(start), err)

	if err != nil {
		breakerOpen := errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
		telemetry.RecordExternalCallError(span, err, statusCode, breakerOpen)
		if breakerOpen {
			return fmt.Errorf("%s %s: %w", s.name, operation, ErrUnavailable)
		}
		if _, ok := IsAPIError(err); !ok {
			logger.Log.Error("Migu request failed",
				zap.String("service", s.name),
				zap.String("operation", operation),
				zap.Error(err),
			)
		}
		return err
	}
	telemetry.RecordExternalCallSuccess(span, statusCode)
	return nil
}

func decodeEnvelope(service string, resp *resty.Response, out any) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	if env.ResultCode != resultOK {
		return &APIError{
			Service:    service,
			Code:       env.ResultCode,
			Message:    env.ResultDesc,
			StatusCode: resp.StatusCode(),
		}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", service, err)
	}
	return nil
}
