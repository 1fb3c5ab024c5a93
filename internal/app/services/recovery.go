package services

import (
	"context"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"weread-agent/pkg/config"
)

const (
	opExchange = "exchange"
	opProbe    = "probe"
)

type RecoveryConfig struct {
	QueryURL        string
	LivenessURL     string
	AuthExpiredCode int
}

// RecoveryPolicy 包装一次问书请求：登录过期时先探活，成功后原样重发一次；
// 其它失败一律直接返回 TransportError。
type RecoveryPolicy struct {
	transport   Transport
	credentials CredentialsProvider
	locker      ProbeLocker
	cfg         RecoveryConfig
}

type RecoveryOption func(*RecoveryPolicy)

func WithProbeLocker(locker ProbeLocker) RecoveryOption {
	return func(p *RecoveryPolicy) {
		if locker != nil {
			p.locker = locker
		}
	}
}

func NewRecoveryPolicy(transport Transport, credentials CredentialsProvider, cfg RecoveryConfig, opts ...RecoveryOption) *RecoveryPolicy {
	if cfg.QueryURL == "" {
		cfg.QueryURL = config.DefaultQueryURL
	}
	if cfg.LivenessURL == "" {
		cfg.LivenessURL = config.DefaultLivenessURL
	}
	if cfg.AuthExpiredCode == 0 {
		cfg.AuthExpiredCode = config.DefaultAuthExpiredCode
	}
	if credentials == nil {
		credentials = StaticCredentials{}
	}
	p := &RecoveryPolicy{
		transport:   transport,
		credentials: credentials,
		locker:      NoopProbeLocker{},
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Exchange 发送 body 并返回 errCode 为 0（或缺省）的原始响应体
func (p *RecoveryPolicy) Exchange(ctx context.Context, body []byte) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "weread.exchange")
	defer span.End()

	for attempt := 0; ; attempt++ {
		span.SetAttributes(attribute.Int("weread.attempt", attempt))

		raw, err := p.send(ctx, http.MethodPost, p.cfg.QueryURL, body)
		if err != nil {
			return nil, spanError(span, newQueryError(KindTransport, opExchange, err))
		}

		code, _ := PeekErrCode(raw)
		if code == p.cfg.AuthExpiredCode {
			if attempt > 0 {
				return nil, spanError(span, newQueryError(KindTransport, opExchange, ErrAuthExpired))
			}
			log.WithFields(log.Fields{"errCode": code, "url": p.cfg.LivenessURL}).Warn("weread login expired, probing liveness")
			if err := p.probe(ctx); err != nil {
				return nil, spanError(span, newQueryError(KindTransport, opProbe, err))
			}
			continue
		}
		if code != 0 {
			return nil, spanError(span, newQueryError(KindTransport, opExchange, &ServiceError{Code: code}))
		}
		return raw, nil
	}
}

// probe 只关心探活请求的状态码，响应体丢弃
func (p *RecoveryPolicy) probe(ctx context.Context) error {
	unlock, err := p.locker.Lock(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	defer unlock()

	if _, err := p.send(ctx, http.MethodGet, p.cfg.LivenessURL, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	return nil
}

func (p *RecoveryPolicy) send(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	headers, err := p.credentials.Headers(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := p.transport.Send(ctx, &TransportRequest{
		Method:  method,
		URL:     url,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, &StatusError{URL: url, Status: resp.Status}
	}
	return resp.Body, nil
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return err
}
