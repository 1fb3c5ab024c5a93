package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expiredBody = `{"errCode":-2012,"errMsg":"登录超时"}`

func TestRecoveryPassesThroughSuccess(t *testing.T) {
	transport := newScriptedTransport(ok(`{"errCode":0,"has_more":false}`))
	policy := newTestRecovery(transport)

	raw, err := policy.Exchange(context.Background(), []byte(`{"query":"foo"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"errCode":0,"has_more":false}`, string(raw))

	sent := transport.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, http.MethodPost, sent[0].Method)
	assert.Equal(t, testQueryURL, sent[0].URL)
	assert.Equal(t, "wr_skey=test", sent[0].Headers["Cookie"])
	assert.Equal(t, `{"query":"foo"}`, string(sent[0].Body))
}

func TestRecoveryProbeThenRetry(t *testing.T) {
	transport := newScriptedTransport(
		ok(expiredBody),
		ok(`{"errCode":0,"has_more":true}`),
	).withProbes(scriptedResponse{status: http.StatusNoContent})
	policy := newTestRecovery(transport)

	body := []byte(`{"query":"foo","sessionId":"s1","apiVersion":1}`)
	raw, err := policy.Exchange(context.Background(), body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"errCode":0,"has_more":true}`, string(raw))

	sent := transport.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, testQueryURL, sent[0].URL)
	assert.Equal(t, testLivenessURL, sent[1].URL)
	assert.Equal(t, http.MethodGet, sent[1].Method)
	assert.Empty(t, sent[1].Body)
	assert.Equal(t, testQueryURL, sent[2].URL)
	assert.Equal(t, sent[0].Body, sent[2].Body, "retry must re-issue the identical request")
}

func TestRecoveryLowercaseErrCode(t *testing.T) {
	transport := newScriptedTransport(
		ok(`{"errcode":-2012}`),
		ok(`{"errcode":0,"has_more":false}`),
	).withProbes(ok(`<html></html>`))
	policy := newTestRecovery(transport)

	_, err := policy.Exchange(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Len(t, transport.sentTo(testLivenessURL), 1)
}

func TestRecoveryFailures(t *testing.T) {
	tests := []struct {
		name       string
		queries    []scriptedResponse
		probes     []scriptedResponse
		wantProbes int
		wantSent   int
		wantCause  error
	}{
		{
			name:       "probe rejected",
			queries:    []scriptedResponse{ok(expiredBody)},
			probes:     []scriptedResponse{{status: http.StatusUnauthorized}},
			wantProbes: 1,
			wantSent:   2,
			wantCause:  ErrProbeFailed,
		},
		{
			name:       "probe network error",
			queries:    []scriptedResponse{ok(expiredBody)},
			probes:     []scriptedResponse{{err: errors.New("connection reset")}},
			wantProbes: 1,
			wantSent:   2,
			wantCause:  ErrProbeFailed,
		},
		{
			name:       "expired twice",
			queries:    []scriptedResponse{ok(expiredBody), ok(expiredBody)},
			probes:     []scriptedResponse{ok(""), ok("")},
			wantProbes: 1,
			wantSent:   3,
			wantCause:  ErrAuthExpired,
		},
		{
			name:     "http error is not retried",
			queries:  []scriptedResponse{{status: http.StatusBadGateway, body: "bad gateway"}, ok("{}")},
			wantSent: 1,
		},
		{
			name:     "other errCode is not retried",
			queries:  []scriptedResponse{ok(`{"errCode":-1}`), ok("{}")},
			wantSent: 1,
		},
		{
			name:     "network error is not retried",
			queries:  []scriptedResponse{{err: errors.New("timeout")}, ok("{}")},
			wantSent: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newScriptedTransport(tt.queries...).withProbes(tt.probes...)
			policy := newTestRecovery(transport)

			raw, err := policy.Exchange(context.Background(), []byte(`{"query":"foo"}`))
			assert.Nil(t, raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTransport))
			assert.Equal(t, KindTransport, KindOf(err))
			if tt.wantCause != nil {
				assert.True(t, errors.Is(err, tt.wantCause), "got %v", err)
			}
			assert.Len(t, transport.sentTo(testLivenessURL), tt.wantProbes)
			assert.Len(t, transport.sent(), tt.wantSent)
		})
	}
}

func TestRecoveryStatusAndServiceErrors(t *testing.T) {
	transport := newScriptedTransport(scriptedResponse{status: http.StatusInternalServerError})
	_, err := newTestRecovery(transport).Exchange(context.Background(), nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)

	transport = newScriptedTransport(ok(`{"errCode":-13}`))
	_, err = newTestRecovery(transport).Exchange(context.Background(), nil)
	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, -13, serviceErr.Code)

	transport = newScriptedTransport(scriptedResponse{err: errors.New("dial tcp: refused")})
	_, err = newTestRecovery(transport).Exchange(context.Background(), nil)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, testQueryURL, netErr.URL)
}

type countingLocker struct {
	locks, unlocks int
	err            error
}

func (l *countingLocker) Lock(context.Context) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks++
	return func() { l.unlocks++ }, nil
}

func TestRecoveryProbeUsesLocker(t *testing.T) {
	locker := &countingLocker{}
	transport := newScriptedTransport(ok(expiredBody), ok(`{"has_more":false}`)).withProbes(ok(""))
	policy := NewRecoveryPolicy(transport, nil, RecoveryConfig{
		QueryURL:    testQueryURL,
		LivenessURL: testLivenessURL,
	}, WithProbeLocker(locker))

	_, err := policy.Exchange(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
	// nil credentials fall back to empty headers
	assert.Empty(t, transport.sent()[0].Headers)
}

func TestRecoveryLockFailureFailsProbe(t *testing.T) {
	locker := &countingLocker{err: errors.New("redis down")}
	transport := newScriptedTransport(ok(expiredBody))
	policy := NewRecoveryPolicy(transport, nil, RecoveryConfig{
		QueryURL:    testQueryURL,
		LivenessURL: testLivenessURL,
	}, WithProbeLocker(locker))

	_, err := policy.Exchange(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProbeFailed))
	assert.Empty(t, transport.sentTo(testLivenessURL))
}

type failingCredentials struct{}

func (failingCredentials) Headers(context.Context) (map[string]string, error) {
	return nil, errors.New("no cookie store")
}

func TestRecoveryCredentialsError(t *testing.T) {
	transport := newScriptedTransport(ok("{}"))
	policy := NewRecoveryPolicy(transport, failingCredentials{}, RecoveryConfig{QueryURL: testQueryURL})

	_, err := policy.Exchange(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Empty(t, transport.sent())
}
