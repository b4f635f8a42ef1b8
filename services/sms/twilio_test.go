package smssvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/plagcheck/core"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (core.SMSService, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var sleeps []time.Duration
	sleepFunc = func(d time.Duration) { sleeps = append(sleeps, d) }
	t.Cleanup(func() { sleepFunc = time.Sleep })

	conf := &core.Config{}
	conf.Twilio.AccountSID = "AC123"
	conf.Twilio.AuthToken = "secret"
	conf.Twilio.From = "+15550001111"
	conf.Twilio.BaseURL = srv.URL + "/"
	conf.Twilio.MaxRetries = 2
	return NewTwilioService(conf, core.NopLogger{}), &sleeps
}

func TestTwilioService_SendSMS(t *testing.T) {
	svc, sleeps := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+919876543210", r.PostForm.Get("To"))
		assert.Equal(t, "+15550001111", r.PostForm.Get("From"))
		assert.Equal(t, "Plagiarism check completed for assignment: Essay", r.PostForm.Get("Body"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	})

	err := svc.SendSMS(context.Background(), "919876543210", "Plagiarism check completed for assignment: Essay")
	require.NoError(t, err)
	assert.Empty(t, *sleeps)
}

func TestTwilioService_Retries(t *testing.T) {
	calls := 0
	svc, sleeps := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if calls == 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM2"}`))
	})

	require.NoError(t, svc.SendSMS(context.Background(), "+1555", "hi"))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{3 * time.Second, 2 * time.Second}, *sleeps)
}

func TestTwilioService_Errors(t *testing.T) {
	calls := 0
	svc, sleeps := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	})

	err := svc.SendSMS(context.Background(), "+1555", "hi")
	require.Error(t, err)
	herr, ok := err.(*HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, herr.StatusCode)
	assert.Equal(t, "twilio http 400: Invalid 'To' Phone Number (code=21211)", err.Error())
	assert.Equal(t, 1, calls, "client errors are not retried")
	assert.Empty(t, *sleeps)

	assert.Error(t, svc.SendSMS(context.Background(), "", "hi"))
	assert.Error(t, svc.SendSMS(context.Background(), "+1555", "  "))
}

func TestTwilioService_GivesUp(t *testing.T) {
	calls := 0
	svc, sleeps := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	err := svc.SendSMS(context.Background(), "+1555", "hi")
	assert.EqualError(t, err, "twilio http 502: <empty body>")
	assert.Equal(t, 3, calls)
	assert.Len(t, *sleeps, 2)
}

func TestE164(t *testing.T) {
	assert.Equal(t, "+919876543210", core.E164("919876543210"))
	assert.Equal(t, "+919876543210", core.E164(" +919876543210 "))
	assert.Equal(t, "", core.E164(""))
}
