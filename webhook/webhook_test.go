package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver_SignsBody(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	n := New(srv.URL, "s3cret")
	ev := NewEvent(EventReferenceUpdated, map[string]float64{"Base-Set-Booster-Box": 12.5})
	require.NoError(t, n.Deliver(context.Background(), ev))

	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, Sign("s3cret", gotBody), gotSig)
	assert.Regexp(t, `^sha256=[0-9a-f]{64}$`, gotSig)

	var decoded Event
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, EventReferenceUpdated, decoded.Type)
	assert.Equal(t, ev.ID, decoded.ID)
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	sigSeen := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sigSeen = r.Header[SignatureHeader]
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL, "").Deliver(context.Background(), NewEvent(EventReferenceUpdated, nil)))
	assert.False(t, sigSeen)
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL, "").Deliver(context.Background(), NewEvent(EventReferenceUpdated, nil))
	assert.ErrorContains(t, err, "status 500")
}

func TestDeliverAsync_Retries(t *testing.T) {
	calls := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls <- struct{}{}
		if len(calls) < 2 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	n := New(srv.URL, "")
	n.delays = []time.Duration{0, 10 * time.Millisecond, 10 * time.Millisecond}
	n.DeliverAsync(NewEvent(EventReferenceUpdated, nil))

	assert.Eventually(t, func() bool { return len(calls) == 2 }, time.Second, 5*time.Millisecond)
}

func TestNilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	assert.Nil(t, New("", "secret"))
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Deliver(context.Background(), NewEvent(EventReferenceUpdated, nil)))
	n.Notify(EventReferenceUpdated, nil)
}
