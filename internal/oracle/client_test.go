package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultgate/internal/custody"
	"vaultgate/pkg/platform/sentinel"
)

func TestClient_Dispatch(t *testing.T) {
	var got dispatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(dispatchResponse{RequestID: "req-abc"})
	}))
	defer srv.Close()

	client := NewClient(WithHTTPClient(srv.Client()))
	requestID, err := client.Dispatch(context.Background(), custody.VerificationRequest{
		Endpoint:       srv.URL,
		Script:         "const check = () => 1;",
		Secrets:        []byte{0x01},
		Args:           []string{"1", "alice", "50"},
		SubscriptionID: "sub-1",
		GasLimit:       300_000,
	})

	require.NoError(t, err)
	assert.Equal(t, "req-abc", requestID.String())
	assert.Equal(t, []string{"1", "alice", "50"}, got.Args)
	assert.Equal(t, "sub-1", got.SubscriptionID)
	assert.Equal(t, "AQ==", got.Secrets)
}

func TestClient_Dispatch_OracleDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(WithHTTPClient(srv.Client()))
	_, err := client.Dispatch(context.Background(), custody.VerificationRequest{Endpoint: srv.URL})

	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestClient_Dispatch_NoEndpoint(t *testing.T) {
	client := NewClient()
	_, err := client.Dispatch(context.Background(), custody.VerificationRequest{})
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestLocal_AssignsUniqueIDs(t *testing.T) {
	local := NewLocal()

	a, err := local.Dispatch(context.Background(), custody.VerificationRequest{})
	require.NoError(t, err)
	b, err := local.Dispatch(context.Background(), custody.VerificationRequest{})
	require.NoError(t, err)

	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)
}
