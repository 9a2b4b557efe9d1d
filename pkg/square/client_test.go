package square

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
)

func TestNormalizeEnv(t *testing.T) {
	env, err := normalizeEnv("")
	require.NoError(t, err)
	assert.Equal(t, sandboxEnv, env)

	env, err = normalizeEnv("  Production ")
	require.NoError(t, err)
	assert.Equal(t, productionEnv, env)

	_, err = normalizeEnv("staging")
	assert.Error(t, err)
}

func TestIdempotencyKeyGeneration(t *testing.T) {
	c := &Client{}

	assert.Equal(t, "checkout-abc", c.ensureIdempotencyKey("payment.create", "checkout-abc"))

	generated := c.ensureIdempotencyKey("payment.create", "  ")
	assert.True(t, strings.HasPrefix(generated, "payment.create-"))

	second := c.ensureIdempotencyKey("payment.create", "")
	assert.NotEqual(t, generated, second)
}

func TestPaymentRequestShape(t *testing.T) {
	params := PaymentCreateParams{
		AmountCents: 2499,
		Currency:    "usd",
		LocationID:  "LOC1",
		SourceID:    "cnon:card-nonce",
		ReferenceID: "payment-uuid",
		Note:        " thrift order ",
	}

	req := params.toSquareRequest("key-1")
	require.NotNil(t, req.AmountMoney)
	assert.Equal(t, int64(2499), *req.AmountMoney.Amount)
	assert.Equal(t, sq.Currency("USD"), *req.AmountMoney.Currency)
	assert.Equal(t, "key-1", req.IdempotencyKey)
	assert.Equal(t, "thrift order", *req.Note)
	assert.Equal(t, "payment-uuid", *req.ReferenceID)

	empty := PaymentCreateParams{SourceID: "cnon:x"}.toSquareRequest("key-2")
	assert.Nil(t, empty.AmountMoney)
	assert.Nil(t, empty.Note)
}

func TestLogRedaction(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "[REDACTED]", c.redact("source_token", "cnon:abc"))
	assert.Equal(t, "[REDACTED]", c.redact("card_nonce", "x"))
	assert.Equal(t, 2499, c.redact("amount", 2499))
}

func TestSquareErrorMapping(t *testing.T) {
	c := &Client{}

	tests := []struct {
		name    string
		status  int
		payload string
		want    pkgerrors.Code
	}{
		{"declined card", http.StatusBadRequest, `{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CARD_DECLINED"}]}`, pkgerrors.CodeValidation},
		{"bad credentials", http.StatusUnauthorized, `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`, pkgerrors.CodeUnauthorized},
		{"reused key", http.StatusConflict, `{"errors":[{"category":"API_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`, pkgerrors.CodeIdempotency},
		{"square outage", http.StatusInternalServerError, `{"errors":[{"category":"API_ERROR","code":"INTERNAL_SERVER_ERROR"}]}`, pkgerrors.CodeDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := c.mapSquareError(sqcore.NewAPIError(tt.status, errors.New(tt.payload)), "create payment")
			typed := pkgerrors.As(mapped)
			require.NotNil(t, typed)
			assert.Equal(t, tt.want, typed.Code())
		})
	}

	plain := c.mapSquareError(errors.New("connection reset"), "create payment")
	typed := pkgerrors.As(plain)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}
