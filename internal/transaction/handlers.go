package transaction

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InitTxnRequest is the initiation payload. The sender comes from the
// authenticated principal, not the body. Amount positivity is checked in
// the use case so the rule holds for every caller.
type InitTxnRequest struct {
	Receiver string          `json:"receiver" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
}

// TxnUseCaseInterface defines the interface the handlers depend on.
type TxnUseCaseInterface interface {
	InitTxn(ctx context.Context, sender, receiver, note string, amount decimal.Decimal) (*Txn, error)
	GetTxn(ctx context.Context, txnID string) (*Txn, error)
}

// TxnHandler contains the HTTP handlers of the transaction service.
type TxnHandler struct {
	useCase TxnUseCaseInterface
	tracer  trace.Tracer
}

func NewTxnHandler(useCase TxnUseCaseInterface, tracer trace.Tracer) *TxnHandler {
	return &TxnHandler{useCase: useCase, tracer: tracer}
}

// InitTxn initiates a transfer from the authenticated user to the receiver.
func (h *TxnHandler) InitTxn(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "init_txn")
	defer span.End()

	var req InitTxnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sender := c.GetString("username")
	if sender == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	span.SetAttributes(
		attribute.String("sender", sender),
		attribute.String("receiver", req.Receiver),
		attribute.String("amount", req.Amount.String()),
	)

	txn, err := h.useCase.InitTxn(ctx, sender, req.Receiver, req.Note, req.Amount)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.String("txn_id", txn.TxnID))
	c.JSON(http.StatusOK, gin.H{
		"txnId":  txn.TxnID,
		"status": txn.Status,
	})
}

// GetTxn returns the current state of a transaction, including the terminal
// status once settlement propagated.
func (h *TxnHandler) GetTxn(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_txn")
	defer span.End()

	txn, err := h.useCase.GetTxn(ctx, c.Param("txnId"))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrTxnNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, txn)
}

// HealthCheck reports service liveness.
func (h *TxnHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "txn-service",
	})
}
