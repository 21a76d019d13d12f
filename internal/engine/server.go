package engine

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crosslane-xyz/crosslane/internal/swap"
)

// Server exposes the engine over HTTP. Wire encoding is JSON with
// hex-encoded byte fields; the protocol contracts live entirely in the
// engine, the server only translates.
type Server struct {
	engine *Engine
}

// NewServer wraps an engine.
func NewServer(e *Engine) *Server {
	return &Server{engine: e}
}

// Register mounts the v1 routes on a gin router.
func (s *Server) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.GET("/accounts/:principal/sequence", s.getSequence)
	v1.POST("/intents", s.submitIntent)
	v1.GET("/orders", s.listOrders)
	v1.GET("/orders/:id", s.getOrder)
	v1.POST("/orders/:id/cancel", s.cancelOrder)
	v1.GET("/chain/verify", s.verifyChain)
}

type intentRequest struct {
	Account     string `json:"account" binding:"required"`
	SourceChain string `json:"source_chain" binding:"required"`
	SourceAsset string `json:"source_asset" binding:"required"`
	DestChain   string `json:"dest_chain" binding:"required"`
	DestAsset   string `json:"dest_asset" binding:"required"`
	DestAddress string `json:"dest_address" binding:"required"`
	Amount      uint64 `json:"amount"`
	MinOut      uint64 `json:"min_out"`
	Sequence    uint64 `json:"sequence"`
	PubKey      string `json:"pub_key" binding:"required"`
	Signature   string `json:"signature" binding:"required"`
	Algo        uint8  `json:"algo"`
}

type orderResponse struct {
	ID        uint64            `json:"id"`
	Status    string            `json:"status"`
	Account   string            `json:"account"`
	Source    string            `json:"source"`
	Dest      string            `json:"dest"`
	Amount    uint64            `json:"amount"`
	MinOut    uint64            `json:"min_out"`
	Sequence  uint64            `json:"sequence"`
	CreatedAt int64             `json:"created_at_ns"`
	Hash      string            `json:"hash"`
	PrevHash  string            `json:"prev_hash,omitempty"`
	Result    *SettlementResult `json:"result,omitempty"`
}

func toOrderResponse(o Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		Status:    o.Status.String(),
		Account:   o.Intent.Account,
		Source:    o.Intent.Source.String(),
		Dest:      o.Intent.Dest.String(),
		Amount:    o.Intent.Amount,
		MinOut:    o.Intent.MinOut,
		Sequence:  o.Intent.Sequence,
		CreatedAt: o.CreatedAt.UnixNano(),
		Hash:      hex.EncodeToString(o.Hash),
		PrevHash:  hex.EncodeToString(o.PrevHash),
		Result:    o.Result,
	}
}

func (s *Server) getSequence(c *gin.Context) {
	seq := s.engine.NextSequence(c.Param("principal"))
	c.JSON(http.StatusOK, gin.H{"next_sequence": seq})
}

func (s *Server) submitIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, err := req.toIntent()
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error()})
		return
	}

	id, err := s.engine.SubmitIntent(c.Request.Context(), intent)
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": id})
}

func (req *intentRequest) toIntent() (*swap.Intent, error) {
	srcChain, err := swap.ParseChain(req.SourceChain)
	if err != nil {
		return nil, err
	}
	srcAsset, err := swap.ParseAsset(req.SourceAsset)
	if err != nil {
		return nil, err
	}
	dstChain, err := swap.ParseChain(req.DestChain)
	if err != nil {
		return nil, err
	}
	dstAsset, err := swap.ParseAsset(req.DestAsset)
	if err != nil {
		return nil, err
	}
	pubKey, err := hex.DecodeString(req.PubKey)
	if err != nil {
		return nil, swap.ErrInvalidKey
	}
	sig, err := hex.DecodeString(req.Signature)
	if err != nil {
		return nil, swap.ErrInvalidSignature
	}

	return &swap.Intent{
		Account:     req.Account,
		Source:      swap.AssetRef{Chain: srcChain, Asset: srcAsset},
		Dest:        swap.AssetRef{Chain: dstChain, Asset: dstAsset},
		DestAddress: req.DestAddress,
		Amount:      req.Amount,
		MinOut:      req.MinOut,
		Sequence:    req.Sequence,
		PubKey:      pubKey,
		Signature:   sig,
		Algo:        swap.Algo(req.Algo),
	}, nil
}

func (s *Server) listOrders(c *gin.Context) {
	orders := s.engine.ListOrders()
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	o, err := s.engine.GetOrder(id)
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (s *Server) cancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	if err := s.engine.CancelOrder(c.Request.Context(), id); err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "status": StatusCancelled.String()})
}

func (s *Server) verifyChain(c *gin.Context) {
	if err := VerifyChain(s.engine.ListOrders()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// httpStatus maps protocol sentinels to HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, swap.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, swap.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, swap.ErrAlreadySettling), errors.Is(err, swap.ErrNotCancellable),
		errors.Is(err, swap.ErrSequenceMismatch):
		return http.StatusConflict
	case errors.Is(err, swap.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadRequest
	}
}
