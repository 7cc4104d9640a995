package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	catalogdomain "github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	catalogports "github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	membersports "github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/application"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	sharederrors "github.com/shopkit-go/shop-api-server/internal/shared/errors"
)

// Handler exposes the order use cases over HTTP. Listing takes an explicit
// strategy query parameter; every strategy answers with the same DTO shape,
// so switching plans is invisible to clients except in latency.
type Handler struct {
	service      ports.Service
	orchestrator ports.PlacementOrchestrator
	responder    *sharederrors.ChainedResponder
}

// NewHandler wires the orders service and placement orchestrator into a gin
// handler.
func NewHandler(service ports.Service, orchestrator ports.PlacementOrchestrator) *Handler {
	return &Handler{
		service:      service,
		orchestrator: orchestrator,
		responder:    sharederrors.NewChainedResponder("", mapOrderError),
	}
}

// Register mounts the order routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/api/orders", h.place)
	r.GET("/api/orders", h.search)
	r.GET("/api/orders/:id", h.getByID)
	r.POST("/api/orders/:id/cancel", h.cancel)
}

type placeOrderRequest struct {
	MemberID int64 `json:"memberId" binding:"required"`
	ItemID   int64 `json:"itemId" binding:"required"`
	Count    int   `json:"count" binding:"required"`
}

type orderLineJSON struct {
	ItemName   string `json:"itemName"`
	OrderPrice int64  `json:"orderPrice"`
	Count      int    `json:"count"`
}

type orderSummaryJSON struct {
	OrderID    int64           `json:"orderId"`
	MemberName string          `json:"memberName"`
	OrderDate  time.Time       `json:"orderDate"`
	Status     string          `json:"status"`
	Address    addressJSON     `json:"address"`
	Items      []orderLineJSON `json:"items"`
}

type addressJSON struct {
	City    string `json:"city"`
	Street  string `json:"street"`
	Zipcode string `json:"zipcode"`
}

func toSummaryJSON(summary ports.OrderSummary) orderSummaryJSON {
	out := orderSummaryJSON{
		OrderID:    summary.OrderID,
		MemberName: summary.MemberName,
		OrderDate:  summary.OrderDate,
		Status:     string(summary.Status),
		Address: addressJSON{
			City:    summary.City,
			Street:  summary.Street,
			Zipcode: summary.Zipcode,
		},
		Items: make([]orderLineJSON, 0, len(summary.Items)),
	}
	for _, line := range summary.Items {
		out.Items = append(out.Items, orderLineJSON{
			ItemName:   line.ItemName,
			OrderPrice: line.OrderPrice,
			Count:      line.Count,
		})
	}
	return out
}

func (h *Handler) place(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	orderID, err := h.orchestrator.PlaceOrder(c.Request.Context(), ports.PlaceOrderInput{
		MemberID: req.MemberID,
		ItemID:   req.ItemID,
		Count:    req.Count,
	})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": orderID})
}

func (h *Handler) cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.responder.BadRequest(c, "order id must be an integer")
		return
	}
	if err := h.service.CancelOrder(c.Request.Context(), id); err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.responder.BadRequest(c, "order id must be an integer")
		return
	}
	summary, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSummaryJSON(*summary))
}

func (h *Handler) search(c *gin.Context) {
	input, err := parseSearch(c)
	if err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	summaries, err := h.service.Search(c.Request.Context(), input)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	out := make([]orderSummaryJSON, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, toSummaryJSON(summary))
	}
	c.JSON(http.StatusOK, out)
}

func parseSearch(c *gin.Context) (ports.SearchInput, error) {
	input := ports.SearchInput{
		Search: ports.Search{MemberName: c.Query("memberName")},
	}

	if raw := c.Query("status"); raw != "" {
		status := domain.Status(raw)
		if status != domain.StatusOrder && status != domain.StatusCancel {
			return ports.SearchInput{}, errors.New("status must be ORDER or CANCEL")
		}
		input.Search.Status = &status
	}

	if raw := c.Query("strategy"); raw != "" {
		strategy := ports.Strategy(raw)
		known := false
		for _, s := range ports.Strategies {
			if s == strategy {
				known = true
				break
			}
		}
		if !known {
			return ports.SearchInput{}, errors.New("unknown strategy: " + raw)
		}
		input.Strategy = strategy
	}

	rawOffset, rawLimit := c.Query("offset"), c.Query("limit")
	if rawOffset != "" || rawLimit != "" {
		page := ports.Page{Limit: ports.DefaultLimit}
		if rawOffset != "" {
			offset, err := strconv.Atoi(rawOffset)
			if err != nil || offset < 0 {
				return ports.SearchInput{}, errors.New("offset must be a non-negative integer")
			}
			page.Offset = offset
		}
		if rawLimit != "" {
			limit, err := strconv.Atoi(rawLimit)
			if err != nil || limit <= 0 {
				return ports.SearchInput{}, errors.New("limit must be a positive integer")
			}
			page.Limit = limit
		}
		input.Page = &page
	}
	return input, nil
}

func mapOrderError(err error) (sharederrors.ProblemDetail, bool) {
	switch {
	// Placement reaches into the members and catalog contexts, so their
	// not-found sentinels surface here too.
	case errors.Is(err, ports.ErrNotFound),
		errors.Is(err, membersports.ErrNotFound),
		errors.Is(err, catalogports.ErrNotFound):
		return sharederrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrUnsupportedQueryShape):
		return sharederrors.ErrBadRequest.WithDetail(err.Error()), true
	case errors.Is(err, catalogdomain.ErrInsufficientStock):
		return sharederrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, domain.ErrAlreadyDelivered), errors.Is(err, domain.ErrAlreadyCancelled):
		return sharederrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return sharederrors.ErrValidation.WithDetail(err.Error()), true
	}
	return sharederrors.ProblemDetail{}, false
}
