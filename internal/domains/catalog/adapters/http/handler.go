package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/application"
	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	sharederrors "github.com/shopkit-go/shop-api-server/internal/shared/errors"
)

// Handler exposes the catalog use cases over HTTP.
type Handler struct {
	service   ports.Service
	responder *sharederrors.ChainedResponder
}

// NewHandler wires the catalog service into a gin handler.
func NewHandler(service ports.Service) *Handler {
	return &Handler{
		service:   service,
		responder: sharederrors.NewChainedResponder("", mapItemError),
	}
}

// Register mounts the catalog routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/api/items", h.createBook)
	r.GET("/api/items", h.list)
	r.GET("/api/items/:id", h.getByID)
	r.PUT("/api/items/:id", h.update)
	r.POST("/api/items/:id/stock", h.adjustStock)
}

type createBookRequest struct {
	Name          string `json:"name" binding:"required"`
	Price         int64  `json:"price"`
	StockQuantity int    `json:"stockQuantity"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
}

type updateItemRequest struct {
	Name   string `json:"name" binding:"required"`
	Price  int64  `json:"price"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// adjustStockRequest moves stock by a signed quantity; negative removes.
type adjustStockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type itemResponse struct {
	ID            int64  `json:"id"`
	Kind          string `json:"kind"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	StockQuantity int    `json:"stockQuantity"`
	Author        string `json:"author,omitempty"`
	ISBN          string `json:"isbn,omitempty"`
}

func toItemResponse(item *domain.Item) itemResponse {
	out := itemResponse{
		ID:            item.ID,
		Kind:          string(item.Kind),
		Name:          item.Name,
		Price:         item.Price,
		StockQuantity: item.StockQuantity,
	}
	if item.Book != nil {
		out.Author = item.Book.Author
		out.ISBN = item.Book.ISBN
	}
	return out
}

func (h *Handler) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	id, err := h.service.CreateBook(c.Request.Context(), ports.CreateBookInput{
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Author:        req.Author,
		ISBN:          req.ISBN,
	})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.responder.BadRequest(c, "item id must be an integer")
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	err = h.service.UpdateItem(c.Request.Context(), ports.UpdateItemInput{
		ID:     id,
		Name:   req.Name,
		Price:  req.Price,
		Author: req.Author,
		ISBN:   req.ISBN,
	})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adjustStock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.responder.BadRequest(c, "item id must be an integer")
		return
	}
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	if req.Quantity >= 0 {
		err = h.service.AddStock(c.Request.Context(), id, req.Quantity)
	} else {
		err = h.service.RemoveStock(c.Request.Context(), id, -req.Quantity)
	}
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.responder.BadRequest(c, "item id must be an integer")
		return
	}
	item, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	c.JSON(http.StatusOK, out)
}

func mapItemError(err error) (sharederrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return sharederrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, domain.ErrInsufficientStock):
		return sharederrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return sharederrors.ErrValidation.WithDetail(err.Error()), true
	}
	return sharederrors.ProblemDetail{}, false
}
