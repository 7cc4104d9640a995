package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shopkit-go/shop-api-server/internal/domains/members/application"
	"github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	sharederrors "github.com/shopkit-go/shop-api-server/internal/shared/errors"
)

// Handler exposes the member use cases over HTTP.
type Handler struct {
	service   ports.Service
	responder *sharederrors.ChainedResponder
}

// NewHandler wires the member service into a gin handler.
func NewHandler(service ports.Service) *Handler {
	return &Handler{
		service:   service,
		responder: sharederrors.NewChainedResponder("", mapMemberError),
	}
}

// Register mounts the member routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/api/members", h.register)
	r.GET("/api/members", h.list)
	r.GET("/api/members/:id", h.getByID)
}

type registerMemberRequest struct {
	Name    string `json:"name" binding:"required"`
	City    string `json:"city"`
	Street  string `json:"street"`
	Zipcode string `json:"zipcode"`
}

type memberResponse struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Address addressJSON `json:"address"`
}

type addressJSON struct {
	City    string `json:"city"`
	Street  string `json:"street"`
	Zipcode string `json:"zipcode"`
}

func toMemberResponse(member *domain.Member) memberResponse {
	return memberResponse{
		ID:   member.ID,
		Name: member.Name,
		Address: addressJSON{
			City:    member.Address.City(),
			Street:  member.Address.Street(),
			Zipcode: member.Address.Zipcode(),
		},
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	id, err := h.service.Register(c.Request.Context(), ports.RegisterMemberInput{
		Name:    req.Name,
		City:    req.City,
		Street:  req.Street,
		Zipcode: req.Zipcode,
	})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.responder.BadRequest(c, "member id must be an integer")
		return
	}
	member, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *Handler) list(c *gin.Context) {
	members, err := h.service.List(c.Request.Context())
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, member := range members {
		out = append(out, toMemberResponse(member))
	}
	c.JSON(http.StatusOK, out)
}

func mapMemberError(err error) (sharederrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return sharederrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrDuplicateName):
		return sharederrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return sharederrors.ErrValidation.WithDetail(err.Error()), true
	}
	return sharederrors.ProblemDetail{}, false
}
