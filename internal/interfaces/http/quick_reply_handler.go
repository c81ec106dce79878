package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"wppserver/internal/entities"
	"wppserver/internal/interfaces"
)

// QuickReplyHandler serves the message template CRUD surface.
type QuickReplyHandler struct {
	store interfaces.QuickReplyStore
}

func NewQuickReplyHandler(store interfaces.QuickReplyStore) *QuickReplyHandler {
	return &QuickReplyHandler{store: store}
}

func (h *QuickReplyHandler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/quickmessages")
	{
		group.POST("", h.Create)
		group.GET("/:userId", h.List)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}

func (h *QuickReplyHandler) Create(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
		Title  string `json:"title"`
		Text   string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.UserID == "" || req.Title == "" || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId, title and text are required"})
		return
	}
	if !ValidateLength(req.Title, 1, MaxTitleLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title too long"})
		return
	}

	reply := &entities.QuickReply{
		UserID: req.UserID,
		Title:  SanitizeString(req.Title),
		Text:   SanitizeString(req.Text),
	}
	if err := h.store.Create(c.Request.Context(), reply); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (h *QuickReplyHandler) List(c *gin.Context) {
	replies, err := h.store.FindByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if replies == nil {
		replies = []entities.QuickReply{}
	}
	c.JSON(http.StatusOK, replies)
}

func (h *QuickReplyHandler) Update(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	reply, err := h.store.Update(c.Request.Context(), c.Param("id"), SanitizeString(req.Title), SanitizeString(req.Text))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if reply == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "quick message not found"})
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *QuickReplyHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if err == pgx.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "quick message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
