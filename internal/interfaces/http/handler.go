package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"wppserver/internal/entities"
	"wppserver/internal/infrastructure"
	"wppserver/internal/interfaces"
	"wppserver/internal/usecases"
)

type Handler struct {
	manager     *usecases.SessionManager
	chatService *usecases.ChatService
	tenants     interfaces.TenantStore
	qrCache     *infrastructure.QRCache
}

func NewHandler(manager *usecases.SessionManager, chatService *usecases.ChatService, tenants interfaces.TenantStore, qrCache *infrastructure.QRCache) *Handler {
	return &Handler{
		manager:     manager,
		chatService: chatService,
		tenants:     tenants,
		qrCache:     qrCache,
	}
}

func SetupRoutes(
	r *gin.Engine,
	manager *usecases.SessionManager,
	chatService *usecases.ChatService,
	auth *usecases.AuthUsecase,
	tenants interfaces.TenantStore,
	quickReplies interfaces.QuickReplyStore,
	qrCache *infrastructure.QRCache,
	wsHandler gin.HandlerFunc,
	middleware *Middleware,
) {
	h := NewHandler(manager, chatService, tenants, qrCache)
	qh := NewQuickReplyHandler(quickReplies)

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(50 << 20)) // media uploads arrive base64-encoded
	r.Use(middleware.CORSMiddleware())

	// Real-time subscriber endpoint
	r.GET("/socket", wsHandler)

	// Public Auth Routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := auth.Login(loginReq.Username, loginReq.Password)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})

		authGroup.POST("/register", func(c *gin.Context) {
			var regReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&regReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			if !ValidSlug(regReq.Username) || len(regReq.Password) < 6 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 6 chars)"})
				return
			}
			if err := auth.Register(regReq.Username, regReq.Password); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"status": "registered"})
		})
	}

	api := r.Group("/")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(10, 20))
	{
		clients := api.Group("/clients")
		{
			clients.GET("", h.GetClients)
			clients.GET("/:clientId", h.GetClients)
			clients.POST("", h.CreateClient)
			clients.PUT("/:clientId", h.UpdateClient)
			clients.DELETE("/:clientId", h.DeleteClient)
			clients.POST("/activeClient/:clientId", h.ActivateClient)
			clients.POST("/disconnect/:clientId", h.DisconnectClient)
			clients.GET("/status/:clientId", h.GetClientStatus)
			clients.GET("/qr/:clientId", h.GetClientQR)
		}

		chats := api.Group("/chats")
		{
			chats.GET("/:clientId", h.GetLiveChats)
			chats.GET("/db/:clientId", h.GetStoredChats)
			chats.GET("/messages/:clientId/:number", h.GetChatMessages)
			chats.POST("", h.SendMessage)
			chats.DELETE("/:clientId/:remoteId", h.DeleteChat)
			chats.GET("/labels/:clientId/:remoteId", h.GetLabels)
			chats.POST("/labels/:clientId/:remoteId", h.AddLabel)
			chats.DELETE("/labels/:clientId/:remoteId", h.RemoveLabel)
		}

		// Quick reply templates
		qh.RegisterRoutes(api)
	}
}

// GetClients lists tenants, optionally filtered by owning user.
func (h *Handler) GetClients(c *gin.Context) {
	userID := c.Param("clientId")

	var (
		tenants []entities.Tenant
		err     error
	)
	if userID != "" {
		tenants, err = h.tenants.FindByUser(c.Request.Context(), userID)
	} else {
		tenants, err = h.tenants.All(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tenants)
}

func (h *Handler) CreateClient(c *gin.Context) {
	var req struct {
		UserID    string `json:"userId"`
		WppNumber string `json:"wppNumber"`
		Name      string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and name are required"})
		return
	}

	tenant := &entities.Tenant{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		WppNumber: req.WppNumber,
		Name:      SanitizeString(req.Name),
	}
	if tenant.WppNumber == "" {
		tenant.WppNumber = uuid.NewString()
	}

	if err := h.tenants.Create(c.Request.Context(), tenant); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tenant)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	clientID := c.Param("clientId")

	tenant, err := h.tenants.GetByID(c.Request.Context(), clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	var req struct {
		Name      string `json:"name"`
		WppNumber string `json:"wppNumber"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != "" {
		tenant.Name = SanitizeString(req.Name)
	}
	if req.WppNumber != "" {
		tenant.WppNumber = req.WppNumber
	}

	if err := h.tenants.Update(c.Request.Context(), tenant); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// DeleteClient removes the tenant record and tears down any live
// session it still holds.
func (h *Handler) DeleteClient(c *gin.Context) {
	clientID := c.Param("clientId")

	if err := h.tenants.Delete(c.Request.Context(), clientID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	result := h.manager.Disconnect(clientID)
	c.JSON(http.StatusOK, gin.H{"deleted": clientID, "session": result})
}

func (h *Handler) ActivateClient(c *gin.Context) {
	clientID := c.Param("clientId")

	if err := h.manager.Activate(c.Request.Context(), clientID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "activating", "clientId": clientID})
}

func (h *Handler) DisconnectClient(c *gin.Context) {
	result := h.manager.Disconnect(c.Param("clientId"))
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetClientStatus(c *gin.Context) {
	status := h.manager.Status(c.Request.Context(), c.Param("clientId"))
	c.JSON(http.StatusOK, status)
}

// GetClientQR renders the cached pairing challenge as a PNG.
func (h *Handler) GetClientQR(c *gin.Context) {
	clientID := c.Param("clientId")

	status := h.manager.Status(c.Request.Context(), clientID)
	if status.IsActive {
		c.String(http.StatusOK, "Already logged in")
		return
	}

	code := h.qrCache.Latest(clientID)
	if code == "" {
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) GetLiveChats(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))

	chats, err := h.chatService.LiveChats(c.Request.Context(), c.Param("clientId"), limit, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (h *Handler) GetStoredChats(c *gin.Context) {
	chats, err := h.chatService.StoredChats(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (h *Handler) GetChatMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	pageResult, err := h.chatService.Messages(c.Request.Context(), c.Param("clientId"), c.Param("number"), limit, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pageResult)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req entities.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !ValidateLength(req.Message, 0, MaxMessageLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	sent, err := h.chatService.Send(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sent)
}

func (h *Handler) DeleteChat(c *gin.Context) {
	if err := h.chatService.DeleteChat(c.Request.Context(), c.Param("clientId"), c.Param("remoteId")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) GetLabels(c *gin.Context) {
	chat, err := h.chatService.Labels(c.Request.Context(), c.Param("clientId"), c.Param("remoteId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if chat == nil {
		c.JSON(http.StatusOK, gin.H{"labels": []string{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": chat.Labels})
}

func (h *Handler) AddLabel(c *gin.Context) {
	var req struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
		return
	}

	if err := h.chatService.AddLabel(c.Request.Context(), c.Param("clientId"), c.Param("remoteId"), req.Label); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

func (h *Handler) RemoveLabel(c *gin.Context) {
	var req struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
		return
	}

	if err := h.chatService.RemoveLabel(c.Request.Context(), c.Param("clientId"), c.Param("remoteId"), req.Label); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}
