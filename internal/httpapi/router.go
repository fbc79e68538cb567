// Package httpapi wires the live-session authority's websocket upgrade
// together with the small REST surface a client needs before it ever
// opens a socket: minting a new session, remixing or renaming an
// existing one, and resolving the stable playerId cookie. Route
// and middleware shape is grounded on Conceptual-Machines-magda-api's
// gin router, retargeted from its auth/chat endpoints to this
// sequencer's session lifecycle.
package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/schollz/keyboardia/internal/authority"
	"github.com/schollz/keyboardia/internal/identity"
	"github.com/schollz/keyboardia/internal/persistence"
	"github.com/schollz/keyboardia/internal/session"
)

// PlayerIDCookieName is the gorilla/sessions cookie name backing every
// resolved playerId.
const PlayerIDCookieName = "keyboardia_player"

// NewRouter builds the full gin.Engine: the REST session-lifecycle
// routes plus the /ws/:sessionId upgrade delegated to hub.
func NewRouter(hub *authority.Hub, store persistence.Store, cookieStore sessions.Store) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLog())

	h := &sessionHandler{store: store, cookies: cookieStore}

	router.GET("/health", healthCheck)
	router.POST("/api/sessions", h.create)
	router.POST("/api/sessions/:id/remix", h.remix)
	router.POST("/api/sessions/:id/rename", h.rename)
	router.GET("/api/sessions/:id/identity", h.resolveIdentity)
	router.GET("/ws/:sessionId", hub.ServeWS)

	return router
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type sessionHandler struct {
	store   persistence.Store
	cookies sessions.Store
}

type createRequest struct {
	Name string `json:"name"`
}

func (h *sessionHandler) create(c *gin.Context) {
	var req createRequest
	_ = c.ShouldBindJSON(&req) // an empty/absent body just means an unnamed session

	rec, err := h.store.Create(session.New(), req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *sessionHandler) remix(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.store.Remix(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *sessionHandler) rename(c *gin.Context) {
	id := c.Param("id")
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetName(id, req.Name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "name": req.Name})
}

// resolveIdentity mints or recalls the caller's stable playerId for
// this session id via a gorilla/sessions cookie, so the client
// can open the websocket's hello frame with a playerId that survives a
// page reload.
func (h *sessionHandler) resolveIdentity(c *gin.Context) {
	id := c.Param("id")
	store := identity.NewCookieStore(h.cookies, PlayerIDCookieName, c.Writer, c.Request)
	playerID, err := store.PlayerID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"playerId": playerID})
}

// requestLog is a minimal structured-log middleware: method, path, and
// status line per request, no external metrics or error-tracking hook.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Printf("httpapi: %s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}
