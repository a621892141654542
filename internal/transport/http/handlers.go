package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sampsyo/band/internal/app"
	"github.com/sampsyo/band/internal/config"
	"github.com/sampsyo/band/internal/domain"
	"github.com/sampsyo/band/internal/shortcode"
)

type Controller struct {
	Dispatcher *app.Dispatcher
	Config     *config.Config
	Limiter    *PostRateLimiter
}

type userPayload struct {
	User string `json:"user"`
}

func (ctl *Controller) handleIndex(c *gin.Context) {
	c.File(ctl.Config.StaticPath + "/index.html")
}

// handleCreateRoom makes a room and sends the browser to its page.
func (ctl *Controller) handleCreateRoom(c *gin.Context) {
	id, err := ctl.Dispatcher.CreateRoom()
	if err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/"+shortcode.Encode(uint64(id)))
}

func (ctl *Controller) handleRoomPage(c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	ok, err := ctl.Dispatcher.RoomExists(room)
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		fail(c, domain.ErrRoomNotFound)
		return
	}
	c.File(ctl.Config.StaticPath + "/chat.html")
}

func (ctl *Controller) handleHistory(c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	history, err := ctl.Dispatcher.GetHistory(room)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]wireMessage, 0, len(history))
	for _, m := range history {
		out = append(out, toWire(m))
	}
	c.JSON(http.StatusOK, out)
}

// handleCreateSession opens a session and returns its bearer code as plain
// text. The code is also dropped into the cookie session so a returning
// browser can resume without local storage.
func (ctl *Controller) handleCreateSession(c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	var p userPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
		return
	}
	id, err := ctl.Dispatcher.CreateSession(room, p.User)
	if err != nil {
		fail(c, err)
		return
	}
	code := shortcode.Encode(uint64(id))

	cookie := sessions.Default(c)
	cookie.Set("session:"+c.Param("room"), code)
	if err := cookie.Save(); err != nil {
		log.Warn().Err(err).Str("module", "transport.http").Msg("cookie session save failed")
	}

	log.Info().Str("module", "transport.http").
		Str("ct", c.GetString("client_token")).
		Str("room", c.Param("room")).
		Msg("session created")
	c.String(http.StatusOK, code)
}

// presentedSession reads the bearer code from the Session header, falling
// back to the cookie session for browsers that lost local state.
func (ctl *Controller) presentedSession(c *gin.Context) (domain.SessionID, error) {
	if c.GetHeader("Session") != "" {
		return sessionHeader(c)
	}
	cookie := sessions.Default(c)
	code, _ := cookie.Get("session:" + c.Param("room")).(string)
	raw, err := shortcode.Decode(code)
	if err != nil {
		return 0, domain.ErrInvalidSession
	}
	return domain.SessionID(raw), nil
}

func (ctl *Controller) handleGetSession(c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	id, err := ctl.presentedSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	sess, err := ctl.Dispatcher.GetSession(room, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (ctl *Controller) handleRenameSession(c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	id, err := ctl.presentedSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	var p userPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
		return
	}
	if err := ctl.Dispatcher.RenameSession(room, id, p.User); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (ctl *Controller) handlePostMessage(c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	id, err := ctl.presentedSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	if !ctl.Limiter.Allow(id) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "slow down"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, ctl.Config.ReadLimit))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad body"})
		return
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}
	out, err := ctl.Dispatcher.PostMessage(room, id, text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toWire(out))
}

// handleVote sets or resets a vote; the body is "1" to set, "0" to reset.
func (ctl *Controller) handleVote(c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	id, err := ctl.presentedSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	msg, err := msgParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 8))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad body"})
		return
	}
	var want bool
	switch strings.TrimSpace(string(body)) {
	case "1":
		want = true
	case "0":
		want = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "vote body must be 1 or 0"})
		return
	}
	if err := ctl.Dispatcher.CastVote(room, id, msg, want); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// handleVotes lists the message codes this session has voted for, so a
// reloading client can restore its vote markers.
func (ctl *Controller) handleVotes(c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	id, err := ctl.presentedSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	msgs, err := ctl.Dispatcher.VotedMessages(room, id)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, shortcode.Encode(uint64(m)))
	}
	c.JSON(http.StatusOK, out)
}
