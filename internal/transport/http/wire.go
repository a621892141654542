package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sampsyo/band/internal/domain"
	"github.com/sampsyo/band/internal/shortcode"
)

// wireMessage is OutgoingMessage with ids rendered as short codes. The
// numeric ids never leave the process.
type wireMessage struct {
	ID    string    `json:"id"`
	Body  string    `json:"body"`
	User  string    `json:"user"`
	Votes int       `json:"votes"`
	TS    time.Time `json:"ts"`
}

type wireVote struct {
	Message string `json:"message"`
	Delta   int    `json:"delta"`
}

func toWire(m domain.OutgoingMessage) wireMessage {
	return wireMessage{
		ID:    shortcode.Encode(uint64(m.ID)),
		Body:  m.Body,
		User:  m.User,
		Votes: m.Votes,
		TS:    m.TS,
	}
}

func toWireVote(v domain.VoteEvent) wireVote {
	return wireVote{
		Message: shortcode.Encode(uint64(v.Message)),
		Delta:   v.Delta,
	}
}

func roomParam(c *gin.Context) (domain.RoomID, error) {
	raw, err := shortcode.Decode(c.Param("room"))
	if err != nil {
		return 0, domain.ErrRoomNotFound
	}
	return domain.RoomID(raw), nil
}

func msgParam(c *gin.Context) (domain.MessageID, error) {
	raw, err := shortcode.Decode(c.Param("msg"))
	if err != nil {
		return 0, domain.ErrNotFound
	}
	return domain.MessageID(raw), nil
}

// sessionHeader decodes the bearer session id from the Session header. A
// missing or malformed header is an invalid session, not a distinct error.
func sessionHeader(c *gin.Context) (domain.SessionID, error) {
	raw, err := shortcode.Decode(c.GetHeader("Session"))
	if err != nil {
		return 0, domain.ErrInvalidSession
	}
	return domain.SessionID(raw), nil
}

// fail maps the engine's error taxonomy onto status codes: absence is 404,
// a bad bearer is 403, a bad label is 400, and a storage fault is a logged
// 500. Nothing else leaks.
func fail(c *gin.Context, err error) {
	var storage *domain.StorageError
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidSession):
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid session"})
	case errors.Is(err, domain.ErrUserEmpty), errors.Is(err, domain.ErrUserTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &storage):
		log.Error().Err(err).Str("module", "transport.http").Msg("storage failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	default:
		log.Error().Err(err).Str("module", "transport.http").Msg("unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
