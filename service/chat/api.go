package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"PPGate/middleware/security"
)

// Read-only query surface over the membership index. Both handlers
// sit behind the bearer-token middleware and are safe to call from
// anywhere at any time.

// HandleUserRooms reports the rooms the authenticated user currently
// occupies.
func (s *Server) HandleUserRooms(c *gin.Context) {
	userID := c.GetString(security.CtxUserIDKey)
	rooms := s.reg.RoomsOf(userID)
	if rooms == nil {
		rooms = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// HandleRoomUsers reports the users currently present in a room.
func (s *Server) HandleRoomUsers(c *gin.Context) {
	users := s.reg.UsersOf(c.Param("room_id"))
	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
