package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/httpapi/response"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/network"
)

// action exposes one Kids Mode action over REST. The request body, if any,
// is the action payload.
func (s *Server) action(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			response.RespondError(c, fmt.Errorf("%w: %v", response.ErrBadRequest, err))
			return
		}
		a := network.Action{Type: kind}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
			a.Payload = json.RawMessage(trimmed)
		}
		data, err := s.d.Hub.Execute(c.Request.Context(), a)
		if err != nil {
			response.RespondError(c, err)
			return
		}
		response.RespondOK(c, data)
	}
}

func (s *Server) recap(c *gin.Context) {
	if s.d.Recapper == nil {
		response.RespondError(c, fmt.Errorf("%w: recap storage disabled", response.ErrNotFound))
		return
	}
	var since time.Time
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.RespondError(c, fmt.Errorf("%w: since must be RFC3339", response.ErrBadRequest))
			return
		}
		since = t
	}
	recap, err := s.d.Recapper.GenerateRecap(c.Request.Context(), s.d.Game.SessionID(), since)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, recap)
}

func (s *Server) events(c *gin.Context) {
	var f network.ReplayFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", response.ErrBadRequest, err))
		return
	}
	response.RespondOK(c, network.BuildReplay(s.d.EventLog, s.d.Game.SessionID(), f))
}

func (s *Server) event(c *gin.Context) {
	ev, ok := network.FindEvent(s.d.EventLog, c.Param("id"))
	if !ok {
		response.RespondError(c, fmt.Errorf("%w: event %s", response.ErrNotFound, c.Param("id")))
		return
	}
	response.RespondOK(c, ev)
}

func (s *Server) stats(c *gin.Context) {
	response.RespondOK(c, network.ReplayStats(s.d.EventLog))
}
