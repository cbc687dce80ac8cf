package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/middleware"
	"github.com/faskesq-clinical-assist/internal/service"
)

const (
	teleconsultTurnTimeout = 60 * time.Second
	teleconsultMaxMessage  = 64 * 1024
	teleconsultMaxTurns    = 100
)

// originChecker applies the CORS origin list to websocket upgrades. Requests without an
// Origin header and same-host requests are always accepted.
func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(strings.TrimSuffix(o, "/"), origin) {
				return true
			}
		}
		return false
	}
}

// teleconsultFrame is a client frame. The first frame must carry the patient identity;
// every later frame carries one message from the patient.
type teleconsultFrame struct {
	PatientID   string `json:"patientId,omitempty"`
	PatientName string `json:"patientName,omitempty"`
	PatientDOB  string `json:"patientDob,omitempty"`
	Message     string `json:"message,omitempty"`
}

// teleconsultReply is a server frame.
type teleconsultReply struct {
	Type     string           `json:"type"` // "reply" or "error"
	Response string           `json:"response,omitempty"`
	Error    *domain.APIError `json:"error,omitempty"`
	Turn     int              `json:"turn"`
}

// handleTeleconsult runs one teleconsultation chat over a websocket. The server keeps
// the conversation history; the assistant greets first once the patient is identified.
func (s *Server) handleTeleconsult(c *gin.Context) {
	if s.services.Flows == nil {
		s.unavailable(c, "clinical flows")
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Teleconsult websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(teleconsultMaxMessage)

	requestID := c.GetString(middleware.CorrelationIDKey)
	log := s.logger.WithField("request_id", requestID)
	ctx := c.Request.Context()

	var session teleconsultFrame
	if err := conn.ReadJSON(&session); err != nil {
		log.WithError(err).Debug("Teleconsult closed before identification")
		return
	}
	if strings.TrimSpace(session.PatientID) == "" || strings.TrimSpace(session.PatientName) == "" {
		s.sendTeleconsultError(conn, domain.NewValidationError("patientId", "patient id and name are required", nil), requestID, 0)
		return
	}

	var history []domain.ChatMessage
	for turn := 0; turn < teleconsultMaxTurns; turn++ {
		if turn > 0 {
			message, err := s.readTeleconsultMessage(conn, requestID, turn)
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.WithError(err).Debug("Teleconsult read failed")
				}
				return
			}
			history = append(history, domain.ChatMessage{Role: "user", Content: message})
		}

		turnCtx, cancel := context.WithTimeout(ctx, teleconsultTurnTimeout)
		out, err := s.services.Flows.TeleconsultChat(turnCtx, &service.TeleconsultInput{
			PatientID:   session.PatientID,
			PatientName: session.PatientName,
			PatientDOB:  session.PatientDOB,
			History:     history,
		})
		cancel()
		if err != nil {
			s.sendTeleconsultError(conn, err, requestID, turn)
			var validation *domain.ValidationError
			if errors.As(err, &validation) {
				return
			}
			if len(history) > 0 {
				history = history[:len(history)-1]
			}
			continue
		}

		history = append(history, domain.ChatMessage{Role: "model", Content: out.Response})
		if err := conn.WriteJSON(teleconsultReply{Type: "reply", Response: out.Response, Turn: turn}); err != nil {
			log.WithError(err).Debug("Teleconsult write failed")
			return
		}
	}

	log.WithFields(logrus.Fields{"turns": teleconsultMaxTurns}).Info("Teleconsult reached the turn limit")
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "turn limit reached"))
}

// readTeleconsultMessage blocks until the patient sends a non-empty message.
func (s *Server) readTeleconsultMessage(conn *websocket.Conn, requestID string, turn int) (string, error) {
	for {
		var frame teleconsultFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return "", err
		}
		if message := strings.TrimSpace(frame.Message); message != "" {
			return message, nil
		}
		s.sendTeleconsultError(conn, domain.NewValidationError("message", "message is required", nil), requestID, turn)
	}
}

func (s *Server) sendTeleconsultError(conn *websocket.Conn, err error, requestID string, turn int) {
	_, code := domain.ClassifyError(err)
	reply := teleconsultReply{
		Type:  "error",
		Error: domain.NewAPIError(code, err.Error(), "", requestID),
		Turn:  turn,
	}
	if werr := conn.WriteJSON(reply); werr != nil {
		s.logger.WithError(werr).Debug("Teleconsult error frame not delivered")
	}
}
