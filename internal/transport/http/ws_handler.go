package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/smuotoe/GeoElevate-sub000/internal/app"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
	"github.com/smuotoe/GeoElevate-sub000/internal/protocol"
)

// TokenValidator checks the opaque bearer credential presented at
// channel-open time.
type TokenValidator func(token string) bool

type WSHandler struct {
	service  *app.MatchService
	auth     TokenValidator
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.MatchService, auth TokenValidator) *WSHandler {
	if auth == nil {
		auth = func(string) bool { return true }
	}
	return &WSHandler{
		service: service,
		auth:    auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and speaks the match protocol: the first
// inbound frame must be join_match, everything after maps onto coordinator
// calls. The subscription is released on every exit path.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	token := r.URL.Query().Get("token")
	if playerID == "" {
		http.Error(w, "missing playerId", http.StatusBadRequest)
		return
	}
	if !h.auth(token) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var join protocol.JoinMatch
	var first protocol.Envelope
	if err := conn.ReadJSON(&first); err != nil {
		return
	}
	if first.Type != protocol.TypeJoinMatch || protocol.DecodePayload(first, &join) != nil {
		_ = conn.WriteJSON(protocol.MustEncode(protocol.TypeError, protocol.Error{Message: "expected join_match"}))
		return
	}

	updates, cancel, err := h.service.Join(r.Context(), join.MatchID, playerID)
	if err != nil {
		_ = conn.WriteJSON(protocol.MustEncode(protocol.TypeError, protocol.Error{Message: err.Error()}))
		return
	}
	defer cancel()

	send := make(chan protocol.Envelope, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- update:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound protocol.Envelope
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if done := h.dispatch(r, playerID, inbound, send); done {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, playerID string, inbound protocol.Envelope, send chan<- protocol.Envelope) (done bool) {
	switch inbound.Type {
	case protocol.TypeSubmitAnswer:
		var sub protocol.SubmitAnswer
		if err := protocol.DecodePayload(inbound, &sub); err != nil {
			send <- protocol.MustEncode(protocol.TypeError, protocol.Error{Message: "invalid submit_answer payload"})
			return false
		}
		if err := h.service.SubmitAnswer(r.Context(), sub.MatchID, playerID, sub); err != nil {
			// Idempotence rejections are protocol noise, not user errors.
			if errors.Is(err, domain.ErrAlreadyAnswered) {
				return false
			}
			send <- protocol.MustEncode(protocol.TypeError, protocol.Error{Message: err.Error()})
		}
		return false
	case protocol.TypeLeaveMatch:
		var leave protocol.LeaveMatch
		if err := protocol.DecodePayload(inbound, &leave); err == nil {
			h.service.Leave(r.Context(), leave.MatchID, playerID)
		}
		return true
	default:
		send <- protocol.MustEncode(protocol.TypeError, protocol.Error{Message: "unsupported message type"})
		return false
	}
}
