package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"loveletter-server/internal/loveletter"
	"loveletter-server/internal/qrcode"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/", s.HelloWorldHandler)

	mux.HandleFunc("/health", s.healthHandler)

	mux.HandleFunc("/qr", s.qrHandler)

	mux.HandleFunc("/websocket", s.websocketHandler)

	// Wrap the mux with CORS middleware
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Replace "*" with specific origins if needed
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"message": "Hello World"}
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonResp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.db.Health()
	if users, err := s.userStore.Count(r.Context()); err == nil {
		stats["known_players"] = strconv.Itoa(users)
	}

	resp, err := json.Marshal(stats)
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// qrHandler serves a PNG QR code of the public join link for one game.
func (s *Server) qrHandler(w http.ResponseWriter, r *http.Request) {
	gameID := NormalizeGameID(r.URL.Query().Get("game"))
	if err := ValidateGameID(gameID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.gameManager.GetGame(gameID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	png, err := qrcode.Generate(fmt.Sprintf("%s/?game=%s", s.publicURL, gameID))
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		log.Printf("Failed to write QR response: %v", err)
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: make environment-specific
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Printf("New connection: %s", connectionID)
	s.connectionManager.AddConnection(connectionID, socket)
	s.connectionHealth.UpdateActivity(connectionID)

	defer func() {
		playerID, hasOthers := s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.connectionHealth.RemoveConnection(connectionID)
		log.Printf("Connection closed: %s", connectionID)

		// A disconnect is a connectivity event, not a rules event: the
		// player stays in their games, co-participants just get told when
		// the last tab goes away.
		if playerID != "" && !hasOthers {
			s.notifyPresence(playerID, "player_disconnected")
		}
	}()

	// Lobby discovery snapshot for the fresh connection.
	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "games_list",
		Payload: GamesListMessage{Games: s.gameManager.Summaries()},
	}); err != nil {
		log.Printf("Failed to send games list to %s: %v", connectionID, err)
	}

	for {
		// Read from client
		msgType, data, err := socket.Read(ctx)

		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMITED: Slow down")
			continue
		}
		s.connectionHealth.UpdateActivity(connectionID)

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(socket, ctx, "Invalid JSON")
			continue
		}

		log.Printf("Message Type '%s' from %s", msg.Type, connectionID)

		if err := ValidateMessageType(msg.Type); err != nil {
			log.Printf("Unknown message type '%s' from %s", msg.Type, connectionID)
			s.sendError(socket, ctx, err.Error())
			continue
		}

		// Route the message
		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx, connectionID, msg.Payload)

		case "log_in":
			s.handleLogIn(socket, ctx, connectionID, msg.Payload)

		case "log_out":
			s.handleLogOut(socket, ctx, connectionID, msg.Payload)

		case "create_game":
			s.handleCreateGame(socket, ctx, connectionID, msg.Payload)

		case "join_game":
			s.handleJoinGame(socket, ctx, connectionID, msg.Payload)

		case "leave_game":
			s.handleLeaveGame(socket, ctx, connectionID, msg.Payload)

		case "start_game":
			s.handleStartGame(socket, ctx, connectionID, msg.Payload)

		case "perform_action":
			s.handlePerformAction(socket, ctx, connectionID, msg.Payload)
		}
	}
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string, msg json.RawMessage) {
	log.Printf("Ping from %s", connectionID)

	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send pong to %s: %v", connectionID, err)
	}
}

// handleLogIn binds the connection to an identity. A username creates or
// resumes the identity by name; a previously issued token resumes it
// directly (reconnect after a drop).
func (s *Server) handleLogIn(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req LogInRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid log_in payload")
		return
	}

	var identity Identity
	var token string
	var err error

	if req.Token != "" {
		identity, err = s.sessionManager.Resolve(req.Token)
		token = req.Token
	} else {
		if err = ValidateUsername(req.Username); err == nil {
			identity, err = s.userStore.GetOrCreate(ctx, req.Username)
			if err == nil {
				token = s.sessionManager.Issue(identity)
			}
		}
	}

	if err != nil {
		log.Printf("Login failed for %s: %v", connectionID, err)
		s.sendMessage(socket, ctx, ServerMessage{
			Type:    "log_in_failure",
			Payload: LogInFailure{Message: err.Error()},
		})
		return
	}

	hadConnections := len(s.connectionManager.ConnectionsFor(identity.ID)) > 0
	s.connectionManager.Bind(connectionID, identity.ID)
	log.Printf("Connection %s logged in as %s (%s)", connectionID, identity.Name, identity.ID)

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type: "logged_in",
		Payload: LogInResponse{
			PlayerID: identity.ID,
			Username: identity.Name,
			Token:    token,
		},
	}); err != nil {
		log.Printf("Failed to send logged_in: %v", err)
		return
	}

	// Resubscribe to every game the identity is in: notify co-participants,
	// and resync this connection with a fresh projection so a reconnecting
	// client is never stale.
	for _, game := range s.gameManager.GamesFor(identity.ID) {
		if !hadConnections {
			s.notifyGame(game, identity.ID, "player_reconnected", PlayerStatusNotification{
				GameID:   game.ID,
				PlayerID: identity.ID,
				Username: identity.Name,
			})
		}

		status, state := game.Snapshot()
		if state != nil {
			view := loveletter.AsVisibleBy(*state, identity.ID)
			s.sendMessage(socket, ctx, ServerMessage{
				Type: "game_state",
				Payload: GameStateMessage{
					GameID: game.ID,
					Status: string(status),
					State:  &view,
				},
			})
		}
	}
}

// handleLogOut detaches the connection from its identity without touching
// any game membership.
func (s *Server) handleLogOut(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req LogOutRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			s.sendError(socket, ctx, "Invalid log_out payload")
			return
		}
	}

	if req.Token != "" {
		s.sessionManager.Revoke(req.Token)
	}

	playerID, hasOthers := s.connectionManager.Unbind(connectionID)
	if playerID == "" {
		s.sendError(socket, ctx, "NOT_LOGGED_IN: No identity bound to this connection")
		return
	}

	log.Printf("Connection %s logged out of %s", connectionID, playerID)

	if !hasOthers {
		s.notifyPresence(playerID, "player_disconnected")
	}

	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "logged_out",
		Payload: struct{}{},
	})
}

func (s *Server) handleCreateGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	identity, ok := s.requireIdentity(socket, ctx, connectionID)
	if !ok {
		return
	}

	var req CreateGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid create_game payload")
		return
	}

	// Untouched settings mean a standard table: 2 needed, room for 4.
	if req.Required == 0 && req.Optional == 0 {
		req.Required, req.Optional = 2, 2
	}

	game, err := s.gameManager.CreateGame(identity, GameSettings{
		Required: req.Required,
		Optional: req.Optional,
	})
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	log.Printf("Game %s created by %s", game.ID, identity.Name)

	// Everyone sees the new table, the creator included.
	s.broadcastAll("game_created", game.Summary())
}

func (s *Server) handleJoinGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	identity, ok := s.requireIdentity(socket, ctx, connectionID)
	if !ok {
		return
	}

	var req JoinGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid join_game payload")
		return
	}

	game, err := s.gameManager.JoinGame(req.GameID, identity)
	if err != nil {
		s.sendMessage(socket, ctx, ServerMessage{
			Type: "join_failure",
			Payload: JoinGameResponse{
				Success: false,
				GameID:  NormalizeGameID(req.GameID),
				Message: err.Error(),
			},
		})
		return
	}

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type: "game_joined",
		Payload: JoinGameResponse{
			Success: true,
			GameID:  game.ID,
		},
	}); err != nil {
		log.Printf("Failed to send game_joined: %v", err)
	}

	s.notifyGame(game, identity.ID, "player_joined", PlayerStatusNotification{
		GameID:   game.ID,
		PlayerID: identity.ID,
		Username: identity.Name,
	})
	s.broadcastGamesList()
}

func (s *Server) handleLeaveGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	identity, ok := s.requireIdentity(socket, ctx, connectionID)
	if !ok {
		return
	}

	var req LeaveGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid leave_game payload")
		return
	}

	game, left, err := s.gameManager.LeaveGame(req.GameID, identity.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "game_left",
		Payload: LeaveGameResponse{GameID: game.ID},
	}); err != nil {
		log.Printf("Failed to send game_left: %v", err)
	}

	if left {
		s.notifyGame(game, identity.ID, "player_left", PlayerStatusNotification{
			GameID:   game.ID,
			PlayerID: identity.ID,
			Username: identity.Name,
		})
		s.broadcastGamesList()
	}
}

func (s *Server) handleStartGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	identity, ok := s.requireIdentity(socket, ctx, connectionID)
	if !ok {
		return
	}

	var req StartGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid start_game payload")
		return
	}

	game, err := s.gameManager.StartGame(req.GameID, identity.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	log.Printf("Game %s started by %s", game.ID, identity.Name)

	s.notifyGame(game, "", "game_started", GameStartedNotification{
		GameID:  game.ID,
		Message: "The round has started",
	})
	s.broadcastGameState(game, nil)
	s.broadcastGamesList()
}

// handlePerformAction runs one card play through the rules engine and fans
// the result out.
func (s *Server) handlePerformAction(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	identity, ok := s.requireIdentity(socket, ctx, connectionID)
	if !ok {
		return
	}

	var req ActionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "INVALID_PAYLOAD: Invalid action request")
		return
	}

	game, err := s.gameManager.GetGame(req.GameID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	res, err := s.gameManager.SubmitAction(game.ID, identity.ID, loveletter.Action{
		Card:     req.Card,
		Target:   req.Target,
		Declared: req.Declared,
	})
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// Engine no-op: nothing happened, nobody else needs to hear about it.
	if !res.Changed {
		s.sendMessage(socket, ctx, ServerMessage{
			Type: "action_result",
			Payload: ActionResult{
				GameID:  game.ID,
				Changed: false,
				Message: "Action had no effect",
			},
		})
		return
	}

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    "action_result",
		Payload: ActionResult{GameID: game.ID, Changed: true},
	}); err != nil {
		log.Printf("Failed to send action_result: %v", err)
	}

	// The Priest's reveal goes only to the acting player's connections,
	// never into the shared broadcast.
	if res.Reveal != nil {
		s.sendToIdentity(res.Reveal.To, ServerMessage{
			Type: "card_revealed",
			Payload: CardRevealedMessage{
				GameID: game.ID,
				Target: res.Reveal.Target,
				Card:   res.Reveal.Card,
			},
		})
	}

	s.broadcastGameState(game, res.Events)

	if res.State.Status == loveletter.StatusRoundOver {
		log.Printf("Game %s round over, winners: %v", game.ID, res.State.Winners)
		s.broadcastGamesList()
	}
}

// requireIdentity resolves the connection's bound identity or tells the
// client to log in first.
func (s *Server) requireIdentity(socket *websocket.Conn, ctx context.Context, connectionID string) (Identity, bool) {
	playerID := s.connectionManager.IdentityFor(connectionID)
	if playerID == "" {
		s.sendError(socket, ctx, "NOT_LOGGED_IN: Log in first")
		return Identity{}, false
	}

	identity, err := s.userStore.Get(ctx, playerID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return Identity{}, false
	}

	return identity, true
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, msg string) {
	response := ServerMessage{
		Type: "error",
		Payload: ErrorMessage{
			Message: msg,
		},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send error message: %v", err)
	}
}

// sendToIdentity delivers one message to every connection a player holds.
func (s *Server) sendToIdentity(playerID string, msg ServerMessage) {
	for _, conn := range s.connectionManager.ConnectionsFor(playerID) {
		// Use background context for broadcasts
		if err := s.sendMessage(conn, context.Background(), msg); err != nil {
			log.Printf("Failed to send %s to %s: %v", msg.Type, playerID, err)
		}
	}
}

// broadcastAll fans a message out to every live connection, logged in or not.
func (s *Server) broadcastAll(messageType string, payload interface{}) {
	msg := ServerMessage{Type: messageType, Payload: payload}
	for _, conn := range s.connectionManager.AllConnections() {
		if err := s.sendMessage(conn, context.Background(), msg); err != nil {
			log.Printf("Failed to broadcast %s: %v", messageType, err)
		}
	}
}

func (s *Server) broadcastGamesList() {
	s.broadcastAll("games_list", GamesListMessage{Games: s.gameManager.Summaries()})
}

// notifyGame sends one message to every participant except exceptID.
func (s *Server) notifyGame(game *GameSession, exceptID, messageType string, payload interface{}) {
	msg := ServerMessage{Type: messageType, Payload: payload}
	for _, p := range game.Participants() {
		if p.ID == exceptID {
			continue
		}
		for _, conn := range s.connectionManager.ConnectionsFor(p.ID) {
			if err := s.sendMessage(conn, context.Background(), msg); err != nil {
				log.Printf("Failed to notify %s of %s: %v", p.Name, messageType, err)
			}
		}
	}
}

// notifyPresence tells co-participants in every game the player belongs to
// about a connectivity change.
func (s *Server) notifyPresence(playerID, messageType string) {
	identity, err := s.userStore.Get(context.Background(), playerID)
	if err != nil {
		log.Printf("Presence lookup failed for %s: %v", playerID, err)
		identity = Identity{ID: playerID}
	}

	for _, game := range s.gameManager.GamesFor(playerID) {
		s.notifyGame(game, playerID, messageType, PlayerStatusNotification{
			GameID:   game.ID,
			PlayerID: playerID,
			Username: identity.Name,
		})
	}
}

// broadcastGameState pushes a personalized projection to every participant.
// Each viewer gets their own AsVisibleBy rendering; no two viewers may ever
// receive each other's cards.
func (s *Server) broadcastGameState(game *GameSession, events []loveletter.Event) {
	status, state := game.Snapshot()
	if state == nil {
		log.Printf("Warning: Attempted to broadcast game state before game started")
		return
	}

	for _, p := range game.Participants() {
		view := loveletter.AsVisibleBy(*state, p.ID)
		msg := ServerMessage{
			Type: "game_state",
			Payload: GameStateMessage{
				GameID: game.ID,
				Status: string(status),
				State:  &view,
				Events: events,
			},
		}

		for _, conn := range s.connectionManager.ConnectionsFor(p.ID) {
			// Use background context for broadcasts
			if err := s.sendMessage(conn, context.Background(), msg); err != nil {
				log.Printf("Failed to broadcast game state to %s: %v", p.Name, err)
			}
		}
	}
}
