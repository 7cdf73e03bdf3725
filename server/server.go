package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Efromomr/quiz-board/broadcast"
	"github.com/Efromomr/quiz-board/config"
	"github.com/Efromomr/quiz-board/game"
	"github.com/Efromomr/quiz-board/logger"
	"github.com/Efromomr/quiz-board/monitor"
	"github.com/Efromomr/quiz-board/network"
	"github.com/Efromomr/quiz-board/persistence"
	quizboard_rpc "github.com/Efromomr/quiz-board/rpc"
	"github.com/Efromomr/quiz-board/services"
	"github.com/Efromomr/quiz-board/session"
	"github.com/Efromomr/quiz-board/store"
	"github.com/Efromomr/quiz-board/sweeper"
)

type GameServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	store          *store.Store
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	recordService  *services.RecordService
	rpcServer      *quizboard_rpc.Server
	monitor        *monitor.Monitor
	sweeper        *sweeper.Sweeper
	db             persistence.Database
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		store:          store.NewStore(),
		sessionManager: session.NewManager(),
		recordService:  services.NewRecordService(db),
		monitor:        monitor.NewMonitor("quizboard"),
		db:             db,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewSessionBroadcaster(s.sessionManager)

	// 初始化后台扫描器
	s.sweeper = sweeper.NewSweeper(s.store, s.broadcaster, s.monitor, cfg.Game.SweepInterval)

	// 初始化RPC服务器
	rpcServer, err := quizboard_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	admin := quizboard_rpc.NewAdmin(s.store, s.sessionManager, s.recordService, s.createSession)
	rpc.Register(admin)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.sweeper.Start()
	s.monitor.StartServer(s.cfg.Server.MetricsAddress)

	r := chi.NewRouter()
	r.Post("/sessions", s.handleCreateSession)
	r.Get("/sessions/{code}/qr", s.handleSessionQR)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	return http.ListenAndServe(s.cfg.Server.HTTPAddress, r)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.sweeper.Stop()
	s.rpcServer.Stop()
}

// createSession loads the question set and registers a fresh session under a
// newly generated code. Creation is synchronous: the session accepts no
// command before the questions are in place.
func (s *GameServer) createSession() (string, error) {
	questions, err := s.db.LoadQuestions()
	if err != nil {
		return "", err
	}

	settings := game.Settings{
		BoardLength:   s.cfg.Game.BoardLength,
		TurnTimeout:   s.cfg.Game.TurnTimeout,
		AnswerTimeout: s.cfg.Game.AnswerTimeout,
	}
	sess, err := s.store.Create(func(code string) (*game.Session, error) {
		return game.NewSession(code, questions, settings)
	})
	if err != nil {
		return "", err
	}
	sess.SetRecordSink(s.recordService.Record)
	s.monitor.SetActiveSessions(s.store.Count())

	logger.Log.Infof("Created session %s", sess.ID)
	return sess.ID, nil
}

func (s *GameServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.createSession()
	if err != nil {
		logger.Log.Errorf("Session creation failed: %v", err)
		http.Error(w, "session creation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"session_id": id})
}

// handleSessionQR renders the join link for a session as a PNG QR code.
func (s *GameServer) handleSessionQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, exists := s.store.Get(code); !exists {
		http.NotFound(w, r)
		return
	}

	joinURL := "http://" + r.Host + "/?session=" + code
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "qr encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncConnectedPlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecConnectedPlayers()
		s.handleDisconnect(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// handleDisconnect marks the player as gone in every session that knows the
// identity. A player is normally live in one game at a time, but the registry
// does not assume it.
func (s *GameServer) handleDisconnect(sess *session.Session) {
	playerID, bound := s.store.UnbindConnection(sess.GetID())
	if !bound {
		return
	}
	// A reconnect may already have opened a fresh connection for the same
	// player; in that case the old socket closing must not pause the game.
	if remaining := s.sessionManager.GetByPlayerID(playerID); len(remaining) > 0 {
		return
	}

	for _, g := range s.store.Sessions() {
		events := g.Disconnect(playerID)
		if len(events) == 0 {
			continue
		}
		s.broadcaster.Dispatch(g.ID, events)
	}
}

type joinRequest struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Option     int    `json:"option"`
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncCommandsReceived()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
		return
	case network.MsgTypeJoin:
		s.handleJoin(sess, packet)
	case network.MsgTypeRoll:
		s.handleCommand(sess, func(g *game.Session, playerID string) []network.Outbound {
			return g.Roll(playerID)
		})
	case network.MsgTypeAnswer:
		var req answerRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return
		}
		s.handleCommand(sess, func(g *game.Session, playerID string) []network.Outbound {
			return g.Answer(playerID, req.QuestionID, req.Option)
		})
	case network.MsgTypeRestart:
		s.handleCommand(sess, func(g *game.Session, playerID string) []network.Outbound {
			return g.Restart()
		})
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		return
	}

	s.monitor.ObserveTransitionLatency(time.Since(start))
}

func (s *GameServer) handleJoin(sess *session.Session, packet *network.Packet) {
	var req joinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	g, exists := s.store.Get(req.SessionID)
	if !exists {
		// Unknown codes are ignored, the client resynchronizes on its own.
		logger.Log.Infof("Join for unknown session %s", req.SessionID)
		return
	}

	sess.Bind(req.PlayerID, g.ID)
	s.store.BindConnection(sess.GetID(), req.PlayerID)

	events := g.Join(req.PlayerID, req.Name)
	s.broadcaster.Dispatch(g.ID, events)
	logger.Log.Infof("Player %s joined session %s", req.PlayerID, g.ID)
}

// handleCommand resolves the connection's game binding and applies a
// transition, dispatching whatever it produced. No-op transitions produce no
// events and nothing is sent.
func (s *GameServer) handleCommand(sess *session.Session, apply func(g *game.Session, playerID string) []network.Outbound) {
	playerID, gameID := sess.Identity()
	if gameID == "" {
		logger.Log.Warnf("Session %s sent a game command but has not joined", sess.GetID())
		return
	}

	g, exists := s.store.Get(gameID)
	if !exists {
		logger.Log.Errorf("Game %s not found for session %s", gameID, sess.GetID())
		return
	}

	events := apply(g, playerID)
	if len(events) == 0 {
		return
	}
	s.broadcaster.Dispatch(g.ID, events)
}
