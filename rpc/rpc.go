package rpc

import (
	"net"
	"net/rpc"

	"github.com/Efromomr/quiz-board/logger"
	"github.com/Efromomr/quiz-board/models"
	"github.com/Efromomr/quiz-board/services"
	"github.com/Efromomr/quiz-board/session"
	"github.com/Efromomr/quiz-board/store"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Admin exposes operational methods over net/rpc: session creation for
// tooling and a quick look at what the process is carrying.
type Admin struct {
	store          *store.Store
	sessionManager *session.Manager
	records        *services.RecordService
	createSession  func() (string, error)
}

// NewAdmin creates the Admin RPC service. createSession is the same creation
// path the HTTP surface uses.
func NewAdmin(st *store.Store, sm *session.Manager, records *services.RecordService, createSession func() (string, error)) *Admin {
	return &Admin{
		store:          st,
		sessionManager: sm,
		records:        records,
		createSession:  createSession,
	}
}

type CreateSessionArgs struct{}

type CreateSessionReply struct {
	SessionID string
}

func (a *Admin) CreateSession(args *CreateSessionArgs, reply *CreateSessionReply) error {
	id, err := a.createSession()
	if err != nil {
		return err
	}
	reply.SessionID = id
	return nil
}

type StatsArgs struct{}

type StatsReply struct {
	ActiveSessions  int
	LiveConnections int
}

func (a *Admin) Stats(args *StatsArgs, reply *StatsReply) error {
	reply.ActiveSessions = a.store.Count()
	reply.LiveConnections = a.sessionManager.Count()
	return nil
}

type RecentRecordsArgs struct {
	Limit int
}

type RecentRecordsReply struct {
	Records []models.GameRecord
}

func (a *Admin) RecentRecords(args *RecentRecordsArgs, reply *RecentRecordsReply) error {
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	records, err := a.records.Recent(limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}
