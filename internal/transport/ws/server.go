package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/world"
)

// Server speaks the HELLO/WELCOME/CMD/RESULT protocol over one
// websocket per client. Commands from all connections are serialized
// onto the world through a single mutex; the world itself is not
// concurrency-safe.
type Server struct {
	world *world.World
	log   *log.Logger

	mu       sync.Mutex // guards world access
	sessions sessionCounter

	upgrader websocket.Upgrader
}

type sessionCounter struct {
	mu sync.Mutex
	n  uint64
}

func (s *sessionCounter) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("S%d", s.n)
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// WithWorld runs fn holding the command lock, so callers outside the
// websocket path (autosave, admin endpoints) see a quiescent world.
func (s *Server) WithWorld(fn func(w *world.World)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.world)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		company, sessionID := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.log.Printf("session %s company=%d from %s", sessionID, company, r.RemoteAddr)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCmd {
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				continue
			}
			if cmd.ProtocolVersion != "" && cmd.ProtocolVersion != protocol.Version {
				continue
			}
			res := s.dispatch(company, &cmd)
			if err := writeJSON(conn, res); err != nil {
				break
			}
		}
		s.log.Printf("session %s closed", sessionID)
	}
}

// dispatch normalizes and runs one command, holding the world lock for
// the validate+commit pair so no other session interleaves.
func (s *Server) dispatch(company uint8, cmd *protocol.CmdMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Ref:             cmd.ID,
	}
	if cmd.Company != company {
		res.Code = protocol.ErrProtoBadRequest
		res.Message = "company mismatch"
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := NormalizeCmd(s.world, cmd)
	if err != nil {
		res.Code = codeOrProto(err)
		res.Message = err.Error()
		return res
	}
	cost, err := s.world.Exec(req, cmd.TestOnly)
	if err != nil {
		res.Code = codeOrProto(err)
		res.Message = err.Error()
		return res
	}
	res.OK = true
	res.Cost = int64(cost)
	if req.Warn != nil {
		res.Warn = world.CodeOf(req.Warn)
	}
	return res
}

func (s *Server) handshake(conn *websocket.Conn) (company uint8, sessionID string) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return 0, ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return 0, ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return 0, ""
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return 0, ""
	}
	if s.world.Company(hello.Company) == nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "no such company"), time.Now().Add(time.Second))
		return 0, ""
	}

	sessionID = s.sessions.next()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Company:         hello.Company,
		WorldParams: protocol.WorldParams{
			SizeX:           s.world.Cfg.SizeX,
			SizeY:           s.world.Cfg.SizeY,
			Seed:            s.world.Cfg.Seed,
			RailTypes:       s.world.Cats.RailTypeLabels(),
			RailTypesDigest: s.world.Cats.RailTypesDigest,
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return 0, ""
	}
	return hello.Company, sessionID
}

func codeOrProto(err error) string {
	if c := world.CodeOf(err); c != "" && protocol.IsKnownCode(c) {
		return c
	}
	return protocol.ErrProtoBadRequest
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
