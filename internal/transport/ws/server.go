package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"scenefacts.ai/internal/protocol"
	"scenefacts.ai/internal/service"
)

// Server answers DESCRIBE frames with FACTS (or ERROR) frames, in order, on
// the same connection.
type Server struct {
	svc *service.Service
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(svc *service.Service, logger *log.Logger) *Server {
	return &Server{
		svc: svc,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(16 * 1024 * 1024)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 8)
		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if mt != websocket.TextMessage {
				continue
			}
			b := s.handle(ctx, msg)
			if b == nil {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		close(out)
		<-done
	}
}

// handle returns the encoded reply to one frame.
func (s *Server) handle(ctx context.Context, msg []byte) []byte {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return s.encode(protocol.NewErrorMsg(0, protocol.ErrProtoBadRequest, "malformed json"))
	}
	if base.Type != protocol.TypeDescribe {
		return s.encode(protocol.NewErrorMsg(0, protocol.ErrProtoBadRequest, "unsupported message type: "+base.Type))
	}
	facts, err := s.svc.Describe(ctx, msg)
	if err != nil {
		var step struct {
			Step uint64 `json:"step"`
		}
		_ = json.Unmarshal(msg, &step)
		code := service.ErrorCode(err)
		if code == protocol.ErrInternal && s.log != nil {
			s.log.Printf("describe step=%d: %v", step.Step, err)
		}
		return s.encode(protocol.NewErrorMsg(step.Step, code, err.Error()))
	}
	return s.encode(facts)
}

func (s *Server) encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		if s.log != nil {
			s.log.Printf("encode reply: %v", err)
		}
		return nil
	}
	return b
}
