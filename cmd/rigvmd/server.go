package main

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/krehermann/rigvm/asm"
	"github.com/krehermann/rigvm/nativefn"
	"github.com/krehermann/rigvm/vm"
)

// Server is rigvmd's demo HTTP surface: it is not part of the VM's own
// operation set, existing only to give a manual-testing harness a concrete
// home.
type Server struct {
	Config
	logger *zap.Logger
}

// NewServer constructs a Server, defaulting the logger if none is given.
func NewServer(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return &Server{Config: cfg, logger: logger}
}

// Start registers routes and blocks serving HTTP.
func (s *Server) Start() error {
	s.logger.Info("rigvmd starting", zap.String("addr", s.ListenAddr))
	e := echo.New()
	e.POST("/eval", s.handleEval)
	return e.Start(s.ListenAddr)
}

type evalRequest struct {
	Args []float32 `json:"args"`
}

type evalResponse struct {
	RequestID string    `json:"request_id"`
	Stack     []float32 `json:"stack"`
}

// handleEval assembles a tiny demo program — push each arg, then sin of the
// last one via a native global — runs it through a fresh VM, and returns
// the resulting operand stack. It exists to exercise asm, nativefn and vm
// end to end behind an HTTP boundary; it is not a general script endpoint.
func (s *Server) handleEval(c echo.Context) error {
	reqID := uuid.NewString()

	var req evalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"request_id": reqID,
			"error":      err.Error(),
		})
	}

	b := asm.New()
	for _, a := range req.Args {
		b.PushNumber(a)
	}
	b.PushString("sin").Getg().Jsr().Ret()

	machine := vm.NewVM(vm.LoggerOpt(s.logger))
	machine.SetGlobal("sin", nativefn.Sin())

	depth := machine.Execute(b.Bytes())
	s.logger.Debug("eval complete",
		zap.String("request_id", reqID),
		zap.Int32("stack_depth", depth))

	out := make([]float32, 0, depth)
	for i := int(depth) - 1; i >= 0; i-- {
		v, ok := machine.Peek(i)
		if !ok || !v.IsNumeric() {
			continue
		}
		out = append(out, v.AsNumber())
	}

	return c.JSON(http.StatusOK, evalResponse{RequestID: reqID, Stack: out})
}
