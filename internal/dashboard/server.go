// Package dashboard serves a read-only HTTP view of the bot: portfolio
// state, positions, journals and reconciliation events. It reads the
// checkpoint file and journals; it never mutates trading state.
package dashboard

import (
	"context"
	"encoding/csv"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vikiirv21/kite-algo-trader/internal/execution"
	"github.com/vikiirv21/kite-algo-trader/internal/journal"
	"github.com/vikiirv21/kite-algo-trader/internal/logger"
	"github.com/vikiirv21/kite-algo-trader/internal/recon"
	"github.com/vikiirv21/kite-algo-trader/internal/store"
)

type Params struct {
	Addr        string
	Mode        string
	CapitalBase float64
	JournalDir  string
	States      *store.StateStore
	Tracker     *execution.Tracker
	Recon       *recon.Engine
}

type Server struct {
	p    Params
	http *http.Server
}

func New(p Params) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{p: p}
	router.GET("/healthz", s.health)

	api := router.Group("/api")
	api.GET("/state", s.state)
	api.GET("/positions", s.positions)
	api.GET("/orders", s.orders)
	api.GET("/signals", s.signals)
	api.GET("/summary", s.summary)
	api.GET("/events", s.events)

	s.http = &http.Server{
		Addr:              p.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Dashboard listening", "addr", s.p.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.p.Mode, "time": time.Now().Format(time.RFC3339)})
}

func (s *Server) state(c *gin.Context) {
	st := s.p.States.LoadPortfolioState(c.Request.Context(), s.p.CapitalBase)
	c.JSON(http.StatusOK, st)
}

func (s *Server) positions(c *gin.Context) {
	cp := s.p.States.Load(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"timestamp": cp.Timestamp,
		"positions": cp.Broker.Positions,
	})
}

func (s *Server) orders(c *gin.Context) {
	if s.p.Tracker != nil {
		c.JSON(http.StatusOK, s.p.Tracker.All())
		return
	}
	cp := s.p.States.Load(c.Request.Context())
	c.JSON(http.StatusOK, cp.Broker.Orders)
}

// signals returns the most recent journaled signals, newest last.
func (s *Server) signals(c *gin.Context) {
	const tailMax = 200

	fl, err := os.Open(filepath.Join(s.p.JournalDir, "signals.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusOK, []gin.H{})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer fl.Close()

	reader := csv.NewReader(fl)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) < 2 {
		c.JSON(http.StatusOK, []gin.H{})
		return
	}

	header := rows[0]
	data := rows[1:]
	if len(data) > tailMax {
		data = data[len(data)-tailMax:]
	}
	out := make([]gin.H, 0, len(data))
	for _, row := range data {
		entry := gin.H{}
		for i, name := range header {
			if i < len(row) {
				entry[name] = row[i]
			}
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) summary(c *gin.Context) {
	sums, err := journal.Summarize(s.p.JournalDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sums == nil {
		sums = []journal.SymbolSummary{}
	}
	c.JSON(http.StatusOK, sums)
}

func (s *Server) events(c *gin.Context) {
	if s.p.Recon == nil {
		c.JSON(http.StatusOK, []recon.Event{})
		return
	}
	c.JSON(http.StatusOK, s.p.Recon.RecentEvents())
}
