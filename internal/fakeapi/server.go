// Package fakeapi is an in-memory implementation of the feedback REST API,
// used by tests and by the devserver command.
package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saferoomai/feedback/pkg/core"
)

// Server records submissions and answers queries about them.
type Server struct {
	mu      sync.RWMutex
	records map[string]core.Record
	failing map[string]int // path -> forced status

	submits atomic.Int64
	fetches atomic.Int64
	delay   atomic.Int64 // nanoseconds

	lastRequestID atomic.Value
}

// New creates an empty Server.
func New() *Server {
	return &Server{
		records: make(map[string]core.Record),
		failing: make(map[string]int),
	}
}

// Handler returns the gin router serving the API.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.chaos)

	api := r.Group("/api/feedback")
	api.POST("/submit", s.submit)
	api.GET("/stats", s.stats)
	api.GET("/:id", s.get)
	return r
}

// Start serves the API on a local listener until the test ends.
func (s *Server) Start(t interface{ Cleanup(func()) }) *httptest.Server {
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// Fail forces every request to route (as registered, e.g. "/api/feedback/submit"
// or "/api/feedback/:id") to answer with status. Zero restores normal service.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failing, route)
		return
	}
	s.failing[route] = status
}

// SetDelay slows every response down by d.
func (s *Server) SetDelay(d time.Duration) {
	s.delay.Store(int64(d))
}

// Put seeds a record.
func (s *Server) Put(rec core.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SubjectID] = rec
}

// Record returns what the server holds for id.
func (s *Server) Record(id string) (core.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Submits is the number of submit requests received.
func (s *Server) Submits() int { return int(s.submits.Load()) }

// Fetches is the number of single-record requests received.
func (s *Server) Fetches() int { return int(s.fetches.Load()) }

// LastRequestID is the X-Request-ID of the latest request.
func (s *Server) LastRequestID() string {
	id, _ := s.lastRequestID.Load().(string)
	return id
}

func (s *Server) chaos(c *gin.Context) {
	s.lastRequestID.Store(c.GetHeader("X-Request-ID"))
	if d := time.Duration(s.delay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}

	s.mu.RLock()
	status, failing := s.failing[c.FullPath()]
	s.mu.RUnlock()
	if failing {
		switch c.FullPath() {
		case "/api/feedback/submit":
			s.submits.Add(1)
		case "/api/feedback/:id":
			s.fetches.Add(1)
		}
		c.AbortWithStatusJSON(status, gin.H{"error": "forced failure"})
		return
	}
	c.Next()
}

func (s *Server) submit(c *gin.Context) {
	s.submits.Add(1)

	var rec core.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if rec.SubjectID == "" || !rec.Decision.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "suggestion_id and feedback_type are required"})
		return
	}

	s.Put(rec)
	c.JSON(http.StatusOK, core.Ack{
		Success:   true,
		SubjectID: rec.SubjectID,
		Decision:  rec.Decision,
		Message:   "Feedback submitted successfully",
	})
}

func (s *Server) get(c *gin.Context) {
	s.fetches.Add(1)

	rec, ok := s.Record(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "feedback not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) stats(c *gin.Context) {
	s.mu.RLock()
	var accepted, rejected int
	for _, rec := range s.records {
		switch rec.Decision {
		case core.Accepted:
			accepted++
		case core.Rejected:
			rejected++
		}
	}
	s.mu.RUnlock()

	total := accepted + rejected
	c.JSON(http.StatusOK, core.RemoteStats{
		TotalFeedback:  total,
		Accepted:       accepted,
		Rejected:       rejected,
		AcceptanceRate: core.AcceptanceRate(accepted, total),
	})
}
