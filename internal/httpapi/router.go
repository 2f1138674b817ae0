// Package httpapi is the REST surface of the server: prediction, light-curve
// upload, Kids Mode actions and operational endpoints.
package httpapi

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/analysis"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/httpapi/middleware"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/backend"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/storage"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/network"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/logger"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/metrics"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/visual"
)

// Random supplies uniform values in [0, 1) and must be safe for concurrent use.
type Random interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Recapper builds the progress recap from stored events.
type Recapper interface {
	GenerateRecap(ctx context.Context, sessionID string, since time.Time) (*storage.Recap, error)
}

// Deps are the collaborators of the API. Predictor nil means uploads are
// analysed in demo mode and single-object prediction is unavailable.
type Deps struct {
	Hub            *network.Hub
	Game           network.Game
	EventLog       *events.EventLog
	Recapper       Recapper
	Predictor      backend.Predictor
	Narrator       *analysis.Narrator
	Scenes         *visual.Registry
	Random         Random
	Logger         *logger.Logger
	CORSOrigins    []string
	MaxUploadBytes int64
	// Lifetime bounds websocket sessions; request contexts end with the upgrade.
	Lifetime context.Context
}

// Server holds the handlers.
type Server struct {
	d Deps
}

// NewRouter wires every route.
func NewRouter(d Deps) *gin.Engine {
	if d.Random == nil {
		d.Random = globalRand{}
	}
	if d.Scenes == nil {
		d.Scenes = visual.NewRegistry()
	}
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	if d.Narrator == nil {
		d.Narrator = analysis.NewNarrator(nil, d.Logger)
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 32 << 20
	}
	if d.Lifetime == nil {
		d.Lifetime = context.Background()
	}
	s := &Server{d: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	if len(d.CORSOrigins) > 0 {
		r.Use(middleware.CORS(d.CORSOrigins))
	}

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapF(metrics.Handler()))
	r.GET("/metrics/prometheus", gin.WrapF(metrics.PrometheusHandler()))
	r.GET("/ws", s.websocket)

	api := r.Group("/api")
	{
		api.POST("/predict", s.predict)
		api.POST("/upload", s.upload)
		api.GET("/features/sample", s.sampleFeatures)
		api.GET("/scene/:key", s.scene)
	}

	kids := api.Group("/kids")
	{
		kids.GET("/state", s.action(network.ActionState))
		kids.POST("/start", s.action(network.ActionStart))
		kids.POST("/select", s.action(network.ActionSelect))
		kids.POST("/guess", s.action(network.ActionGuess))
		kids.POST("/next", s.action(network.ActionNext))
		kids.POST("/navigate", s.action(network.ActionNavigate))
		kids.POST("/menu", s.action(network.ActionMenu))
		kids.POST("/redeem", s.action(network.ActionRedeem))
		kids.POST("/hint", s.action(network.ActionHint))
		kids.GET("/recap", s.recap)
		kids.GET("/events", s.events)
		kids.GET("/events/:id", s.event)
		kids.GET("/stats", s.stats)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	mode := "backend"
	if s.d.Predictor == nil {
		mode = "demo"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"mode":    mode,
		"clients": s.d.Hub.ClientCount(),
	})
}

func (s *Server) websocket(c *gin.Context) {
	network.ServeWS(s.d.Lifetime, s.d.Hub, c.Writer, c.Request, s.d.Logger)
}
