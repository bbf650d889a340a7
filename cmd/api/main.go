// main.go
package main

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"github.com/aal51282/ai-video-generator/assembler"
	"github.com/aal51282/ai-video-generator/imagery"
	"github.com/aal51282/ai-video-generator/internal/platform"
	"github.com/aal51282/ai-video-generator/narration"
	"github.com/aal51282/ai-video-generator/pipeline"
	"github.com/aal51282/ai-video-generator/processing"
	"github.com/aal51282/ai-video-generator/ratelimit"
	"github.com/aal51282/ai-video-generator/videos"
)

// staleJobAge is how long an orphaned job workspace may sit before the
// sweeper removes it. Normal requests clean up after themselves; this
// catches workspaces left behind by crashes.
const staleJobAge = time.Hour

type Server struct {
	Redis     *redis.Client
	Router    *gin.Engine
	Pipeline  *pipeline.Pipeline
	Assembler *assembler.Assembler
}

func NewServer() (*Server, error) {
	platform.LoadEnv()
	rdb := platform.NewRedisClient()

	router := gin.Default()

	// Add CORS middleware for your frontend
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", os.Getenv("FRONTEND_URL"))
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	asm := assembler.NewFromEnv()
	p := pipeline.New(
		imagery.NewClientFromEnv(),
		narration.NewClientFromEnv(),
		asm,
	)
	if processing.Enabled() {
		p.Refine = processing.RefinePrompts
		log.Println("LLM prompt refinement enabled")
	}

	server := &Server{
		Redis:     rdb,
		Router:    router,
		Pipeline:  p,
		Assembler: asm,
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	// Health check: generation is dead in the water without ffmpeg
	s.Router.GET("/health", func(c *gin.Context) {
		if _, err := exec.LookPath(s.Assembler.FFmpegPath); err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": "ffmpeg not available"})
			return
		}
		c.JSON(200, gin.H{
			"status": "healthy",
			"ffmpeg": "available",
		})
	})

	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "message": "AI Video Generator API is running"})
	})

	handler := videos.NewHandler(s.Pipeline)

	// Style discovery is cheap and unauthenticated
	s.Router.GET("/styles", handler.GetStyles)

	// Generation holds several provider calls and an encode per request,
	// so it gets throttled when Redis is configured.
	generate := s.Router.Group("")
	generate.Use(ratelimit.Middleware(s.Redis, 5, time.Minute))
	{
		generate.POST("/generate-video", handler.GenerateVideo)
	}
}

// startSweeper periodically removes job workspaces that outlived their
// request, e.g. after a crash mid-generation.
func (s *Server) startSweeper() *cron.Cron {
	c := cron.New()
	if _, err := c.AddFunc("@every 10m", func() {
		sweepStaleJobs(s.Pipeline.WorkDir)
	}); err != nil {
		log.Printf("Error scheduling workspace sweeper: %v", err)
		return c
	}
	c.Start()
	return c
}

func sweepStaleJobs(workDir string) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		log.Printf("Sweeper could not read %s: %v", workDir, err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "job_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < staleJobAge {
			continue
		}
		path := filepath.Join(workDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("Sweeper failed to remove %s: %v", path, err)
			continue
		}
		log.Printf("Sweeper removed stale job workspace %s", path)
	}
}

func (s *Server) Run() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s", port)
	return s.Router.Run(":" + port)
}

func main() {
	server, err := NewServer()
	if err != nil {
		log.Fatal("Failed to create server:", err)
	}

	sweeper := server.startSweeper()
	defer sweeper.Stop()

	if err := server.Run(); err != nil {
		log.Fatal("Failed to run server:", err)
	}
}
