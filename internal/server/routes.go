package server

import (
	"io/fs"
	"net/http"

	"sdfrontend/internal/core"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()
	s.router.HandleMethodNotAllowed = true
	s.router.MaxMultipartMemory = core.MaxMultipartMemory

	s.router.Use(requestIDMiddleware())
	s.router.Use(requestLogger(s.zapLog))
	s.router.Use(s.recoveryMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.maxBodySizeMiddleware())
	s.router.Use(s.rateLimitMiddleware())

	s.router.SetHTMLTemplate(s.page)
	staticFS, _ := fs.Sub(webFS, "web/static")
	s.router.StaticFS("/static", http.FS(staticFS))

	s.router.GET("/", s.index)
	s.router.POST("/generate_txt2img", s.generateTxt2Img)
	s.router.POST("/generate_img2img", s.generateImg2Img)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/api/stats", s.getStatsData)
	s.router.GET("/metrics", gin.WrapH(s.collector.Handler()))

	s.router.NoRoute(s.notFound)
	s.router.NoMethod(s.methodNotAllowed)
}
