// Package server exposes the dealership write pipeline over HTTP. All write
// endpoints accept multipart forms so vehicle data and image files travel in
// one request.
package server

import (
	"net/http"

	"dealership-backend/blobstore"
	"dealership-backend/orm"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server holds the injected database handle and blob store and the gin
// router dispatching onto them.
type Server struct {
	db     *orm.DB
	store  blobstore.Store
	router *gin.Engine
}

// New wires up the routes on a fresh gin engine.
func New(db *orm.DB, store blobstore.Store) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	s := &Server{
		db:     db,
		store:  store,
		router: router,
	}
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	inventory := s.router.Group("/inventory")
	inventory.POST("/vehicle", s.createVehicle)
	inventory.GET("/vehicle/:id", s.getVehicle)
	inventory.PUT("/vehicle/:id", s.updateVehicle)
	inventory.DELETE("/vehicle/:id", s.deleteVehicle)
	inventory.GET("/vehicles", s.listVehicles)

	auction := s.router.Group("/auction")
	auction.POST("/purchase", s.createPurchase)
	auction.PUT("/purchase/:id", s.updatePurchase)
	auction.DELETE("/purchase/:id", s.deletePurchase)
	auction.GET("/purchases", s.listPurchases)
	auction.GET("/summary", s.purchaseSummary)
}

// Run starts the HTTP listener, blocking until it fails.
func (s *Server) Run(addr string) error {
	//nolint:wrapcheck // Caller logs and exits
	return s.router.Run(addr)
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
