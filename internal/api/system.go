package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response messages of the system routes
const (
	MsgHelloWorld       = "Hello world"
	MsgMirror           = "Mirrored name"
	MsgRouteNotFound    = "Route not found"
	MsgMethodNotAllowed = "Method not allowed"
)

// HelloWorld handles GET /.
func HelloWorld(c *gin.Context) {
	respond(c, http.StatusOK, MsgHelloWorld, gin.H{"content": "hello world!"})
}

// Mirror handles GET /mirror/:name and echoes the path segment back.
func Mirror(c *gin.Context) {
	respond(c, http.StatusOK, MsgMirror, gin.H{"name": c.Param("name")})
}

func routeNotFound(c *gin.Context) {
	abort(c, http.StatusNotFound, MsgRouteNotFound)
}

func methodNotAllowed(c *gin.Context) {
	abort(c, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}
