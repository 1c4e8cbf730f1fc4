package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pinfall/backend/internal/scene"
)

// ListScenes returns every built-in scene so the browser can build its
// visuals to match the server's geometry
func ListScenes(c *gin.Context) {
	scenes := make([]*scene.Scene, 0, len(scene.Names()))
	for _, name := range scene.Names() {
		s, err := scene.Build(name)
		if err != nil {
			continue
		}
		scenes = append(scenes, s)
	}
	c.JSON(http.StatusOK, gin.H{"scenes": scenes})
}

// GetScene returns one scene by name
func GetScene(c *gin.Context) {
	s, err := scene.Build(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scene not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}
