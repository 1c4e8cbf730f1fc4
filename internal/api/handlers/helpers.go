package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryInt reads an integer query parameter, falling back to def and
// capping at max
func queryInt(c *gin.Context, key string, def, max int) int {
	n, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
