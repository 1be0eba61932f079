package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// envelope is the wire shape of every response. Code 0 means success;
// error responses carry the HTTP status as the code.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Code: 0, Message: "success", Data: data})
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Code: status, Message: message})
}

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}

// isSafePath rejects traversal segments in user-provided save roots.
func isSafePath(p string) bool {
	if p == "" {
		return false
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return false
	}
	return !strings.Contains(p, "..")
}
