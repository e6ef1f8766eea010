// Package web serves the bundled demo client that renders pushed messages
// and raises desktop notifications.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static
var staticFiles embed.FS

func InitWebRouter(rg *gin.RouterGroup) {
	root := mustSub(staticFiles, "static")

	rg.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(root))
	})
	rg.StaticFS("/scripts", http.FS(mustSub(root, "scripts")))
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
