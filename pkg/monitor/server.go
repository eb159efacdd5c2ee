package monitor

import (
	"errors"
	"net"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battmond/pkg/config"
	"github.com/charlie0129/battmond/pkg/version"
)

// StatusSource provides the data served on the status socket.
type StatusSource interface {
	Snapshot() Snapshot
}

func setupRoutes(src StatusSource, conf config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logrus.StandardLogger()))

	router.GET("/status", func(c *gin.Context) {
		c.IndentedJSON(http.StatusOK, src.Snapshot())
	})
	router.GET("/config", func(c *gin.Context) {
		c.IndentedJSON(http.StatusOK, conf)
	})
	router.GET("/version", func(c *gin.Context) {
		c.IndentedJSON(http.StatusOK, version.Version)
	})

	return router
}

// Serve starts a read-only HTTP server on a unix socket. A stale socket
// file at socketPath is removed first.
func Serve(socketPath string, src StatusSource, conf config.Config) (*http.Server, error) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, pkgerrors.Wrapf(err, "failed to remove stale socket %s", socketPath)
	}

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", socketPath)
	}

	srv := &http.Server{
		Handler: setupRoutes(src, conf),
	}

	go func() {
		logrus.Infof("status server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("status server stopped: %v", err)
		}
	}()

	return srv, nil
}
