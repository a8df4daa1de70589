package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

type HTTPServer struct {
	srv *http.Server
}

func StartHTTPServer(host string, port int, handler http.Handler) *HTTPServer {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	s := &HTTPServer{srv: &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}}
	go func() {
		_ = s.srv.ListenAndServe()
	}()
	return s
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
