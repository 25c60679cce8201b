package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Serve runs the model loop and answers HTTP requests on l until ctx is done
// or either of the two fails. The loop is started first: if the project
// cannot be opened, Serve returns the error without serving a single request.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	select {
	case <-s.Running():
	case err := <-errc:
		l.Close()
		return err
	}
	srv := &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(l) }()
	select {
	case err := <-served:
		cancel()
		<-errc
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-errc:
		cancel()
		shutdown, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if serr := srv.Shutdown(shutdown); serr != nil {
			srv.Close()
		}
		return err
	}
}
