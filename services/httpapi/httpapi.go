//go:build !(rp2040 || rp2350 || avr)

// Package httpapi exposes chamber status and a few commands over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"growctl-go/services/chamber"
	"growctl-go/types"
	"growctl-go/x/logx"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const svc = "http"

// NewRouter builds the route table.
func NewRouter(c chamber.Client) *mux.Router {
	h := &api{c: c, timeout: 2 * time.Second}
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/status", h.status).Methods("GET")
	r.HandleFunc("/cycle/{action:start|stop}", h.cycle).Methods("POST")
	r.HandleFunc("/light/{state:on|off}", h.light).Methods("POST")
	r.HandleFunc("/settings", h.settings).Methods("POST")

	return r
}

// Serve runs the API on addr until ctx ends. Requests are logged in
// combined format to accessLog.
func Serve(ctx context.Context, addr string, c chamber.Client, accessLog io.Writer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(accessLog, NewRouter(c)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logx.Info(svc, "listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type api struct {
	c       chamber.Client
	timeout time.Duration
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()
	st, err := a.c.Status(ctx)
	if err != nil {
		writeErr(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *api) cycle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()
	a.reply(w, a.c.Cycle(ctx, mux.Vars(r)["action"]))
}

func (a *api) light(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()
	a.reply(w, a.c.Light(ctx, mux.Vars(r)["state"] == "on"))
}

func (a *api) settings(w http.ResponseWriter, r *http.Request) {
	var p types.SettingsPatch
	dec := json.NewDecoder(io.LimitReader(r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()
	a.reply(w, a.c.Settings(ctx, p))
}

// Chamber rejections are the client's fault; the bus only times out.
func (a *api) reply(w http.ResponseWriter, err error) {
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, types.Reply{OK: true})
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, types.Reply{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn(svc, "encode", "err", err)
	}
}
