package router

import (
	"net/http"

	"rigfleet/app/controllers"
	"rigfleet/app/middleware"
)

type Controllers struct {
	HTTP       *controllers.HTTPController
	Auth       *controllers.AuthController
	Workers    *controllers.WorkerController
	Commands   *controllers.CommandController
	Containers *controllers.ContainerController
	Overclocks *controllers.OverclockController
	Schedules  *controllers.ScheduleController
	Async      *controllers.AsyncController
}

func NewRouter(c Controllers, mw *middleware.Auth) http.Handler {
	mux := http.NewServeMux()

	// public
	mux.HandleFunc("/ping", c.HTTP.Ping)
	mux.HandleFunc("/login", c.Auth.Login)
	mux.HandleFunc("/worker/register", c.Workers.Register)

	// worker-facing (worker token từ register)
	mux.Handle("/worker/poll", mw.RequireWorker(http.HandlerFunc(c.Workers.Poll)))
	mux.Handle("/worker/report", mw.RequireWorker(http.HandlerFunc(c.Workers.Report)))

	// admin
	admin := func(h http.HandlerFunc) http.Handler { return mw.RequireAdmin(h) }
	mux.Handle("/admin/users", admin(c.Auth.CreateUser))
	mux.Handle("/workers", admin(c.Workers.List))
	mux.Handle("/workers/get", admin(c.Workers.Get))
	mux.Handle("/workers/messages", admin(c.Workers.Messages))
	mux.Handle("/workers/tags", admin(c.Workers.AssignTags))
	mux.Handle("/workers/online", admin(c.Workers.Online))

	mux.Handle("/command", admin(c.Commands.Post))
	mux.Handle("/command/fanout", admin(c.Commands.FanOut))
	mux.Handle("/command/queue", admin(c.Commands.Queue))
	mux.Handle("/selections/snapshot", admin(c.Commands.Snapshot))

	mux.Handle("/containers", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			c.Containers.Create(w, r)
		case http.MethodDelete:
			c.Containers.Delete(w, r)
		default:
			c.Containers.Get(w, r)
		}
	}))
	mux.Handle("/containers/cell", admin(c.Containers.SetCell))
	mux.Handle("/containers/members", admin(c.Containers.Members))

	mux.Handle("/oc", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			c.Overclocks.Create(w, r)
		case http.MethodPut:
			c.Overclocks.Update(w, r)
		case http.MethodDelete:
			c.Overclocks.Delete(w, r)
		default:
			c.Overclocks.Get(w, r)
		}
	}))
	mux.Handle("/oc/list", admin(c.Overclocks.List))
	mux.Handle("/oc/resolve", admin(c.Overclocks.Resolve))
	mux.Handle("/oc/apply", admin(c.Overclocks.Apply))

	mux.Handle("/schedules", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			c.Schedules.Create(w, r)
		case http.MethodDelete:
			c.Schedules.Delete(w, r)
		default:
			c.Schedules.Get(w, r)
		}
	}))
	mux.Handle("/schedules/list", admin(c.Schedules.List))
	mux.Handle("/schedules/active", admin(c.Schedules.SetActive))

	mux.Handle("/requests", admin(c.Async.Get))

	return mux
}
