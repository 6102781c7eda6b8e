package main

import (
	"github.com/justinas/alice"
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthy", app.healthy)
	mux.HandleFunc("GET /api/scenarios", app.scenarios)

	session := alice.New(app.sessionManager.LoadAndSave)

	mux.Handle("POST /api/cases", session.ThenFunc(app.startCase))
	mux.Handle("GET /api/case", session.ThenFunc(app.currentCase))
	mux.Handle("POST /api/case/suspects/{suspect}/questions", session.ThenFunc(app.askSuspect))
	mux.Handle("GET /api/case/suspects/{suspect}/history", session.ThenFunc(app.suspectHistory))
	mux.Handle("POST /api/case/accusation", session.ThenFunc(app.accuse))

	common := alice.New(app.recoverPanic, app.logRequest, secureHeaders, app.timeout)
	return common.Then(mux)
}
