package main

import (
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/interrogation"
	"github.com/myrjola/whodunit/internal/models"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

type scenarioResponse struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Suspects int    `json:"suspects"`
}

type suspectResponse struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type verdictResponse struct {
	Accused string `json:"accused"`
	Correct bool   `json:"correct"`
	Guilty  string `json:"guilty"`
	Catch   string `json:"catch"`
}

// caseResponse never reveals the murderer while the case is open.
type caseResponse struct {
	ID        string            `json:"id"`
	Scenario  string            `json:"scenario"`
	Title     string            `json:"title"`
	Victim    string            `json:"victim"`
	Detective string            `json:"detective"`
	Scene     string            `json:"scene"`
	Evidence  []string          `json:"evidence"`
	Suspects  []suspectResponse `json:"suspects"`
	Verdict   *verdictResponse  `json:"verdict,omitempty"`
}

type turnResponse struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

type historyResponse struct {
	Suspect string         `json:"suspect"`
	Turns   []turnResponse `json:"turns"`
}

type startCaseRequest struct {
	Scenario string `json:"scenario"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type replyResponse struct {
	Suspect string `json:"suspect"`
	Reply   string `json:"reply"`
}

type accusationRequest struct {
	Name string `json:"name"`
}

func newVerdictResponse(v models.Verdict) *verdictResponse {
	return &verdictResponse{
		Accused: v.Accused,
		Correct: v.Correct,
		Guilty:  v.GuiltyName,
		Catch:   v.Catch,
	}
}

func newCaseResponse(engine *interrogation.Engine) caseResponse {
	c := engine.Case()
	suspects := make([]suspectResponse, 0, len(c.Suspects()))
	for _, s := range c.Suspects() {
		suspects = append(suspects, suspectResponse{Name: s.Name, Role: s.Role})
	}
	resp := caseResponse{
		ID:        c.ID(),
		Scenario:  c.Scenario(),
		Title:     c.Title(),
		Victim:    c.Victim(),
		Detective: c.Detective(),
		Scene:     strings.TrimSpace(c.Scene()),
		Evidence:  c.Evidence(),
		Suspects:  suspects,
		Verdict:   nil,
	}
	if verdict, closed := engine.Verdict(); closed {
		resp.Verdict = newVerdictResponse(verdict)
	}
	return resp
}

func (app *application) scenarios(w http.ResponseWriter, r *http.Request) {
	names := casefile.List()
	resp := make([]scenarioResponse, 0, len(names))
	for _, name := range names {
		scenario, err := casefile.Load(name)
		if err != nil {
			app.serverError(w, r, errors.Wrap(err, "load scenario"))
			return
		}
		resp = append(resp, scenarioResponse{Name: name, Title: scenario.Title, Suspects: len(scenario.Suspects)})
	}
	app.writeJSON(w, r, http.StatusOK, resp)
}

// loadScenario loads an embedded scenario. Players can only pick embedded scenarios but the configured default may
// be a file.
func (app *application) loadScenario(name string) (casefile.Scenario, error) {
	if name == "" {
		name = app.cfg.Scenario
		if ext := filepath.Ext(name); ext == ".yaml" || ext == ".yml" {
			return casefile.LoadFile(name)
		}
	}
	return casefile.Load(name)
}

func (app *application) startCase(w http.ResponseWriter, r *http.Request) {
	var (
		err       error
		req       startCaseRequest
		scenario  casefile.Scenario
		c         *casefile.Case
		generator interrogation.Generator
		engine    *interrogation.Engine
	)
	// An empty body starts the default scenario.
	if r.ContentLength != 0 {
		if err = readJSON(w, r, &req); err != nil {
			app.clientError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	if scenario, err = app.loadScenario(strings.TrimSpace(req.Scenario)); err != nil {
		if errors.Is(err, casefile.ErrScenarioNotFound) {
			app.clientError(w, r, http.StatusUnprocessableEntity, "Unknown scenario. Choose from "+
				strings.Join(casefile.List(), ", ")+".")
			return
		}
		app.serverError(w, r, errors.Wrap(err, "load scenario"))
		return
	}
	if c, err = casefile.New(scenario, app.cfg.Guilty); err != nil {
		app.serverError(w, r, errors.Wrap(err, "create case", slog.String("scenario", scenario.Name)))
		return
	}
	if generator, err = app.newGenerator(app.cfg, app.logger); err != nil {
		app.serverError(w, r, errors.Wrap(err, "create generator"))
		return
	}
	if engine, err = interrogation.New(r.Context(), c, generator, app.logger,
		interrogation.WithMaxSentences(app.cfg.MaxSentences),
		interrogation.WithFallback(app.cfg.Fallback),
		interrogation.WithTimeout(app.cfg.BackendTimeout),
		interrogation.WithRecorder(app.transcripts),
	); err != nil {
		app.serverError(w, r, errors.Wrap(err, "start interrogation"))
		return
	}

	if previous := app.sessionManager.GetString(r.Context(), caseIDSessionKey); previous != "" {
		app.cases.remove(previous)
	}
	app.cases.put(engine)
	app.sessionManager.Put(r.Context(), caseIDSessionKey, c.ID())

	app.writeJSON(w, r, http.StatusCreated, newCaseResponse(engine))
}

// sessionCase returns the case of the session or responds with 404 Not Found.
func (app *application) sessionCase(w http.ResponseWriter, r *http.Request) (*interrogation.Engine, bool) {
	id := app.sessionManager.GetString(r.Context(), caseIDSessionKey)
	engine, ok := app.cases.get(id)
	if id == "" || !ok {
		app.clientError(w, r, http.StatusNotFound, "No case in progress. Start one with POST /api/cases.")
		return nil, false
	}
	return engine, true
}

func (app *application) currentCase(w http.ResponseWriter, r *http.Request) {
	engine, ok := app.sessionCase(w, r)
	if !ok {
		return
	}
	app.writeJSON(w, r, http.StatusOK, newCaseResponse(engine))
}

func (app *application) askSuspect(w http.ResponseWriter, r *http.Request) {
	engine, ok := app.sessionCase(w, r)
	if !ok {
		return
	}
	var (
		err   error
		req   questionRequest
		reply string
	)
	if err = readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		app.clientError(w, r, http.StatusBadRequest, "The question is empty.")
		return
	}

	suspect := r.PathValue("suspect")
	reply, err = engine.Ask(r.Context(), suspect, req.Question)
	switch {
	case errors.Is(err, models.ErrUnknownSuspect):
		app.clientError(w, r, http.StatusNotFound, "No such suspect.")
		return
	case errors.Is(err, interrogation.ErrSuspectBusy):
		app.clientError(w, r, http.StatusConflict, "The suspect is still answering your previous question.")
		return
	case errors.Is(err, interrogation.ErrCaseClosed):
		app.clientError(w, r, http.StatusConflict, "The case is closed.")
		return
	case err != nil:
		app.serverError(w, r, errors.Wrap(err, "ask suspect"))
		return
	}

	s, _ := engine.Case().Suspect(suspect)
	app.writeJSON(w, r, http.StatusOK, replyResponse{Suspect: s.Name, Reply: reply})
}

// suspectHistory returns the questions and replies so far. The persona prompt stays hidden since it names the
// murderer.
func (app *application) suspectHistory(w http.ResponseWriter, r *http.Request) {
	engine, ok := app.sessionCase(w, r)
	if !ok {
		return
	}
	suspect := r.PathValue("suspect")
	history, err := engine.History(suspect)
	if errors.Is(err, models.ErrUnknownSuspect) {
		app.clientError(w, r, http.StatusNotFound, "No such suspect.")
		return
	}
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "get history"))
		return
	}

	s, _ := engine.Case().Suspect(suspect)
	resp := historyResponse{Suspect: s.Name, Turns: []turnResponse{}}
	for _, turn := range history {
		if turn.Role == models.RoleSystem {
			continue
		}
		resp.Turns = append(resp.Turns, turnResponse{Role: turn.Role, Content: turn.Content})
	}
	app.writeJSON(w, r, http.StatusOK, resp)
}

func (app *application) accuse(w http.ResponseWriter, r *http.Request) {
	engine, ok := app.sessionCase(w, r)
	if !ok {
		return
	}
	var (
		err     error
		req     accusationRequest
		verdict models.Verdict
	)
	if err = readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	verdict, err = engine.Accuse(r.Context(), req.Name)
	switch {
	case errors.Is(err, models.ErrUnknownSuspect):
		app.clientError(w, r, http.StatusUnprocessableEntity, "No such suspect. Choose from "+
			strings.Join(engine.Suspects(), ", ")+".")
		return
	case errors.Is(err, interrogation.ErrCaseClosed):
		app.clientError(w, r, http.StatusConflict, "The case is closed.")
		return
	case err != nil:
		app.serverError(w, r, errors.Wrap(err, "accuse"))
		return
	}
	app.writeJSON(w, r, http.StatusOK, newVerdictResponse(verdict))
}
