// Package interrogation runs a case: it questions suspects through a text generation backend and resolves the final
// accusation.
package interrogation

import (
	"context"
	"fmt"
	"github.com/myrjola/whodunit/internal/accusation"
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/contradiction"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/logging"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/myrjola/whodunit/internal/persona"
	"github.com/myrjola/whodunit/internal/session"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultFallback is the reply used when the backend fails to produce one.
	DefaultFallback = "Sorry, Inspector, I can't respond right now."
	// DefaultTimeout bounds a single backend call.
	DefaultTimeout = 30 * time.Second
)

var (
	ErrSuspectBusy = errors.NewSentinel("suspect is already answering a question")
	ErrCaseClosed  = errors.NewSentinel("case is closed")
	ErrEmptyReply  = errors.NewSentinel("empty reply")
)

// Generator produces the next suspect reply for a conversation.
type Generator interface {
	Generate(ctx context.Context, turns []models.Turn) (string, error)
}

// GeneratorFunc adapts a function to [Generator].
type GeneratorFunc func(ctx context.Context, turns []models.Turn) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, turns []models.Turn) (string, error) {
	return f(ctx, turns)
}

// Recorder keeps a transcript of the case.
type Recorder interface {
	StartCase(ctx context.Context, c *casefile.Case) error
	RecordTurn(ctx context.Context, caseID string, suspect string, turn models.Turn) error
	RecordVerdict(ctx context.Context, caseID string, verdict models.Verdict) error
}

// Option configures an [Engine].
type Option func(*Engine)

// WithMaxSentences sets the sentence limit of replies and of the persona rules.
func WithMaxSentences(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSentences = n
		}
	}
}

// WithFallback sets the reply used when the backend fails.
func WithFallback(reply string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(reply) != "" {
			e.fallback = reply
		}
	}
}

// WithTimeout bounds every backend call. Zero disables the timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) { e.timeout = timeout }
}

// WithRecorder records the case, every turn and the verdict.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// Engine owns the state of one case: the ground truth, the conversation with every suspect and the progress on
// every contradiction topic. Discard the engine when the case is over.
type Engine struct {
	c              *casefile.Case
	sessions       *session.Store
	contradictions *contradiction.Engine
	generator      Generator
	recorder       Recorder
	logger         *slog.Logger
	maxSentences   int
	fallback       string
	timeout        time.Duration
	// busy guards against interleaved questions to the same suspect.
	busy map[string]*sync.Mutex

	mu      sync.Mutex
	verdict *models.Verdict
}

// New starts the interrogation of the case by seeding every suspect's conversation with their persona prompt.
func New(
	ctx context.Context,
	c *casefile.Case,
	generator Generator,
	logger *slog.Logger,
	opts ...Option,
) (*Engine, error) {
	e := &Engine{
		c:              c,
		sessions:       session.NewStore(),
		contradictions: contradiction.NewEngine(c.Suspects()),
		generator:      generator,
		recorder:       nil,
		logger:         logger.With("source", "interrogation"),
		maxSentences:   DefaultMaxSentences,
		fallback:       DefaultFallback,
		timeout:        DefaultTimeout,
		busy:           make(map[string]*sync.Mutex),
		mu:             sync.Mutex{},
		verdict:        nil,
	}
	for _, opt := range opts {
		opt(e)
	}

	ctx = logging.WithAttrs(ctx, slog.String("case_id", c.ID()))
	if e.recorder != nil {
		if err := e.recorder.StartCase(ctx, c); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelError, "failed to record case", errors.SlogError(err))
		}
	}

	builder := persona.Builder{MaxSentences: e.maxSentences}
	for _, s := range c.Suspects() {
		history, err := e.sessions.Create(s.Name, builder.Build(s, c))
		if err != nil {
			return nil, errors.Wrap(err, "seed session")
		}
		e.busy[s.Name] = &sync.Mutex{}
		e.record(ctx, s.Name, history...)
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "case started",
		slog.String("scenario", c.Scenario()), slog.Int("suspects", len(c.Names())))
	return e, nil
}

// Case returns the case under interrogation.
func (e *Engine) Case() *casefile.Case {
	return e.c
}

// Suspects returns the suspect names in scenario order.
func (e *Engine) Suspects() []string {
	return e.c.Names()
}

// History returns the conversation with the suspect so far.
func (e *Engine) History(suspect string) ([]models.Turn, error) {
	s, err := e.c.Suspect(suspect)
	if err != nil {
		return nil, err
	}
	history, err := e.sessions.History(s.Name)
	if err != nil {
		return nil, errors.Wrap(err, "get history")
	}
	return history, nil
}

// Verdict returns the outcome of the accusation once the case is closed.
func (e *Engine) Verdict() (models.Verdict, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.verdict == nil {
		return models.Verdict{}, false //nolint:exhaustruct // case is open
	}
	return *e.verdict, true
}

// Ask puts the detective's question to the suspect and returns the suspect's reply.
//
// Backend failures never surface as errors. The suspect answers with the fallback reply instead and the exchange is
// stored like any other. Errors are returned for unknown suspects, for a suspect already answering another question
// and for a closed case. A case closed while the reply is generated returns [ErrCaseClosed] and the exchange is
// dropped.
func (e *Engine) Ask(ctx context.Context, suspect string, question string) (string, error) {
	if e.closed() {
		return "", ErrCaseClosed
	}
	s, err := e.c.Suspect(suspect)
	if err != nil {
		return "", err
	}

	lock := e.busy[s.Name]
	if !lock.TryLock() {
		return "", errors.Wrap(ErrSuspectBusy, "ask", slog.String("suspect", s.Name))
	}
	defer lock.Unlock()

	return e.ask(ctx, s, question)
}

// ask runs one exchange. The caller holds the busy lock of the suspect.
func (e *Engine) ask(ctx context.Context, s models.Suspect, question string) (string, error) {
	var (
		err     error
		history []models.Turn
	)
	ctx = logging.WithAttrs(ctx, slog.String("case_id", e.c.ID()), slog.String("suspect", s.Name))
	question = strings.TrimSpace(question)

	if history, err = e.sessions.History(s.Name); err != nil {
		return "", errors.Wrap(err, "get history")
	}
	turns := append(history, models.Turn{
		Role:     models.RoleDetective,
		Content:  question,
		Position: int64(len(history)),
	})
	if guidance, ok := e.guidance(ctx, s, question); ok {
		turns = append(turns, models.Turn{
			Role:     models.RoleSystem,
			Content:  guidance,
			Position: int64(len(turns)),
		})
	}

	reply := e.generate(ctx, turns)

	if e.closed() {
		e.logger.LogAttrs(ctx, slog.LevelInfo, "case closed during reply, dropping exchange")
		return "", ErrCaseClosed
	}
	var detectiveTurn, suspectTurn models.Turn
	if detectiveTurn, err = e.sessions.Append(s.Name, models.RoleDetective, question); err != nil {
		return "", errors.Wrap(err, "append question")
	}
	if suspectTurn, err = e.sessions.Append(s.Name, models.RoleSuspect, reply); err != nil {
		return "", errors.Wrap(err, "append reply")
	}
	e.record(ctx, s.Name, detectiveTurn, suspectTurn)

	return reply, nil
}

// Reply is the answer of one suspect in a line-up.
type Reply struct {
	Suspect string
	Text    string
}

// AskAll puts the same question to every suspect concurrently. The replies are in scenario order.
//
// Every suspect is locked before any reply is generated. If one of them is busy, nobody is asked and
// [ErrSuspectBusy] is returned.
func (e *Engine) AskAll(ctx context.Context, question string) ([]Reply, error) {
	if e.closed() {
		return nil, ErrCaseClosed
	}
	suspects := e.c.Suspects()
	locked := make([]*sync.Mutex, 0, len(suspects))
	defer func() {
		for _, lock := range locked {
			lock.Unlock()
		}
	}()
	for _, s := range suspects {
		lock := e.busy[s.Name]
		if !lock.TryLock() {
			return nil, errors.Wrap(ErrSuspectBusy, "line-up", slog.String("suspect", s.Name))
		}
		locked = append(locked, lock)
	}

	replies := make([]Reply, len(suspects))
	var g errgroup.Group
	for i, s := range suspects {
		g.Go(func() error {
			text, err := e.ask(ctx, s, question)
			if err != nil {
				return err
			}
			replies[i] = Reply{Suspect: s.Name, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "line-up")
	}
	return replies, nil
}

// Accuse names the murderer and closes the case.
//
// An unknown or ambiguous name returns [models.ErrUnknownSuspect] and leaves the case open so that the detective can
// try again.
func (e *Engine) Accuse(ctx context.Context, accused string) (models.Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.verdict != nil {
		return models.Verdict{}, ErrCaseClosed //nolint:exhaustruct // error path
	}

	verdict, err := accusation.Resolve(e.c, accused)
	if err != nil {
		return models.Verdict{}, err //nolint:exhaustruct // error path
	}
	e.verdict = &verdict

	ctx = logging.WithAttrs(ctx, slog.String("case_id", e.c.ID()))
	e.logger.LogAttrs(ctx, slog.LevelInfo, "case closed",
		slog.String("accused", verdict.Accused), slog.Bool("correct", verdict.Correct))
	if e.recorder != nil {
		if err = e.recorder.RecordVerdict(ctx, e.c.ID(), verdict); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelError, "failed to record verdict", errors.SlogError(err))
		}
	}
	return verdict, nil
}

func (e *Engine) closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.verdict != nil
}

// guidance steers the reply towards the next scripted answer when the question touches a topic of the suspect.
func (e *Engine) guidance(ctx context.Context, s models.Suspect, question string) (string, bool) {
	topic, ok := DetectTopic(s.Topics, question)
	if !ok || !e.contradictions.Has(s.Name, topic.Name) {
		return "", false
	}
	answer, err := e.contradictions.Next(s.Name, topic.Name)
	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "failed to get scripted answer", errors.SlogError(err))
		return "", false
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "topic detected",
		slog.String("topic", topic.Name), slog.Int("count", e.contradictions.Count(s.Name, topic.Name)))
	return fmt.Sprintf("The detective is asking about %s. Answer in character along these lines: %s",
		topic.Name, answer), true
}

func (e *Engine) generate(ctx context.Context, turns []models.Turn) string {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := e.generator.Generate(ctx, turns)
	if err == nil {
		if reply = Normalize(reply, e.maxSentences); reply == "" {
			err = ErrEmptyReply
		}
	}
	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "generation failed, replying with fallback",
			errors.SlogError(err), slog.Duration("duration", time.Since(start)))
		return Normalize(e.fallback, e.maxSentences)
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "reply generated", slog.Duration("duration", time.Since(start)))
	return reply
}

func (e *Engine) record(ctx context.Context, suspect string, turns ...models.Turn) {
	if e.recorder == nil {
		return
	}
	for _, turn := range turns {
		if err := e.recorder.RecordTurn(ctx, e.c.ID(), suspect, turn); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelError, "failed to record turn", errors.SlogError(err))
		}
	}
}
