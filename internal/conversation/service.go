package conversation

import (
	"context"
	"time"

	"github.com/nmoretto/turnero/internal/clients"
	"github.com/nmoretto/turnero/internal/messages"
	"github.com/nmoretto/turnero/internal/observability/metrics"
	"github.com/nmoretto/turnero/pkg/logging"
)

// cachedTurnCap bounds how much tool traffic the redis entry accumulates.
const cachedTurnCap = 40

type clientStore interface {
	GetOrCreate(ctx context.Context, instagramID string) (*clients.Client, error)
}

type messageLog interface {
	Append(ctx context.Context, clientID int64, role, content string) error
	Recent(ctx context.Context, clientID int64, limit int) ([]messages.Message, error)
}

type historyStore interface {
	Save(ctx context.Context, senderID string, turns []Turn) error
	Load(ctx context.Context, senderID string) ([]Turn, error)
}

type textSender interface {
	SendText(ctx context.Context, recipientID, text string) error
}

// Service is the inbound pipeline: persist the fragment durably, debounce,
// then run one engine exchange over the batched text and deliver the reply.
type Service struct {
	clients      clientStore
	log          messageLog
	engine       *Engine
	debouncer    *Debouncer
	cache        historyStore
	sender       textSender
	metrics      *metrics.ConversationMetrics
	logger       *logging.Logger
	loc          *time.Location
	historyLimit int
	now          func() time.Time
}

// ServiceConfig collects the wiring for NewService.
type ServiceConfig struct {
	Clients      clientStore
	Log          messageLog
	Engine       *Engine
	Debouncer    *Debouncer
	Cache        historyStore // optional; nil rebuilds history from the log every time
	Sender       textSender
	Metrics      *metrics.ConversationMetrics
	Logger       *logging.Logger
	Location     *time.Location
	HistoryLimit int
}

// NewService wires the pipeline.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clients == nil || cfg.Log == nil || cfg.Engine == nil || cfg.Debouncer == nil || cfg.Sender == nil {
		panic("conversation: clients, log, engine, debouncer and sender required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	return &Service{
		clients:      cfg.Clients,
		log:          cfg.Log,
		engine:       cfg.Engine,
		debouncer:    cfg.Debouncer,
		cache:        cfg.Cache,
		sender:       cfg.Sender,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		loc:          cfg.Location,
		historyLimit: cfg.HistoryLimit,
		now:          time.Now,
	}
}

// HandleInbound ingests one message fragment. The fragment is persisted
// before it enters the debounce window, so a crash between arrival and flush
// loses the reply but never the message.
func (s *Service) HandleInbound(ctx context.Context, senderID, text string) error {
	client, err := s.clients.GetOrCreate(ctx, senderID)
	if err != nil {
		s.metrics.ObserveInbound("error")
		return err
	}
	if err := s.log.Append(ctx, client.ID, messages.RoleUser, text); err != nil {
		s.metrics.ObserveInbound("error")
		return err
	}
	s.metrics.ObserveInbound("accepted")

	s.debouncer.Add(senderID, text, func(full string) {
		s.flush(senderID, full)
	})
	return nil
}

// Drain flushes every pending debounce batch synchronously so in-flight
// fragments still get a reply during shutdown.
func (s *Service) Drain() {
	s.debouncer.FlushAll()
}

// flush runs after the quiet window on the debouncer's goroutine, so it
// builds its own context.
func (s *Service) flush(senderID, full string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	started := s.now()

	client, err := s.clients.GetOrCreate(ctx, senderID)
	if err != nil {
		s.logger.Error("flush: client lookup failed", "sender", senderID, "error", err)
		s.metrics.ObserveReply("error")
		return
	}

	turns := s.loadHistory(ctx, senderID, client.ID, full)
	sess := &Session{SenderID: senderID, Client: client}

	reply, turns, err := s.engine.Respond(ctx, sess, SystemPrompt(client, s.now().In(s.loc)), turns)
	outcome := "ok"
	if err != nil {
		s.logger.Error("flush: engine failed", "sender", senderID, "error", err)
		reply = apologyReply
		turns = append(turns, Turn{Role: RoleAssistant, Content: reply})
		outcome = "llm_error"
	}

	if err := s.sender.SendText(ctx, senderID, reply); err != nil {
		s.logger.Error("flush: reply delivery failed", "sender", senderID, "error", err)
		outcome = "send_error"
	}

	if err := s.log.Append(ctx, client.ID, messages.RoleAssistant, reply); err != nil {
		s.logger.Error("flush: reply persist failed", "sender", senderID, "error", err)
	}
	s.saveHistory(ctx, senderID, turns)

	s.metrics.ObserveReply(outcome)
	s.metrics.ObserveExchangeLatency(s.now().Sub(started).Seconds())
}

// loadHistory prefers the redis turn list (which keeps tool traffic) and
// falls back to rebuilding from the durable log. Either way the batched user
// text ends up as the final turn exactly once: the log already holds the
// individual fragments, the cache does not.
func (s *Service) loadHistory(ctx context.Context, senderID string, clientID int64, full string) []Turn {
	if s.cache != nil {
		cached, err := s.cache.Load(ctx, senderID)
		if err != nil {
			s.logger.Warn("history cache read failed", "sender", senderID, "error", err)
		} else if cached != nil {
			return append(cached, Turn{Role: RoleUser, Content: full})
		}
	}

	recent, err := s.log.Recent(ctx, clientID, s.historyLimit)
	if err != nil {
		s.logger.Warn("history rebuild failed", "sender", senderID, "error", err)
		return []Turn{{Role: RoleUser, Content: full}}
	}

	// Debounced fragments sit in the log as separate consecutive user rows.
	// Collapse each user run into one turn so the replayed history alternates
	// roles and the final turn carries the whole batch.
	turns := make([]Turn, 0, len(recent)+1)
	for _, m := range recent {
		role := RoleUser
		if m.Role == messages.RoleAssistant {
			role = RoleAssistant
		}
		if role == RoleUser && len(turns) > 0 && turns[len(turns)-1].Role == RoleUser {
			turns[len(turns)-1].Content += " " + m.Content
			continue
		}
		turns = append(turns, Turn{Role: role, Content: m.Content})
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != RoleUser {
		turns = append(turns, Turn{Role: RoleUser, Content: full})
	}
	return turns
}

func (s *Service) saveHistory(ctx context.Context, senderID string, turns []Turn) {
	if s.cache == nil {
		return
	}
	if len(turns) > cachedTurnCap {
		turns = turns[len(turns)-cachedTurnCap:]
	}
	if err := s.cache.Save(ctx, senderID, turns); err != nil {
		s.logger.Warn("history cache write failed", "sender", senderID, "error", err)
	}
}
