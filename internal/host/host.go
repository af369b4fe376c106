// Package host runs the auto-code core inside a small lock-placing world.
// It owns the event loop and is the only place the core's collaborators
// are wired together.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/capture"
	"github.com/notepid/autocode/internal/clock"
	"github.com/notepid/autocode/internal/command"
	"github.com/notepid/autocode/internal/config"
	"github.com/notepid/autocode/internal/event"
	"github.com/notepid/autocode/internal/lock"
	"github.com/notepid/autocode/internal/loop"
	"github.com/notepid/autocode/internal/policy"
	"github.com/notepid/autocode/internal/scripting"
	"github.com/notepid/autocode/internal/settings"
	"github.com/notepid/autocode/internal/user"
)

// Subscriber name the lock policy registers on the event bus.
const policySubscriber = "autocode"

// Users is the account store the host reads levels and names from.
// *user.Repo satisfies it.
type Users interface {
	user.LevelSource
	Names() (map[settings.UserID]string, error)
	Authenticate(username, password string) (*user.User, error)
	Create(username, password string) (*user.User, error)
	Exists(username string) bool
}

// Blocks answers raid, combat and privacy queries. *scripting.Hooks
// satisfies it.
type Blocks interface {
	policy.BlockChecker
	autocode.PrivacySignal
}

// CodeBinder is implemented by hook runtimes that let scripts drive the
// code store. *scripting.Hooks satisfies it.
type CodeBinder interface {
	BindCodes(api *scripting.CodeAPI)
}

// Options wires a Host.
type Options struct {
	Config    *config.Config
	Users     Users
	Persister settings.Persister
	// Blocks may be nil.
	Blocks Blocks
	// Mailbox is created when nil. Pass one in when the hook script needs
	// to see who is online before the host exists.
	Mailbox *event.Mailbox
	// Clock defaults to the system clock.
	Clock  clock.Clock
	Logger *zap.Logger
}

// Host owns the event loop and every piece of auto-code state.
type Host struct {
	cfg       *config.Config
	log       *zap.Logger
	clock     clock.Clock
	users     Users
	persister settings.Persister
	blocks    Blocks

	loop     *loop.Loop
	bus      *event.Bus
	mail     *event.Mailbox
	world    *lock.World
	store    *settings.Store
	assigner *autocode.Assigner
	capture  *capture.Manager
	policy   *policy.AutoApply
	commands *command.Handler
	renderer *command.Renderer
	grants   *user.Grants

	streamers sync.Map // settings.UserID -> struct{}

	saveMu sync.Mutex
}

// New builds a host. Call Run to load settings and start the loop.
func New(opts Options) (*Host, error) {
	if opts.Config == nil {
		return nil, errors.New("host: config is required")
	}
	if opts.Users == nil || opts.Persister == nil {
		return nil, errors.New("host: users and persister are required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Mailbox == nil {
		opts.Mailbox = event.NewMailbox(opts.Logger)
	}

	cfg := opts.Config
	h := &Host{
		cfg:       cfg,
		log:       opts.Logger.Named("host"),
		clock:     opts.Clock,
		users:     opts.Users,
		persister: opts.Persister,
		blocks:    opts.Blocks,
		loop:      loop.New(opts.Logger),
		bus:       event.NewBus(),
		mail:      opts.Mailbox,
		world:     lock.NewWorld(cfg.Server.MaxEntities),
		store:     settings.NewStore(),
		renderer:  command.NewRenderer(cfg.Commands.Use),
	}

	h.grants = user.NewGrants(cfg.Permissions, opts.Users)
	h.assigner = autocode.NewAssigner(h.store, h.clock, cfg.Options.SpamPrevention.RateLimit(), h, opts.Logger)

	notifier := autocode.NotifierFunc(h.notify)
	h.capture = capture.NewManager(capture.Config{
		Scheduler: h.loop,
		Entities:  h.world,
		Events:    h.bus,
		Codes:     h.assigner,
		Notifier:  notifier,
		Clock:     h.clock,
		Timeout:   cfg.Options.CaptureTimeout,
		Logger:    opts.Logger,
	})

	var checker policy.BlockChecker
	if opts.Blocks != nil {
		checker = opts.Blocks
	}
	h.policy = policy.New(policy.Config{
		Store:       h.store,
		Locks:       h.world,
		Permissions: h.grants,
		Privacy:     h,
		Notifier:    notifier,
		Blocks:      checker,
		BlockRaid:   cfg.Options.PluginIntegration.BlockRaid,
		BlockCombat: cfg.Options.PluginIntegration.BlockCombat,
		Logger:      opts.Logger,
	})

	h.commands = command.NewHandler(command.Config{
		Core:                    h.assigner,
		Capture:                 h.capture,
		Permissions:             h.grants,
		Directory:               &directory{users: opts.Users, log: h.log},
		Renderer:                h.renderer,
		DisplayPermissionErrors: cfg.Options.DisplayPermissionErrors,
		Logger:                  opts.Logger,
	})

	if b, ok := opts.Blocks.(CodeBinder); ok {
		b.BindCodes(scripting.NewCodeAPI(h.assigner, h.loop, func(id settings.UserID, o autocode.Outcome) {
			h.notify(id, autocode.CodeChanged{Outcome: o})
		}, opts.Logger))
	}

	h.world.OnPlaced(func(l *lock.Lock) {
		h.bus.Emit(event.HookEntityPlaced, event.EntityPlaced{Lock: l, Owner: l.Owner})
	})
	h.world.OnUnlockAttempt(func(id settings.UserID, l *lock.Lock) {
		h.policy.AuthorizeUnlockAttempt(id, l.Handle)
	})
	h.bus.Subscribe(event.HookEntityPlaced, policySubscriber, func(payload any) {
		ev, ok := payload.(event.EntityPlaced)
		if !ok || ev.Lock == nil {
			return
		}
		h.policy.Apply(ev.Lock.Handle, ev.Owner)
	})

	return h, nil
}

// Mailbox returns the notice router sessions register with.
func (h *Host) Mailbox() *event.Mailbox {
	return h.mail
}

// Load replaces the in-memory settings with the persisted ones. It must be
// called before Run.
func (h *Host) Load(ctx context.Context) error {
	data, err := h.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	h.store.Replace(data)
	h.log.Info("settings loaded", zap.Int("users", h.store.Len()))
	return nil
}

// Run processes loop tasks and periodic saves until ctx is cancelled, then
// unloads: pending captures are cancelled and settings saved.
func (h *Host) Run(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	loopDone := make(chan error, 1)
	go func() { loopDone <- h.loop.Run(loopCtx) }()

	saver, err := h.startSaver()
	if err != nil {
		stopLoop()
		<-loopDone
		return err
	}

	<-ctx.Done()
	<-saver.Stop().Done()

	unloadErr := h.Unload(context.Background())
	stopLoop()
	<-loopDone
	return unloadErr
}

func (h *Host) startSaver() (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(zap.NewStdLog(h.log)))))
	if _, err := c.AddFunc(h.cfg.Storage.SaveSchedule, func() {
		if err := h.Save(context.Background()); err != nil {
			h.log.Error("scheduled save failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule saves %q: %w", h.cfg.Storage.SaveSchedule, err)
	}
	c.Start()
	h.log.Info("scheduled settings saves", zap.String("schedule", h.cfg.Storage.SaveSchedule))
	return c, nil
}

// Save snapshots settings on the loop and writes them out.
func (h *Host) Save(ctx context.Context) error {
	var snap map[settings.UserID]settings.Settings
	if err := h.loop.Do(func() { snap = h.store.Snapshot() }); err != nil {
		return fmt.Errorf("snapshot settings: %w", err)
	}
	return h.write(ctx, snap)
}

func (h *Host) write(ctx context.Context, snap map[settings.UserID]settings.Settings) error {
	h.saveMu.Lock()
	defer h.saveMu.Unlock()

	if err := h.persister.Save(ctx, snap); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	h.log.Debug("settings saved", zap.Int("users", len(snap)))
	return nil
}

// Unload cancels every capture session, destroying their transient locks
// so none are ever saved, then saves settings.
func (h *Host) Unload(ctx context.Context) error {
	var snap map[settings.UserID]settings.Settings
	err := h.loop.Do(func() {
		if n := h.capture.CancelAll(); n > 0 {
			h.log.Info("cancelled capture sessions", zap.Int("sessions", n))
		}
		snap = h.store.Snapshot()
	})
	if err != nil {
		return fmt.Errorf("unload: %w", err)
	}
	return h.write(ctx, snap)
}

// PrivacyMode implements autocode.PrivacySignal: a user's streamer toggle
// or the hook script's privacy_mode answer.
func (h *Host) PrivacyMode(id settings.UserID) bool {
	if _, ok := h.streamers.Load(id); ok {
		return true
	}
	return h.blocks != nil && h.blocks.PrivacyMode(id)
}

// SetStreamer turns a user's streamer mode on or off.
func (h *Host) SetStreamer(id settings.UserID, on bool) {
	if on {
		h.streamers.Store(id, struct{}{})
	} else {
		h.streamers.Delete(id)
	}
}

// Online reports whether id has a connected session.
func (h *Host) Online(id settings.UserID) bool {
	return h.mail.IsOnline(id)
}

func (h *Host) notify(id settings.UserID, n autocode.Notice) {
	text := h.renderer.Notice(n)
	if text == "" {
		return
	}
	if err := h.mail.Send(id, text); err != nil {
		h.log.Debug("notice not delivered", zap.String("user", string(id)), zap.Error(err))
	}
}
