package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"

	"bothive/internal/artifacts"
	"bothive/internal/db/repositories"
	"bothive/internal/logging"
	"bothive/internal/runtimes"
	"bothive/internal/sandbox"
	"bothive/internal/validation"
	"bothive/pkg/models"
)

// BotService is the lifecycle manager: the only writer of bot state and
// sandbox handles. All mutations to a given bot are serialized through a
// per-bot lock so the database never races the container runtime.
type BotService struct {
	repos  *repositories.Repositories
	store  *artifacts.Store
	driver sandbox.Driver

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewBotService(repos *repositories.Repositories, store *artifacts.Store, driver sandbox.Driver) *BotService {
	return &BotService{
		repos:  repos,
		store:  store,
		driver: driver,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// lockBot acquires the mutation lock for one bot. The returned func releases
// it.
func (s *BotService) lockBot(botID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[botID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[botID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// getOwned loads a bot and enforces ownership. Existence and ownership are
// reported with distinct kinds; nothing about a foreign bot beyond its
// existence is ever exposed.
func (s *BotService) getOwned(botID, userID int64) (*models.Bot, error) {
	bot, err := s.repos.Bots.GetByID(botID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("Bot not found")
	}
	if err != nil {
		return nil, err
	}
	if bot.UserID != userID {
		return nil, models.Forbiddenf("You don't have access to this bot")
	}
	return bot, nil
}

// Create validates inputs, enforces the plan quota and per-owner name
// uniqueness, inserts the bot in state CREATED, and allocates its artifact
// directory.
func (s *BotService) Create(ctx context.Context, userID int64, name string, runtime models.BotRuntime, startCmd *string, planID int64) (*models.Bot, error) {
	if !validation.ValidBotName(name) {
		return nil, models.Validationf("Invalid bot name. Use 3-50 alphanumeric characters, hyphens, or underscores.")
	}
	if startCmd != nil && !validation.ValidStartCommand(*startCmd) {
		return nil, models.Validationf("Invalid start command. Command contains dangerous patterns.")
	}
	if _, err := runtimes.Get(runtime); err != nil {
		return nil, err
	}

	plan, err := s.repos.Plans.GetByID(planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("Plan not found")
	}
	if err != nil {
		return nil, err
	}

	count, err := s.repos.Bots.CountByUser(userID)
	if err != nil {
		return nil, err
	}
	if count >= plan.MaxBots {
		return nil, models.Conflictf("Bot limit reached. Your plan allows maximum %d bots.", plan.MaxBots)
	}

	if _, err := s.repos.Bots.GetByUserAndName(userID, name); err == nil {
		return nil, models.Conflictf("A bot with this name already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	bot, err := s.repos.Bots.Create(userID, planID, runtime, name, startCmd)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.PathFor(bot.ID); err != nil {
		return nil, err
	}

	logging.Info("User %d created bot %d", userID, bot.ID)
	return bot, nil
}

// Get returns a bot after an ownership check, reconciling its persisted
// state with the sandbox runtime.
func (s *BotService) Get(ctx context.Context, userID, botID int64) (*models.Bot, error) {
	bot, err := s.getOwned(botID, userID)
	if err != nil {
		return nil, err
	}
	s.refreshStatus(ctx, bot)
	return bot, nil
}

// List returns all bots owned by userID.
func (s *BotService) List(ctx context.Context, userID int64) ([]*models.Bot, error) {
	bots, err := s.repos.Bots.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	for _, bot := range bots {
		s.refreshStatus(ctx, bot)
	}
	return bots, nil
}

// refreshStatus folds an observed crash back into the database. Only the
// CRASHED observation is persisted here; everything else is driven by
// explicit operations.
func (s *BotService) refreshStatus(ctx context.Context, bot *models.Bot) {
	if bot.ContainerID == nil {
		return
	}
	observed, err := s.driver.Status(ctx, *bot.ContainerID)
	if err != nil {
		logging.Debug("Status check for bot %d failed: %v", bot.ID, err)
		return
	}
	if observed == models.BotCrashed && bot.Status != models.BotCrashed {
		if err := s.repos.Bots.UpdateStatus(bot.ID, models.BotCrashed); err != nil {
			logging.Warn("Failed to persist crashed state for bot %d: %v", bot.ID, err)
			return
		}
		bot.Status = models.BotCrashed
	}
}

// Upload replaces the bot's source tree with the payload and records the
// source kind. Validation failures leave the previous tree intact.
func (s *BotService) Upload(ctx context.Context, userID, botID int64, filename string, r io.Reader) (string, error) {
	unlock := s.lockBot(botID)
	defer unlock()

	bot, err := s.getOwned(botID, userID)
	if err != nil {
		return "", err
	}

	rt, err := runtimes.Get(bot.Runtime)
	if err != nil {
		return "", err
	}

	res, err := s.store.Ingest(botID, rt, filename, r)
	if err != nil {
		return "", err
	}

	if err := s.repos.Bots.UpdateSourceType(botID, res.SourceType); err != nil {
		return "", err
	}

	logging.Info("User %d uploaded %s to bot %d", userID, res.Filename, botID)
	return res.Filename, nil
}

// Start creates the sandbox on first use, persists the handle, and starts
// it. A sandbox failure transitions the bot to CRASHED.
func (s *BotService) Start(ctx context.Context, userID, botID int64) (*models.Bot, error) {
	unlock := s.lockBot(botID)
	defer unlock()

	bot, err := s.getOwned(botID, userID)
	if err != nil {
		return nil, err
	}

	plan, err := s.repos.Plans.GetByID(bot.PlanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("Plan not found")
	}
	if err != nil {
		return nil, err
	}

	empty, err := s.store.IsEmpty(botID)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, models.Validationf("No files uploaded. Please upload bot code first.")
	}

	rt, err := runtimes.Get(bot.Runtime)
	if err != nil {
		return nil, err
	}

	if bot.ContainerID == nil {
		sourcePath, err := s.store.PathFor(botID)
		if err != nil {
			return nil, err
		}

		startCmd := ""
		if bot.StartCmd != nil {
			startCmd = *bot.StartCmd
		}

		handle, err := s.driver.Create(ctx, sandbox.CreateOptions{
			BotID:      bot.ID,
			Runtime:    rt,
			StartCmd:   startCmd,
			CPULimit:   plan.CPULimit,
			RAMLimit:   plan.RAMLimit,
			SourcePath: sourcePath,
		})
		if err != nil {
			s.markCrashed(bot)
			return nil, err
		}

		if err := s.repos.Bots.UpdateContainerID(bot.ID, &handle); err != nil {
			return nil, err
		}
		bot.ContainerID = &handle
	}

	if err := s.driver.Start(ctx, *bot.ContainerID); err != nil {
		s.markCrashed(bot)
		return nil, err
	}

	if err := s.repos.Bots.UpdateStatus(bot.ID, models.BotRunning); err != nil {
		return nil, err
	}
	bot.Status = models.BotRunning

	logging.Info("User %d started bot %d", userID, botID)
	return bot, nil
}

func (s *BotService) markCrashed(bot *models.Bot) {
	if err := s.repos.Bots.UpdateStatus(bot.ID, models.BotCrashed); err != nil {
		logging.Error("Failed to mark bot %d crashed: %v", bot.ID, err)
		return
	}
	bot.Status = models.BotCrashed
}

// Stop stops the sandbox. A driver failure leaves the persisted state
// untouched.
func (s *BotService) Stop(ctx context.Context, userID, botID int64) (*models.Bot, error) {
	unlock := s.lockBot(botID)
	defer unlock()

	bot, err := s.getOwned(botID, userID)
	if err != nil {
		return nil, err
	}
	if bot.ContainerID == nil {
		return nil, models.Validationf("Bot has no container")
	}

	if err := s.driver.Stop(ctx, *bot.ContainerID, sandbox.DefaultStopTimeout); err != nil {
		return nil, err
	}

	if err := s.repos.Bots.UpdateStatus(bot.ID, models.BotStopped); err != nil {
		return nil, err
	}
	bot.Status = models.BotStopped

	logging.Info("User %d stopped bot %d", userID, botID)
	return bot, nil
}

// Restart restarts the sandbox with the default graceful timeout.
func (s *BotService) Restart(ctx context.Context, userID, botID int64) (*models.Bot, error) {
	unlock := s.lockBot(botID)
	defer unlock()

	bot, err := s.getOwned(botID, userID)
	if err != nil {
		return nil, err
	}
	if bot.ContainerID == nil {
		return nil, models.Validationf("Bot has no container")
	}

	if err := s.driver.Restart(ctx, *bot.ContainerID, sandbox.DefaultStopTimeout); err != nil {
		return nil, err
	}

	if err := s.repos.Bots.UpdateStatus(bot.ID, models.BotRunning); err != nil {
		return nil, err
	}
	bot.Status = models.BotRunning

	logging.Info("User %d restarted bot %d", userID, botID)
	return bot, nil
}

// Delete removes the sandbox (if any), the artifact directory, and the bot
// row, in that order, so a failure can never leave an unreferenced sandbox
// behind.
func (s *BotService) Delete(ctx context.Context, userID, botID int64) error {
	unlock := s.lockBot(botID)
	defer unlock()

	bot, err := s.getOwned(botID, userID)
	if err != nil {
		return err
	}

	if bot.ContainerID != nil {
		if err := s.driver.Remove(ctx, *bot.ContainerID, true); err != nil {
			return err
		}
	}

	if err := s.store.Remove(botID); err != nil {
		return err
	}

	if err := s.repos.Bots.Delete(botID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.locks, botID)
	s.mu.Unlock()

	logging.Info("User %d deleted bot %d", userID, botID)
	return nil
}

// Handle exposes the sandbox handle to the log broker after an ownership
// check. The handle never crosses the API surface.
func (s *BotService) Handle(ctx context.Context, userID, botID int64) (string, error) {
	bot, err := s.getOwned(botID, userID)
	if err != nil {
		return "", err
	}
	if bot.ContainerID == nil {
		return "", nil
	}
	return *bot.ContainerID, nil
}
