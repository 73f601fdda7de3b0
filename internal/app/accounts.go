package app

import (
	"context"
	"net/url"
	"strings"
	"time"

	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/platform/logger"
	"getlowlevel-service/internal/profanity"
)

// AccountService owns aggregate provisioning and the user-editable profile fields.
type AccountService struct {
	log          *logger.Logger
	store        AggregateStore
	events       EventLog
	feed         ChangeFeed
	guard        guard
	reauthWindow time.Duration
	now          func() time.Time
}

func NewAccountService(log *logger.Logger, store AggregateStore, events EventLog, feed ChangeFeed, opts Options) *AccountService {
	opts = opts.withDefaults()
	return &AccountService{
		log:          log.With("service", "AccountService"),
		store:        store,
		events:       events,
		feed:         feed,
		guard:        newGuard(opts),
		reauthWindow: opts.ReauthWindow,
		now:          opts.Now,
	}
}

// Provision guarantees the aggregate exists once a user has signed in.
// Existing users get email, photo and last login refreshed; their display name is kept.
func (s *AccountService) Provision(ctx context.Context, id domain.Identity) (domain.UserAggregate, error) {
	if id.UID == "" {
		return domain.UserAggregate{}, domain.ErrUnauthenticated
	}
	seed := domain.NewUserAggregate(id, s.now().UTC())
	if profanity.ContainsProfanity(seed.DisplayName) {
		seed.DisplayName = ""
	}

	var agg domain.UserAggregate
	err := s.guard.write(ctx, "user aggregate", func(ctx context.Context) error {
		var err error
		agg, err = s.store.Provision(ctx, seed)
		return err
	})
	if err != nil {
		return domain.UserAggregate{}, err
	}
	s.log.Info("user provisioned", "uid", id.UID, "provider", id.Provider)
	return agg, nil
}

func (s *AccountService) Get(ctx context.Context, uid string) (domain.UserAggregate, error) {
	var agg domain.UserAggregate
	err := s.guard.read(ctx, "user aggregate", func(ctx context.Context) error {
		var err error
		agg, err = s.store.Get(ctx, uid)
		return err
	})
	return agg, err
}

// UpdateDisplayName trims and validates the name before it ever reaches the store.
func (s *AccountService) UpdateDisplayName(ctx context.Context, uid, name string) (domain.UserAggregate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.UserAggregate{}, domain.ErrDisplayNameEmpty
	}
	if profanity.ContainsProfanity(name) {
		return domain.UserAggregate{}, domain.ErrProfanity
	}
	return s.update(ctx, uid, domain.ProfileUpdate{DisplayName: &name})
}

func (s *AccountService) UpdateSettings(ctx context.Context, uid string, settings domain.Settings) (domain.UserAggregate, error) {
	return s.update(ctx, uid, domain.ProfileUpdate{Settings: &settings})
}

func (s *AccountService) UpdateSocials(ctx context.Context, uid string, socials domain.Socials) (domain.UserAggregate, error) {
	socials.GitHub = strings.TrimSpace(socials.GitHub)
	socials.LinkedIn = strings.TrimSpace(socials.LinkedIn)
	socials.Twitter = strings.TrimSpace(socials.Twitter)
	for _, link := range []string{socials.GitHub, socials.LinkedIn, socials.Twitter} {
		if !validLink(link) {
			return domain.UserAggregate{}, domain.ErrInvalidSocialURL
		}
	}
	return s.update(ctx, uid, domain.ProfileUpdate{Socials: &socials})
}

// Delete removes the submission history and the aggregate. It needs a recent sign-in.
func (s *AccountService) Delete(ctx context.Context, id domain.Identity) error {
	if id.UID == "" {
		return domain.ErrUnauthenticated
	}
	if id.AuthTime.IsZero() || s.now().Sub(id.AuthTime) > s.reauthWindow {
		return domain.ErrReauthRequired
	}
	if err := s.guard.write(ctx, "submission events", func(ctx context.Context) error {
		return s.events.DeleteByUser(ctx, id.UID)
	}); err != nil {
		return err
	}
	if err := s.guard.write(ctx, "user aggregate", func(ctx context.Context) error {
		return s.store.Delete(ctx, id.UID)
	}); err != nil {
		return err
	}
	s.publish(ctx, id.UID)
	s.log.Info("account deleted", "uid", id.UID)
	return nil
}

func (s *AccountService) update(ctx context.Context, uid string, update domain.ProfileUpdate) (domain.UserAggregate, error) {
	var agg domain.UserAggregate
	err := s.guard.write(ctx, "user aggregate", func(ctx context.Context) error {
		var err error
		agg, err = s.store.UpdateProfile(ctx, uid, update)
		return err
	})
	if err != nil {
		return domain.UserAggregate{}, err
	}
	s.publish(ctx, uid)
	return agg, nil
}

func (s *AccountService) publish(ctx context.Context, uid string) {
	if err := s.feed.Publish(ctx, uid); err != nil {
		s.log.Warn("publish profile change failed", "uid", uid, "error", err)
	}
}

func validLink(raw string) bool {
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
