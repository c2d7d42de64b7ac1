package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dominoboard/internal/model"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
)

type fakeUserRepo struct {
	mu          sync.Mutex
	users       map[string]*model.User
	setPremiums int
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.SocialLinks == nil {
			u.SocialLinks = map[string]string{}
		}
		r.users[u.ID] = u
	}
	return r
}

func clone(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	c.SocialLinks = map[string]string{}
	for k, v := range u.SocialLinks {
		c.SocialLinks[k] = v
	}
	return &c
}

func (r *fakeUserRepo) byTelegram(id int64) *model.User {
	for _, u := range r.users {
		if u.TelegramID == id {
			return u
		}
	}
	return nil
}

func (r *fakeUserRepo) UpsertFromTelegram(_ context.Context, p model.TelegramProfile) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byTelegram(p.TelegramID)
	if u == nil {
		u = &model.User{ID: uuid.NewString(), TelegramID: p.TelegramID, SocialLinks: map[string]string{}}
		r.users[u.ID] = u
	}
	u.TelegramUsername, u.FirstName, u.LastName, u.PhotoURL = p.Username, p.FirstName, p.LastName, p.PhotoURL
	return clone(u), nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.users[id]), nil
}

func (r *fakeUserRepo) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.byTelegram(telegramID)), nil
}

func (r *fakeUserRepo) GetByStripeCustomerID(_ context.Context, customerID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, telegramID int64, upd model.ProfileUpdate) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byTelegram(telegramID)
	if u == nil {
		return nil, nil
	}
	if upd.PlatformID != nil {
		u.PlatformID = upd.PlatformID
	}
	if upd.PlatformUsername != nil {
		u.PlatformUsername = upd.PlatformUsername
	}
	if upd.SocialLinks != nil {
		u.SocialLinks = upd.SocialLinks
	}
	return clone(u), nil
}

func (r *fakeUserRepo) SetPremium(_ context.Context, userID string, premium bool, expiry *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	if u == nil {
		return errors.New("no such user")
	}
	r.setPremiums++
	u.IsPremium, u.PremiumExpiry = premium, expiry
	return nil
}

func (r *fakeUserRepo) UpdateStripeCustomerID(_ context.Context, userID, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.users[userID]; u != nil {
		u.StripeCustomerID = &customerID
	}
	return nil
}

func (r *fakeUserRepo) SetVerified(_ context.Context, telegramID int64, verified bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byTelegram(telegramID)
	if u == nil {
		return nil, nil
	}
	u.IsVerified = verified
	return clone(u), nil
}

func (r *fakeUserRepo) ClearExpiredPremium(_ context.Context, now time.Time) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*model.User
	for _, u := range r.users {
		if u.IsPremium && u.PremiumExpiry != nil && !u.PremiumExpiry.After(now) {
			expired = append(expired, clone(u))
			u.IsPremium = false
			u.PremiumExpiry = nil
		}
	}
	return expired, nil
}

// fakeSubRepo keeps rows keyed by Stripe subscription id in insertion order.
type fakeSubRepo struct {
	mu      sync.Mutex
	subs    []*model.Subscription
	upserts int
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{}
}

func (r *fakeSubRepo) GetByUserID(_ context.Context, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var mine []*model.Subscription
	for _, s := range r.subs {
		if s.UserID == userID {
			mine = append(mine, s)
		}
	}
	if cur := model.CurrentSubscription(mine); cur != nil {
		c := *cur
		return &c, nil
	}
	return nil, nil
}

func (r *fakeSubRepo) GetByStripeID(_ context.Context, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.StripeSubscriptionID == id {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeSubRepo) Upsert(_ context.Context, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	c := *sub
	for i, s := range r.subs {
		if s.StripeSubscriptionID == sub.StripeSubscriptionID {
			r.subs[i] = &c
			return nil
		}
	}
	r.subs = append(r.subs, &c)
	return nil
}

type fakeEventRepo struct {
	mu        sync.Mutex
	claimed   map[string]bool
	processed map[string]bool
	released  int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{claimed: map[string]bool{}, processed: map[string]bool{}}
}

func (r *fakeEventRepo) Claim(_ context.Context, id, _ string, _ []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimed[id] {
		return false, nil
	}
	r.claimed[id] = true
	return true, nil
}

func (r *fakeEventRepo) MarkProcessed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[id] = true
	return nil
}

func (r *fakeEventRepo) Release(_ context.Context, id string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claimed, id)
	r.released++
	return nil
}

type fakePlatformRepo struct {
	platforms []*model.Platform
}

func newFakePlatformRepo(ids ...string) *fakePlatformRepo {
	r := &fakePlatformRepo{}
	for i, id := range ids {
		r.platforms = append(r.platforms, &model.Platform{ID: id, Name: id, IsActive: true, SortOrder: i})
	}
	return r
}

func (r *fakePlatformRepo) List(context.Context) ([]*model.Platform, error) {
	return r.platforms, nil
}

func (r *fakePlatformRepo) Get(_ context.Context, id string) (*model.Platform, error) {
	for _, p := range r.platforms {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

type fakeStatsRepo struct {
	mu       sync.Mutex
	stats    map[string]*model.Stats
	evidence []*model.StatsEvidence
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{stats: map[string]*model.Stats{}}
}

func (r *fakeStatsRepo) Upsert(_ context.Context, userID, platformID string, wins, losses int, notes *string) (*model.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stats {
		if s.UserID == userID && s.PlatformID == platformID {
			if s.Wins != wins || s.Losses != losses {
				s.VerificationStatus = model.VerificationPending
			}
			s.Wins, s.Losses, s.Notes = wins, losses, notes
			s.Derive()
			c := *s
			return &c, nil
		}
	}
	s := &model.Stats{ID: uuid.NewString(), UserID: userID, PlatformID: platformID, Wins: wins, Losses: losses, Notes: notes, VerificationStatus: model.VerificationPending}
	s.Derive()
	r.stats[s.ID] = s
	c := *s
	return &c, nil
}

func (r *fakeStatsRepo) GetByID(_ context.Context, id string) (*model.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stats[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *fakeStatsRepo) ListByUser(_ context.Context, userID string) ([]*model.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Stats{}
	for _, s := range r.stats {
		if s.UserID == userID {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlatformID < out[j].PlatformID })
	return out, nil
}

func (r *fakeStatsRepo) SetVerificationStatus(_ context.Context, id string, status model.VerificationStatus, by *int64) (*model.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[id]
	if !ok {
		return nil, nil
	}
	now := time.Now()
	s.VerificationStatus, s.VerifiedBy, s.VerifiedAt = status, by, &now
	c := *s
	return &c, nil
}

func (r *fakeStatsRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stats[id]
	delete(r.stats, id)
	return ok, nil
}

func (r *fakeStatsRepo) AddEvidence(_ context.Context, e *model.StatsEvidence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now()
	r.evidence = append(r.evidence, e)
	return nil
}

func (r *fakeStatsRepo) ListEvidence(_ context.Context, userID string) ([]*model.StatsEvidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.StatsEvidence
	for _, e := range r.evidence {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeLeaderboardRepo struct {
	global    []model.LeaderboardEntry
	platforms map[string][]model.LeaderboardEntry
	premium   map[string]bool
	loads     int
}

func (r *fakeLeaderboardRepo) Global(context.Context) ([]model.LeaderboardEntry, error) {
	r.loads++
	return append([]model.LeaderboardEntry(nil), r.global...), nil
}

func (r *fakeLeaderboardRepo) Platform(_ context.Context, id string) ([]model.LeaderboardEntry, error) {
	r.loads++
	return append([]model.LeaderboardEntry(nil), r.platforms[id]...), nil
}

func (r *fakeLeaderboardRepo) PremiumUsers(_ context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		if r.premium[id] {
			out[id] = true
		}
	}
	return out, nil
}

type fakeVerseRepo struct {
	verses  []model.Verse
	lookups int
}

func (r *fakeVerseRepo) Count(context.Context) (int, error) {
	return len(r.verses), nil
}

func (r *fakeVerseRepo) GetByOffset(_ context.Context, offset int) (*model.Verse, error) {
	r.lookups++
	if offset < 0 || offset >= len(r.verses) {
		return nil, nil
	}
	v := r.verses[offset]
	return &v, nil
}

func (r *fakeVerseRepo) Random(context.Context) (*model.Verse, error) {
	if len(r.verses) == 0 {
		return nil, nil
	}
	v := r.verses[0]
	return &v, nil
}

type fakeDLQRepo struct {
	messages []*model.DeadLetterMessage
}

func (r *fakeDLQRepo) Create(_ context.Context, m *model.DeadLetterMessage) error {
	m.ID = uuid.NewString()
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeDLQRepo) ListUnprocessed(_ context.Context, limit int) ([]*model.DeadLetterMessage, error) {
	if limit < len(r.messages) {
		return r.messages[:limit], nil
	}
	return r.messages, nil
}

// memCache is an in-memory cache.Cache that ignores TTLs.
type memCache struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload []byte) (string, error) {
	var ev model.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return fmt.Sprint(len(p.events)), nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeStripe struct {
	subs      map[string]*stripe.Subscription
	customers int
	sessions  []*stripe.CheckoutSessionParams
	updates   map[string]bool
	getErr    error
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{subs: map[string]*stripe.Subscription{}, updates: map[string]bool{}}
}

func (f *fakeStripe) CreateCustomer(*stripe.CustomerParams) (*stripe.Customer, error) {
	f.customers++
	return &stripe.Customer{ID: fmt.Sprintf("cus_%d", f.customers)}, nil
}

func (f *fakeStripe) CreateCheckoutSession(p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.sessions = append(f.sessions, p)
	return &stripe.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/c/pay/cs_test"}, nil
}

func (f *fakeStripe) CreatePortalSession(p *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	return &stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/session/" + *p.Customer}, nil
}

func (f *fakeStripe) GetSubscription(id string) (*stripe.Subscription, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.subs[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", id)
	}
	return s, nil
}

func (f *fakeStripe) UpdateSubscription(id string, p *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	s, ok := f.subs[id]
	if !ok {
		s = &stripe.Subscription{ID: id}
	}
	if p.CancelAtPeriodEnd != nil {
		s.CancelAtPeriodEnd = *p.CancelAtPeriodEnd
		f.updates[id] = *p.CancelAtPeriodEnd
	}
	return s, nil
}

type fakeStorage struct {
	fail    bool
	missing map[string]bool
}

func (f *fakeStorage) PresignUpload(_ context.Context, key, _ string) (string, error) {
	if f.fail {
		return "", errors.New("storage down")
	}
	return "https://storage.test/put/" + key, nil
}

func (f *fakeStorage) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://storage.test/get/" + key, nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	return !f.missing[key], nil
}

type invalidations struct {
	platforms []string
}

func (i *invalidations) Invalidate(_ context.Context, platformID string) {
	i.platforms = append(i.platforms, platformID)
}

type fakeSender struct {
	sent map[int64][]string
	err  error
}

func (s *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	if s.err != nil {
		return s.err
	}
	if s.sent == nil {
		s.sent = map[int64][]string{}
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}
