package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"getlowlevel-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AggregateStore keeps each user aggregate across four keys sharing a hash tag:
//
//	HSET user:{uid}            scalar fields (counters, profile, settings, socials)
//	SADD user:{uid}:completed  titles answered correctly at least once
//	HSET user:{uid}:languages  language -> first-time correct count
//	HSET user:{uid}:topics     topic -> first-time correct count
//
// The users set indexes every provisioned uid for the leaderboard.
type AggregateStore struct {
	client *redis.Client
}

func NewAggregateStore(client *redis.Client) *AggregateStore {
	return &AggregateStore{client: client}
}

const usersKey = "users"

func userKey(uid string) string      { return "user:{" + uid + "}" }
func completedKey(uid string) string { return userKey(uid) + ":completed" }
func languagesKey(uid string) string { return userKey(uid) + ":languages" }
func topicsKey(uid string) string    { return userKey(uid) + ":topics" }

// KEYS: user, users. ARGV: uid, email, photoURL, displayName, now, showAvatar.
// Existing users only get their login fields refreshed.
var provisionScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  redis.call('HSET', KEYS[1], 'email', ARGV[2], 'photoURL', ARGV[3], 'lastLogin', ARGV[5])
  return 0
end
redis.call('HSET', KEYS[1],
  'uid', ARGV[1], 'displayName', ARGV[4], 'email', ARGV[2], 'photoURL', ARGV[3],
  'createdAt', ARGV[5], 'lastLogin', ARGV[5], 'showAvatar', ARGV[6],
  'totalCompleted', '0', 'correctCount', '0', 'incorrectCount', '0')
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// KEYS: user, completed, languages, topics. ARGV: title, correct, language, topic.
// Returns -1 for an unknown user, 1 for a first-time correct answer, 0 otherwise.
var applyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if ARGV[2] ~= '1' then
  redis.call('HINCRBY', KEYS[1], 'incorrectCount', '1')
  return 0
end
if redis.call('SADD', KEYS[2], ARGV[1]) == 0 then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'correctCount', '1')
redis.call('HINCRBY', KEYS[1], 'totalCompleted', '1')
if ARGV[3] ~= '' then
  redis.call('HINCRBY', KEYS[3], ARGV[3], '1')
end
if ARGV[4] ~= '' then
  redis.call('HINCRBY', KEYS[4], ARGV[4], '1')
end
return 1
`)

// KEYS: user. ARGV: field/value pairs.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if #ARGV > 0 then
  redis.call('HSET', KEYS[1], unpack(ARGV))
end
return 1
`)

func (s *AggregateStore) Provision(ctx context.Context, seed domain.UserAggregate) (domain.UserAggregate, error) {
	keys := []string{userKey(seed.UID), usersKey}
	now := seed.LastLogin
	if now.IsZero() {
		now = time.Now()
	}
	args := []interface{}{seed.UID, seed.Email, seed.PhotoURL, seed.DisplayName, formatTime(now), boolField(seed.Settings.ShowAvatar)}
	if err := provisionScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return domain.UserAggregate{}, err
	}
	return s.Get(ctx, seed.UID)
}

// Get reads the four keys of one user inside MULTI so a concurrent apply never shows half-written.
func (s *AggregateStore) Get(ctx context.Context, uid string) (domain.UserAggregate, error) {
	pipe := s.client.TxPipeline()
	cmds := queueRead(ctx, pipe, uid)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.UserAggregate{}, err
	}
	agg, ok := cmds.decode()
	if !ok {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	return agg, nil
}

// List reads every indexed aggregate in one transaction. Users deleted mid-read are skipped.
func (s *AggregateStore) List(ctx context.Context) ([]domain.UserAggregate, error) {
	uids, err := s.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return []domain.UserAggregate{}, nil
	}

	pipe := s.client.TxPipeline()
	all := make([]readCmds, 0, len(uids))
	for _, uid := range uids {
		all = append(all, queueRead(ctx, pipe, uid))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make([]domain.UserAggregate, 0, len(all))
	for _, cmds := range all {
		if agg, ok := cmds.decode(); ok {
			out = append(out, agg)
		}
	}
	return out, nil
}

func (s *AggregateStore) ApplySubmission(ctx context.Context, uid string, outcome domain.Outcome) (domain.ApplyResult, error) {
	keys := []string{userKey(uid), completedKey(uid), languagesKey(uid), topicsKey(uid)}
	args := []interface{}{outcome.QuestionTitle, boolField(outcome.Correct), outcome.Language, outcome.Topic}
	res, err := applyScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return domain.ApplyResult{}, err
	}
	if res < 0 {
		return domain.ApplyResult{}, domain.ErrUserNotFound
	}
	agg, err := s.Get(ctx, uid)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	return domain.ApplyResult{FirstTimeCorrect: res == 1, Aggregate: agg}, nil
}

func (s *AggregateStore) UpdateProfile(ctx context.Context, uid string, update domain.ProfileUpdate) (domain.UserAggregate, error) {
	var args []interface{}
	if update.DisplayName != nil {
		args = append(args, "displayName", *update.DisplayName)
	}
	if update.Settings != nil {
		args = append(args, "showAvatar", boolField(update.Settings.ShowAvatar))
	}
	if update.Socials != nil {
		args = append(args,
			"github", update.Socials.GitHub,
			"linkedin", update.Socials.LinkedIn,
			"twitter", update.Socials.Twitter,
		)
	}
	ok, err := updateScript.Run(ctx, s.client, []string{userKey(uid)}, args...).Int()
	if err != nil {
		return domain.UserAggregate{}, err
	}
	if ok == 0 {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	return s.Get(ctx, uid)
}

func (s *AggregateStore) Delete(ctx context.Context, uid string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, userKey(uid))
		pipe.Del(ctx, completedKey(uid), languagesKey(uid), topicsKey(uid))
		pipe.SRem(ctx, usersKey, uid)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

type readCmds struct {
	uid       string
	fields    *redis.MapStringStringCmd
	completed *redis.StringSliceCmd
	languages *redis.MapStringStringCmd
	topics    *redis.MapStringStringCmd
}

func queueRead(ctx context.Context, pipe redis.Pipeliner, uid string) readCmds {
	return readCmds{
		uid:       uid,
		fields:    pipe.HGetAll(ctx, userKey(uid)),
		completed: pipe.SMembers(ctx, completedKey(uid)),
		languages: pipe.HGetAll(ctx, languagesKey(uid)),
		topics:    pipe.HGetAll(ctx, topicsKey(uid)),
	}
}

func (c readCmds) decode() (domain.UserAggregate, bool) {
	f := c.fields.Val()
	if len(f) == 0 {
		return domain.UserAggregate{}, false
	}
	agg := domain.UserAggregate{
		UID:         c.uid,
		DisplayName: f["displayName"],
		Email:       f["email"],
		PhotoURL:    f["photoURL"],
		Stats: domain.Stats{
			TotalCompleted: atoi(f["totalCompleted"]),
			CorrectCount:   atoi(f["correctCount"]),
			IncorrectCount: atoi(f["incorrectCount"]),
			Languages:      counts(c.languages.Val()),
			Topics:         counts(c.topics.Val()),
		},
		CompletedQuestions: c.completed.Val(),
		Settings:           domain.Settings{ShowAvatar: f["showAvatar"] == "1"},
		Socials: domain.Socials{
			GitHub:   f["github"],
			LinkedIn: f["linkedin"],
			Twitter:  f["twitter"],
		},
		CreatedAt: parseTime(f["createdAt"]),
		LastLogin: parseTime(f["lastLogin"]),
	}
	return agg.Clone(), true
}

func counts(raw map[string]string) map[string]int {
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		out[k] = atoi(v)
	}
	return out
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
