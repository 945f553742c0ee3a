package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molnotation/pkg/errors"
)

// JobClaimer marks analysis jobs as taken so that a message delivered twice
// is processed once. A claim expires after its TTL.
type JobClaimer interface {
	// Claim returns a token and true when the caller now owns jobID, or
	// false when another worker holds or has finished it.
	Claim(ctx context.Context, jobID string, ttl time.Duration) (token string, ok bool, err error)
	// Release drops a claim that token still owns, letting a redelivery
	// retry the job.
	Release(ctx context.Context, jobID, token string) error
}

const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type redisClaimer struct {
	client   *Client
	logger   logging.Logger
	prefix   string
	newToken func() string
}

func NewJobClaimer(client *Client, log logging.Logger) JobClaimer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &redisClaimer{
		client:   client,
		logger:   log.Named("claims"),
		prefix:   "molnote:job:",
		newToken: func() string { return uuid.New().String() },
	}
}

func (c *redisClaimer) Claim(ctx context.Context, jobID string, ttl time.Duration) (string, bool, error) {
	rdb, err := c.client.Redis()
	if err != nil {
		return "", false, err
	}
	token := c.newToken()
	ok, err := rdb.SetNX(ctx, c.prefix+jobID, token, ttl).Result()
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrCodeCacheError, "job claim failed")
	}
	if !ok {
		c.logger.Debug("job already claimed", logging.String("job_id", jobID))
		return "", false, nil
	}
	return token, true, nil
}

func (c *redisClaimer) Release(ctx context.Context, jobID, token string) error {
	rdb, err := c.client.Redis()
	if err != nil {
		return err
	}
	n, err := rdb.Eval(ctx, releaseScript, []string{c.prefix + jobID}, token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "job release failed")
	}
	if n == 0 {
		c.logger.Warn("job claim no longer held", logging.String("job_id", jobID))
	}
	return nil
}
